package log

// MultiLogger hands each event to every sink in order. garage-monitor uses it
// to send events to both the slog adapter and the .glog file.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks, skipping nil ones. With a single remaining
// sink that sink is returned as-is, and with none a NoopLogger.
func NewMultiLogger(sinks ...Logger) Logger {
	var kept []Logger
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return NoopLogger{}
	case 1:
		return kept[0]
	}
	return &MultiLogger{sinks: kept}
}

// Log sends event to all sinks.
func (m *MultiLogger) Log(event Event) {
	for _, s := range m.sinks {
		s.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
