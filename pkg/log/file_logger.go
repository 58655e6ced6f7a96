package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a .glog file that garage-log can read back
// with NewReader. It is safe for concurrent use.
type FileLogger struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	file    *os.File
	enc     *cbor.Encoder
	written int
	dropped int
	closed  bool
}

// NewFileLogger opens path for appending, creating it if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	return &FileLogger{
		path: path,
		now:  time.Now,
		file: f,
		enc:  eventEncMode.NewEncoder(f),
	}, nil
}

// Log appends event. An event without a timestamp is stamped with the current
// time, since garage-log filters and sorts by it. Events that fail to encode
// are counted as dropped.
func (l *FileLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped++
		return
	}
	l.written++
}

// Path returns the file being written.
func (l *FileLogger) Path() string {
	return l.path
}

// Stats reports how many events were written and dropped so far.
func (l *FileLogger) Stats() (written, dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.dropped
}

// Close closes the file. Events logged afterwards are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
