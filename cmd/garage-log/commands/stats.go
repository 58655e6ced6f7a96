package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rpi-garage/garage-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Results           map[string]int
	Peers             map[string]*PeerStats
	Transitions       map[string]int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PeerStats holds statistics for one remote address.
type PeerStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
}

// CollectStats reads every event of path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Results:           make(map[string]int),
		Peers:             make(map[string]*PeerStats),
		Transitions:       make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.RemoteAddr != "" {
		peer, ok := s.Peers[event.RemoteAddr]
		if !ok {
			peer = &PeerStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Peers[event.RemoteAddr] = peer
		}
		peer.Events++
		if event.Timestamp.After(peer.LastSeen) {
			peer.LastSeen = event.Timestamp
		}
	}

	switch {
	case event.Message != nil && event.Message.Result != "":
		s.Results[event.Layer.String()+"/"+event.Message.Result]++
	case event.StateChange != nil:
		s.Transitions[event.StateChange.NewState]++
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Garage Monitor Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerDiscovery, log.LayerHTTP, log.LayerNotify, log.LayerSensor} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Results) > 0 {
		fmt.Fprintln(w, "Results:")
		for _, key := range sortedKeys(stats.Results) {
			fmt.Fprintf(w, "  %-30s %d\n", key+":", stats.Results[key])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Transitions) > 0 {
		fmt.Fprintln(w, "Door Transitions:")
		for _, key := range sortedKeys(stats.Transitions) {
			fmt.Fprintf(w, "  to %-9s %d\n", key+":", stats.Transitions[key])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Peers: %d\n", len(stats.Peers))
	if len(stats.Peers) > 0 {
		addrs := make([]string, 0, len(stats.Peers))
		for addr := range stats.Peers {
			addrs = append(addrs, addr)
		}
		sort.Slice(addrs, func(i, j int) bool {
			return stats.Peers[addrs[i]].FirstSeen.Before(stats.Peers[addrs[j]].FirstSeen)
		})

		fmt.Fprintln(w)
		for _, addr := range addrs {
			p := stats.Peers[addr]
			fmt.Fprintf(w, "  %s: %d events, last seen %s\n", addr, p.Events, p.LastSeen.Format(time.RFC3339))
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
