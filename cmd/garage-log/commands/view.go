// Package commands implements the garage-log CLI commands.
package commands

import (
	"fmt"
	"io"

	"github.com/rpi-garage/garage-go/pkg/log"
)

// timestampLayout is used by every text and CSV output.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp DIRECTION LAYER Type [remote]
	ts := event.Timestamp.UTC().Format(timestampLayout)
	fmt.Fprintf(w, "%s %-3s %-9s %s", ts, event.Direction, event.Layer, eventType(event))
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, " [%s]", event.RemoteAddr)
	}
	fmt.Fprintln(w)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventType returns a short label for the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Message != nil:
		if event.Message.Method != "" {
			return event.Message.Method
		}
		return "Message"
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.Target != "" {
		fmt.Fprintf(w, "  Target: %s\n", msg.Target)
	}
	if msg.SearchTarget != "" {
		fmt.Fprintf(w, "  ST: %s\n", msg.SearchTarget)
	}
	if msg.Command != "" {
		fmt.Fprintf(w, "  Command: %s\n", msg.Command)
	}
	if msg.StatusCode != 0 {
		fmt.Fprintf(w, "  Status: %d\n", msg.StatusCode)
	}
	if msg.Result != "" {
		fmt.Fprintf(w, "  Result: %s\n", msg.Result)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// RunView prints every event of the log file matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
