package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/rpi-garage/garage-go/pkg/log"
)

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

var csvHeader = []string{
	"timestamp", "direction", "layer", "category", "remote", "device_target",
	"type", "target", "st", "cmd", "status", "result", "detail",
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return cw.Error()
}

func csvRow(event log.Event) []string {
	var target, st, cmd, status, result, detail string
	switch {
	case event.Message != nil:
		m := event.Message
		target, st, cmd, result = m.Target, m.SearchTarget, m.Command, m.Result
		if m.StatusCode != 0 {
			status = strconv.Itoa(m.StatusCode)
		}
	case event.StateChange != nil:
		detail = event.StateChange.OldState + "->" + event.StateChange.NewState
	case event.Error != nil:
		detail = event.Error.Message
		if event.Error.Context != "" {
			detail = event.Error.Context + ": " + detail
		}
	}

	return []string{
		event.Timestamp.UTC().Format(timestampLayout),
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		event.RemoteAddr,
		event.DeviceTarget,
		eventType(event),
		target,
		st,
		cmd,
		status,
		result,
		detail,
	}
}
