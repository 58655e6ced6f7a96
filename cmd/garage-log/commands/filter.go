package commands

import (
	"fmt"
	"io"

	"github.com/rpi-garage/garage-go/pkg/log"
)

// RunFilter copies the events of path matching filter into a new log file
// and returns how many were written.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			written, _ := logger.Stats()
			return written, fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}

	written, dropped := logger.Stats()
	if dropped > 0 {
		return written, fmt.Errorf("failed to write %d events", dropped)
	}
	return written, nil
}
