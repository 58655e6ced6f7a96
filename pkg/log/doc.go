// Package log captures protocol events for the garage monitor.
//
// Operational logging goes through slog. This package is the separate,
// machine-readable trace of what crossed the wire: discovery requests and
// responses, HTTP polls and subscriptions, outbound notifications and door
// state changes.
//
// # Basic Usage
//
//	// Console only, at debug level
//	events := log.NewSlogAdapter(slog.Default())
//
//	// Binary trace file
//	file, _ := log.NewFileLogger("/var/log/garage/monitor.glog")
//
//	// Both
//	events = log.NewMultiLogger(events, file)
//
// Pass NoopLogger{} (or nil where a component documents it) to disable capture.
//
// # File Format
//
// Files hold a stream of CBOR-encoded Event values with integer keys. The
// garage-log command reads them back through Reader.
package log
