// Package eventlog records flash read sessions as a machine-readable
// event trace.
//
// Every progress event a read emits is turned into an Event by a
// Recorder and passed to a Logger:
//
//	// Console only
//	rec := eventlog.NewRecorder(eventlog.NewSlogAdapter(slog.Default()))
//
//	// Binary file plus console
//	fl, _ := eventlog.NewFileLogger("read.flog")
//	rec := eventlog.NewRecorder(eventlog.NewMultiLogger(fl, eventlog.NewSlogAdapter(slog.Default())))
//
//	err := flashing.Read(session, rec.Progress(), addr, buf)
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with integer keys,
// written with canonical encoding. A Reader streams them back, optionally
// filtered by operation, session or kind.
package eventlog
