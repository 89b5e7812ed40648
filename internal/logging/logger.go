// Package logging provides the small levelled logger used by the flash
// read path, the simulated probe and the flash-read tool.
package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Severity represents log message severity levels
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity maps a config level name ("debug", "info", "warn",
// "warning", "error") to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return SeverityDebug, nil
	case "", "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityInfo, fmt.Errorf("unknown log level %q", name)
}

// Logger is the logging contract shared by sessions and the read path.
type Logger interface {
	Log(severity Severity, msg string)
	Logf(severity Severity, format string, args ...any)
	Error(err error)
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
}

// StdLogger writes through the standard library log package. Errors go
// to their own writer so tool output on stdout stays clean.
type StdLogger struct {
	out      *log.Logger
	errOut   *log.Logger
	minLevel Severity
}

// NewStdLogger logs to stderr.
func NewStdLogger(minLevel Severity) *StdLogger {
	return NewStdLoggerWithWriter(os.Stderr, os.Stderr, minLevel)
}

// NewStdLoggerWithWriter creates a logger with custom writers.
func NewStdLoggerWithWriter(out, errOut io.Writer, minLevel Severity) *StdLogger {
	return &StdLogger{
		out:      log.New(out, "", log.Ltime),
		errOut:   log.New(errOut, "", log.Ltime|log.Lshortfile),
		minLevel: minLevel,
	}
}

func (l *StdLogger) Log(severity Severity, msg string) {
	if severity < l.minLevel {
		return
	}
	line := severity.String() + ": " + msg
	if severity == SeverityError {
		l.errOut.Output(3, line)
		return
	}
	l.out.Output(3, line)
}

func (l *StdLogger) Logf(severity Severity, format string, args ...any) {
	if severity < l.minLevel {
		return
	}
	l.Log(severity, fmt.Sprintf(format, args...))
}

func (l *StdLogger) Error(err error) {
	if err != nil {
		l.Log(SeverityError, err.Error())
	}
}

func (l *StdLogger) Debug(msg string)   { l.Log(SeverityDebug, msg) }
func (l *StdLogger) Info(msg string)    { l.Log(SeverityInfo, msg) }
func (l *StdLogger) Warning(msg string) { l.Log(SeverityWarning, msg) }

// SlogLogger forwards to a *slog.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger; a nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Log(severity Severity, msg string) {
	l.logger.Log(context.Background(), SlogLevel(severity), msg)
}

func (l *SlogLogger) Logf(severity Severity, format string, args ...any) {
	ctx := context.Background()
	level := SlogLevel(severity)
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *SlogLogger) Error(err error) {
	if err != nil {
		l.logger.Error(err.Error())
	}
}

func (l *SlogLogger) Debug(msg string)   { l.Log(SeverityDebug, msg) }
func (l *SlogLogger) Info(msg string)    { l.Log(SeverityInfo, msg) }
func (l *SlogLogger) Warning(msg string) { l.Log(SeverityWarning, msg) }

// SlogLevel maps a severity onto the matching slog level.
func SlogLevel(s Severity) slog.Level {
	switch s {
	case SeverityDebug:
		return slog.LevelDebug
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (NoOpLogger) Log(Severity, string)          {}
func (NoOpLogger) Logf(Severity, string, ...any) {}
func (NoOpLogger) Error(error)                   {}
func (NoOpLogger) Debug(string)                  {}
func (NoOpLogger) Info(string)                   {}
func (NoOpLogger) Warning(string)                {}

var (
	_ Logger = (*StdLogger)(nil)
	_ Logger = (*SlogLogger)(nil)
	_ Logger = NoOpLogger{}
)
