// Package logging wraps github.com/sirupsen/logrus behind a small
// interface so call sites never import logrus directly. Parse
// diagnostics (reject/error output) are plain text written to
// stdout/stderr by the CLI; this package covers the runtime's own
// operational logging (a compiled-grammar line from run, REPL input
// events).
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus's level set, narrowed to the four the CLI's
// --log-level flag exposes.
type Level int

const (
	Error Level = iota
	Warn
	Info
	Debug
)

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case Error:
		return logrus.ErrorLevel
	case Warn:
		return logrus.WarnLevel
	case Debug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// GetLevel parses a --log-level flag value, defaulting to Info.
func GetLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, &levelError{level}
	}
}

type levelError struct{ level string }

func (e *levelError) Error() string { return "invalid log level: " + e.level }

// Logger is the interface every call site depends on.
type Logger interface {
	Debug(fields Fields, msg string)
	Info(fields Fields, msg string)
	Warn(fields Fields, msg string)
	Error(fields Fields, msg string)
	WithFields(fields Fields) Logger
	SetLevel(Level)
	GetLevel() Level
}

// Fields attaches structured key/value context to one log line.
type Fields map[string]any

// StandardLogger is the default logrus-backed Logger.
type StandardLogger struct {
	entry *logrus.Entry
}

// New returns a StandardLogger writing JSON lines to stderr at Info
// level.
func New() *StandardLogger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

// NewText returns a StandardLogger using the human-readable text
// formatter, the CLI's default (--log-format=text) for every command
// that logs.
func NewText(out io.Writer) *StandardLogger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

func (s *StandardLogger) Debug(f Fields, msg string) { s.entryWith(f).Debug(msg) }
func (s *StandardLogger) Info(f Fields, msg string)  { s.entryWith(f).Info(msg) }
func (s *StandardLogger) Warn(f Fields, msg string)  { s.entryWith(f).Warn(msg) }
func (s *StandardLogger) Error(f Fields, msg string) { s.entryWith(f).Error(msg) }

func (s *StandardLogger) entryWith(f Fields) *logrus.Entry {
	if len(f) == 0 {
		return s.entry
	}
	return s.entry.WithFields(logrus.Fields(f))
}

func (s *StandardLogger) WithFields(f Fields) Logger {
	return &StandardLogger{entry: s.entryWith(f)}
}

func (s *StandardLogger) SetLevel(l Level) { s.entry.Logger.SetLevel(l.logrusLevel()) }

func (s *StandardLogger) GetLevel() Level {
	switch s.entry.Logger.GetLevel() {
	case logrus.DebugLevel, logrus.TraceLevel:
		return Debug
	case logrus.WarnLevel:
		return Warn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return Error
	default:
		return Info
	}
}

// NoOpLogger discards everything, used by tests and library embedders
// that don't want runtime log noise.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger                 { return &NoOpLogger{} }
func (*NoOpLogger) Debug(Fields, string)         {}
func (*NoOpLogger) Info(Fields, string)          {}
func (*NoOpLogger) Warn(Fields, string)          {}
func (*NoOpLogger) Error(Fields, string)         {}
func (n *NoOpLogger) WithFields(Fields) Logger   { return n }
func (*NoOpLogger) SetLevel(Level)               {}
func (*NoOpLogger) GetLevel() Level              { return Info }

var _ Logger = (*StandardLogger)(nil)
var _ Logger = (*NoOpLogger)(nil)
