
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type Logger struct {
	l *log.Logger
}

type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

func New() *Logger { return NewWithOptions(Options{}) }

func NewWithOptions(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	l := log.NewWithOptions(out, log.Options{
		Prefix:          "npdetector",
		ReportTimestamp: true,
	})
	level, err := log.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = log.InfoLevel
	}
	l.SetLevel(level)
	if opts.JSON {
		l.SetFormatter(log.JSONFormatter)
	}
	return &Logger{l: l}
}

// Discard returns a logger that drops everything, for tests and library use.
func Discard() *Logger { return NewWithOptions(Options{Output: io.Discard}) }

func (l *Logger) Debugf(format string, args ...any) { l.l.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.l.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.l.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.l.Errorf(format, args...) }

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...any) *Logger { return &Logger{l: l.l.With(keyvals...)} }
