// Package util provides low-level helpers shared by all other packages.
package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// LogLevel controls output verbosity.
type LogLevel int

const (
	LogQuiet   LogLevel = 0
	LogNormal  LogLevel = 1
	LogVerbose LogLevel = 2
	LogDebug   LogLevel = 3
)

// logrusLevel maps a verbosity to the most detailed logrus level shown.
func (l LogLevel) logrusLevel() logrus.Level {
	switch {
	case l <= LogQuiet:
		return logrus.ErrorLevel
	case l == LogNormal:
		return logrus.InfoLevel
	case l == LogVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

// Logger writes levelled messages to stderr with optional timestamps
// and level prefixes.  It is a thin printf-style front end over logrus.
type Logger struct {
	level LogLevel
	base  *logrus.Logger
	entry *logrus.Entry
	fmt   *lineFormatter
}

// NewLogger returns a Logger that prints messages at or below the given
// verbosity (0 = quiet, 1 = normal, 2 = verbose, 3 = debug).
func NewLogger(verbosity int) *Logger {
	f := &lineFormatter{timestamps: verbosity >= 3}
	base := logrus.New()
	base.SetLevel(LogLevel(verbosity).logrusLevel())
	base.SetFormatter(f)
	l := &Logger{
		level: LogLevel(verbosity),
		base:  base,
		entry: logrus.NewEntry(base),
		fmt:   f,
	}
	l.SetOutput(os.Stderr)
	return l
}

// SetTimestamps enables or disables timestamp prefixes.
func (l *Logger) SetTimestamps(on bool) { l.fmt.timestamps = on }

// SetOutput overrides the output writer (default: os.Stderr).  Colours
// are enabled only when w is a terminal.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
	l.fmt.colors = false
	if f, ok := w.(*os.File); ok {
		l.fmt.colors = term.IsTerminal(int(f.Fd()))
	}
}

// Level returns the current log level.
func (l *Logger) Level() LogLevel { return l.level }

// WithField returns a Logger that tags every message with key=value.
// The returned Logger shares output and level with l.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	c := *l
	c.entry = l.entry.WithField(key, value)
	return &c
}

// Info prints when verbosity ≥ 1.  Prefixed with [INF].
func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

// Warn prints when verbosity ≥ 1.  Prefixed with [WRN].
func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

// Verbose prints when verbosity ≥ 2.  Prefixed with [VRB].
func (l *Logger) Verbose(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

// Debug prints when verbosity ≥ 3.  Prefixed with [DBG].
func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Tracef(format, args...)
}

// Error always prints regardless of verbosity.  Prefixed with [ERR].
func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// ── Formatter ────────────────────────────────────────────────────────

var levelTags = map[logrus.Level]string{
	logrus.PanicLevel: "ERR",
	logrus.FatalLevel: "ERR",
	logrus.ErrorLevel: "ERR",
	logrus.WarnLevel:  "WRN",
	logrus.InfoLevel:  "INF",
	logrus.DebugLevel: "VRB",
	logrus.TraceLevel: "DBG",
}

var levelColors = map[string]int{"ERR": 31, "WRN": 33, "INF": 36, "VRB": 37, "DBG": 90}

// lineFormatter renders "[TAG] message key=value ..." lines.
type lineFormatter struct {
	timestamps bool
	colors     bool
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.timestamps {
		b.WriteString(e.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	tag := levelTags[e.Level]
	if f.colors {
		fmt.Fprintf(&b, "\x1b[%dm[%s]\x1b[0m ", levelColors[tag], tag)
	} else {
		fmt.Fprintf(&b, "[%s] ", tag)
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
