// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config selects level, format and destination. An empty Path logs to
// stderr; a set Path logs to both.
type Config struct {
	Level  string
	Format string // "text" or "json"
	Path   string
}

var (
	mu     sync.RWMutex
	logger = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&LineFormatter{})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// LineFormatter renders "[time] [LEVL] message k=v ..." lines.
type LineFormatter struct {
	TimestampFormat string
}

func (f *LineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	ts := f.TimestampFormat
	if ts == "" {
		ts = "15:04:05 MST 2006/01/02"
	}
	level := strings.ToUpper(e.Level.String())
	if len(level) > 4 {
		level = level[:4]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", e.Time.Format(ts), level, e.Message)
	for _, k := range sortedKeys(e.Data) {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func sortedKeys(m logrus.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseLevel maps a config string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Init replaces the package logger.
func Init(c Config) error {
	l := logrus.New()
	l.SetLevel(ParseLevel(c.Level))
	if strings.EqualFold(c.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&LineFormatter{})
	}
	var out io.Writer = os.Stderr
	if c.Path != "" {
		f, err := openLogFile(c.Path)
		if err != nil {
			return err
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	l.SetOutput(out)

	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

// Logger returns the current package logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Or returns l, or the package logger when l is nil.
func Or(l logrus.FieldLogger) logrus.FieldLogger {
	if l != nil {
		return l
	}
	return Logger()
}
