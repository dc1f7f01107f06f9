package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Logger is the main logger instance
type Logger struct {
	config    *Config
	formatter Formatter
	mu        sync.Mutex
	writer    io.Writer
	exitFunc  func(int)
	redact    map[string]struct{}
}

// NewLogger creates a new logger with the given config
func NewLogger(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	var formatter Formatter = NewConsoleFormatter(config)
	if config.Format == FormatJSON {
		formatter = NewJSONFormatter(config)
	}

	writer := config.Output
	if writer == nil {
		writer = os.Stdout
	}

	redact := make(map[string]struct{}, len(config.RedactKeys))
	for _, k := range config.RedactKeys {
		redact[strings.ToLower(k)] = struct{}{}
	}

	return &Logger{
		config:    config,
		formatter: formatter,
		writer:    writer,
		exitFunc:  os.Exit,
		redact:    redact,
	}
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writer = w
}

func (l *Logger) log(level Level, msg string, fields Fields, err error) {
	if !l.GetLevel().Enabled(level) {
		return
	}

	entry := &LogEntry{
		Level:     level,
		Message:   msg,
		Fields:    l.redactFields(fields),
		Error:     err,
		Timestamp: time.Now(),
	}

	if l.config.EnableCaller {
		entry.Caller = caller(3)
	}

	formatted, formatErr := l.formatter.Format(entry)
	if formatErr != nil {
		fmt.Fprintf(os.Stderr, "logx: format: %v\n", formatErr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, writeErr := l.writer.Write(formatted); writeErr != nil {
		fmt.Fprintf(os.Stderr, "logx: write: %v\n", writeErr)
	}
}

// WithField creates a new entry with a field
func (l *Logger) WithField(key string, value any) *Entry {
	return newEntry(l).WithField(key, value)
}

// WithFields creates a new entry with fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return newEntry(l).WithFields(fields)
}

// WithError creates a new entry with an error
func (l *Logger) WithError(err error) *Entry {
	return newEntry(l).WithError(err)
}

const redacted = "[REDACTED]"

// redactFields returns fields with sensitive values masked. The input is
// shared with the Entry that produced it, so it is never modified.
func (l *Logger) redactFields(fields Fields) Fields {
	if len(l.redact) == 0 || len(fields) == 0 {
		return fields
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := l.redact[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		if m, ok := v.(map[string]any); ok {
			v = l.redactMap(m)
		}
		out[k] = v
	}
	return out
}

func (l *Logger) redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, ok := l.redact[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = v
	}
	return out
}

func (l *Logger) exit(code int) {
	l.exitFunc(code)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
