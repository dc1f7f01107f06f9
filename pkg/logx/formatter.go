package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields is a map of structured data
type Fields map[string]any

// LogEntry represents a single log entry
type LogEntry struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
	Caller    string
}

// Formatter turns an entry into bytes
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

func formatTimestamp(t time.Time, layout string) string {
	switch layout {
	case "unix":
		return fmt.Sprintf("%d", t.Unix())
	case "unixmilli":
		return fmt.Sprintf("%d", t.UnixMilli())
	default:
		return t.Format(layout)
	}
}

// JSONFormatter formats logs as JSON lines
type JSONFormatter struct {
	config *Config
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(config *Config) *JSONFormatter {
	return &JSONFormatter{config: config}
}

// Format formats a log entry as JSON
func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]any, len(entry.Fields)+5)
	for k, v := range entry.Fields {
		data[k] = v
	}

	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	data["timestamp"] = formatTimestamp(entry.Timestamp, f.config.TimeFormat)

	if f.config.EnableCaller && entry.Caller != "" {
		data["caller"] = entry.Caller
	}
	if entry.Error != nil {
		data["error"] = entry.Error.Error()
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[97m"
	colorBoldRd = "\033[1;31m"
	colorBoldYl = "\033[1;33m"
	colorBoldGr = "\033[1;32m"
	colorBoldCy = "\033[1;36m"
)

var levelColors = map[Level]string{
	LevelTrace: colorGray,
	LevelDebug: colorBoldCy,
	LevelInfo:  colorBoldGr,
	LevelWarn:  colorBoldYl,
	LevelError: colorBoldRd,
	LevelFatal: colorBoldRd,
}

// ConsoleFormatter formats logs for humans
type ConsoleFormatter struct {
	config *Config
}

// NewConsoleFormatter creates a new console formatter
func NewConsoleFormatter(config *Config) *ConsoleFormatter {
	return &ConsoleFormatter{config: config}
}

// Format formats a log entry for console output. Fields are sorted so
// lines are stable across runs.
func (f *ConsoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	f.paint(&b, colorGray, formatTimestamp(entry.Timestamp, f.config.TimeFormat))
	b.WriteByte(' ')
	f.paint(&b, levelColors[entry.Level], fmt.Sprintf("[%-5s]", entry.Level.String()))
	b.WriteByte(' ')

	if f.config.EnableCaller && entry.Caller != "" {
		f.paint(&b, colorGray, "["+entry.Caller+"]")
		b.WriteByte(' ')
	}

	f.paint(&b, colorWhite, entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		b.WriteByte(' ')
		f.paint(&b, colorCyan, strings.Join(pairs, " "))
	}

	if entry.Error != nil {
		b.WriteString("\n")
		f.paint(&b, colorRed, "  ╰─→ error: "+entry.Error.Error())
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func (f *ConsoleFormatter) paint(b *strings.Builder, color, s string) {
	if !f.config.EnableColors || color == "" {
		b.WriteString(s)
		return
	}
	b.WriteString(color)
	b.WriteString(s)
	b.WriteString(colorReset)
}
