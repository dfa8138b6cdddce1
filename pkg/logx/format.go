package logx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fields is structured data attached to an entry.
type Fields map[string]interface{}

// LogEntry is what a Formatter receives.
type LogEntry struct {
	Level     Level
	Message   string
	Fields    Fields
	Error     error
	Timestamp time.Time
}

// Formatter encodes a LogEntry into one line of output.
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

func formatTimestamp(t time.Time, layout string) string {
	if layout == "unixmilli" {
		return fmt.Sprintf("%d", t.UnixMilli())
	}
	return t.Format(layout)
}

type jsonFormatter struct {
	config *Config
}

func (f *jsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := make(map[string]interface{}, len(entry.Fields)+4)
	for k, v := range entry.Fields {
		data[k] = v
	}
	data["level"] = entry.Level.String()
	data["message"] = entry.Message
	data["timestamp"] = formatTimestamp(entry.Timestamp, f.config.TimeFormat)
	if entry.Error != nil {
		data["error"] = entry.Error.Error()
	}

	out, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[1;31m"
	colorYellow = "\033[1;33m"
	colorGreen  = "\033[1;32m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

type consoleFormatter struct {
	config *Config
}

func (f *consoleFormatter) paint(b *strings.Builder, color, s string) {
	if f.config.EnableColors {
		b.WriteString(color)
		b.WriteString(s)
		b.WriteString(colorReset)
		return
	}
	b.WriteString(s)
}

func (f *consoleFormatter) levelColor(l Level) string {
	switch {
	case l >= LevelError:
		return colorRed
	case l == LevelWarn:
		return colorYellow
	case l == LevelInfo:
		return colorGreen
	default:
		return colorGray
	}
}

func (f *consoleFormatter) Format(entry *LogEntry) ([]byte, error) {
	var b strings.Builder

	f.paint(&b, colorGray, formatTimestamp(entry.Timestamp, f.config.TimeFormat))
	b.WriteByte(' ')
	f.paint(&b, f.levelColor(entry.Level), fmt.Sprintf("[%-5s]", entry.Level.String()))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		keys := make([]string, 0, len(entry.Fields))
		for k := range entry.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = fmt.Sprintf("%s=%v", k, entry.Fields[k])
		}
		b.WriteByte(' ')
		f.paint(&b, colorCyan, strings.Join(pairs, " "))
	}

	if entry.Error != nil {
		b.WriteString(" ")
		f.paint(&b, colorRed, "error="+entry.Error.Error())
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}
