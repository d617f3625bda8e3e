package logging

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"
)

var levelColors = map[LogLevel]*color.Color{
	LogLevelTrace: color.New(color.FgHiBlack),
	LogLevelDebug: color.New(color.FgCyan),
	LogLevelInfo:  color.New(color.FgGreen),
	LogLevelWarn:  color.New(color.FgYellow),
	LogLevelError: color.New(color.FgRed),
	LogLevelFatal: color.New(color.FgMagenta, color.Bold),
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	if c, ok := levelColors[level]; ok {
		return c.Sprint(text)
	}
	return text
}

// TextFormatter 文本格式化器
type TextFormatter struct {
	IncludeTimestamp bool
	TimestampFormat  string
	ColorOutput      bool
}

// NewTextFormatter 创建文本格式化器
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		IncludeTimestamp: true,
		TimestampFormat:  "2006-01-02 15:04:05",
		ColorOutput:      false,
	}
}

// Format 格式化日志，格式为 "时间 级别 [类别] 消息 {k=v, ...}"
func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	var buf bytes.Buffer

	if f.IncludeTimestamp {
		buf.WriteString(entry.Time.Format(f.TimestampFormat))
		buf.WriteByte(' ')
	}

	levelStr := entry.Level.String()
	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, levelStr))
	} else {
		buf.WriteString(levelStr)
	}

	if entry.Category != "" {
		buf.WriteString(" [")
		buf.WriteString(entry.Category)
		buf.WriteString("]")
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buf.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(field.Key)
			buf.WriteByte('=')
			fmt.Fprintf(&buf, "%v", field.Value)
		}
		buf.WriteByte('}')
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
