package logging

import (
	"time"
)

// Formatter 把日志条目编码为一行输出
type Formatter interface {
	Format(entry *LogEntry) ([]byte, error)
}

// FormatterFunc 函数形式的 Formatter
type FormatterFunc func(entry *LogEntry) ([]byte, error)

func (f FormatterFunc) Format(entry *LogEntry) ([]byte, error) { return f(entry) }

// LogEntry 日志条目，Fields 已包含 WithFields 附加的字段
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}
