package logging

import (
	"encoding/json"
	"fmt"
)

// JsonFormatter JSON 格式化器
type JsonFormatter struct {
	TimestampFormat string
}

// NewJsonFormatter 创建 JSON 格式化器
func NewJsonFormatter() *JsonFormatter {
	return &JsonFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// Format 格式化日志。无法序列化的字段值（如 reflect.Type）按 %v 输出
func (f *JsonFormatter) Format(entry *LogEntry) ([]byte, error) {
	data := map[string]any{
		"time":  entry.Time.Format(f.TimestampFormat),
		"level": entry.Level.String(),
		"msg":   entry.Message,
	}
	if entry.Category != "" {
		data["category"] = entry.Category
	}

	if len(entry.Fields) > 0 {
		fields := make(map[string]any, len(entry.Fields))
		for _, field := range entry.Fields {
			fields[field.Key] = jsonValue(field.Value)
		}
		data["fields"] = fields
	}

	return json.Marshal(data)
}

func jsonValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool, int, int64, float64:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		if _, err := json.Marshal(v); err != nil {
			return fmt.Sprintf("%v", v)
		}
		return v
	}
}
