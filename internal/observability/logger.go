package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Fields map[string]any

type Logger struct {
	service string
	out     io.Writer
	mu      sync.Mutex
}

func NewLogger(service string) *Logger {
	return &Logger{
		service: strings.TrimSpace(service),
		out:     os.Stdout,
	}
}

func (l *Logger) Info(msg string, fields Fields) {
	l.emit("info", msg, fields)
}

func (l *Logger) Warn(msg string, fields Fields) {
	l.emit("warn", msg, fields)
}

func (l *Logger) Error(msg string, fields Fields) {
	l.emit("error", msg, fields)
}

func (l *Logger) emit(level, msg string, fields Fields) {
	if l == nil {
		return
	}

	entry := map[string]any{
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"level":   level,
		"msg":     strings.TrimSpace(msg),
		"service": l.service,
	}
	for key, value := range fields {
		cleanKey := strings.TrimSpace(key)
		if cleanKey == "" || value == nil {
			continue
		}
		if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
			continue
		}
		entry[cleanKey] = value
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"ts":"%s","level":"error","msg":"logger_marshal_failed","service":"%s"}`,
			time.Now().UTC().Format(time.RFC3339Nano), l.service))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.out, string(payload))
}
