// Package observability provides the pipeline's structured logger, used by
// cmd/pipeline. It mirrors the lightweight JSON-line logger pattern used
// throughout this codebase's services rather than pulling in a full logging
// framework: one log call, one JSON object, stdout.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// LogEntry is the canonical shape written to stdout.
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component"`
	TraceID   string                 `json:"trace_id,omitempty"`
	SpanID    string                 `json:"span_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Config controls logger construction.
type Config struct {
	Component string
	Level     string
	Format    string // "json" or "text"
}

// Logger is a minimal structured logger. cmd/pipeline uses it for startup
// and server errors; the aggregator, indicator engine, rule engines and
// fusion engine do not take a Logger and do not log. It never buffers a
// line: every call to Info/Warn/Error/Debug writes synchronously.
type Logger struct {
	component string
	level     LogLevel
	format    string
}

// NewLogger builds a Logger from Config, defaulting to info/json.
func NewLogger(cfg Config) *Logger {
	level := LogLevel(cfg.Level)
	if _, ok := levelRank[level]; !ok {
		level = LogLevelInfo
	}
	format := cfg.Format
	if format == "" {
		format = "json"
	}
	return &Logger{component: cfg.Component, level: level, format: format}
}

func (l *Logger) shouldLog(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.level]
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelDebug) {
		l.log(ctx, LogLevelDebug, message, nil, fields...)
	}
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelInfo) {
		l.log(ctx, LogLevelInfo, message, nil, fields...)
	}
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, message string, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelWarn) {
		l.log(ctx, LogLevelWarn, message, nil, fields...)
	}
}

// Error logs at error level with an attached error.
func (l *Logger) Error(ctx context.Context, message string, err error, fields ...map[string]interface{}) {
	if l.shouldLog(LogLevelError) {
		l.log(ctx, LogLevelError, message, err, fields...)
	}
}

func (l *Logger) log(ctx context.Context, level LogLevel, message string, err error, fields ...map[string]interface{}) {
	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Message:   message,
		Component: l.component,
	}

	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			entry.TraceID = span.SpanContext().TraceID().String()
			entry.SpanID = span.SpanContext().SpanID().String()
		}
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if len(fields) > 0 {
		merged := make(map[string]interface{})
		for _, m := range fields {
			for k, v := range m {
				merged[k] = v
			}
		}
		entry.Fields = merged
	}

	l.write(entry)
}

func (l *Logger) write(entry LogEntry) {
	if l.format == "text" {
		fmt.Fprintf(os.Stdout, "%s [%s] %s: %s %v\n", entry.Timestamp, entry.Level, entry.Component, entry.Message, entry.Fields)
		return
	}
	if data, err := json.Marshal(entry); err == nil {
		fmt.Fprintln(os.Stdout, string(data))
	}
}
