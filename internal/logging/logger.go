package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
	LogLevelFatal: 4,
}

// ParseLevel accepts level names case-insensitively
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[level]; !ok {
		return LogLevelInfo, fmt.Errorf("unknown log level '%s'", s)
	}
	return level, nil
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Error     string                 `json:"error,omitempty"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// LogFormatter formats log entries for output
type LogFormatter interface {
	Format(entry *LogEntry) string
}

// TextFormatter formats logs as human-readable text. Context keys are sorted.
type TextFormatter struct{}

func (f *TextFormatter) Format(entry *LogEntry) string {
	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05.000")
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s [%s] %s", timestamp, entry.Level, entry.Component, entry.Message)

	if entry.Error != "" {
		fmt.Fprintf(&b, " | error=%s", entry.Error)
	}

	if len(entry.Context) > 0 {
		keys := make([]string, 0, len(entry.Context))
		for k := range entry.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Context[k])
		}
	}

	b.WriteByte('\n')
	return b.String()
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *LogEntry) string {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"ERROR","component":"logging","message":"unencodable entry: %v"}`+"\n", err)
	}
	return string(data) + "\n"
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	minLevel  LogLevel
	outputs   []io.Writer
	mu        sync.Mutex
	formatter LogFormatter
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		minLevel:  LogLevelInfo,
		outputs:   []io.Writer{os.Stdout},
		formatter: &TextFormatter{},
	}
}

// Named returns a logger for another component sharing level, outputs and formatter
func (l *Logger) Named(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		component: component,
		minLevel:  l.minLevel,
		outputs:   append([]io.Writer(nil), l.outputs...),
		formatter: l.formatter,
	}
}

// SetMinLevel sets the minimum log level to output
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
	return l
}

// AddOutput adds an output writer for logs
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, w)
	return l
}

// SetOutput replaces all outputs with w
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = []io.Writer{w}
	return l
}

// SetFormatter sets the log formatter
func (l *Logger) SetFormatter(formatter LogFormatter) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.formatter = formatter
	return l
}

// log writes a log entry
func (l *Logger) log(level LogLevel, message string, err error, context map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   message,
		Context:   context,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	formatted := []byte(l.formatter.Format(entry))
	for _, output := range l.outputs {
		output.Write(formatted)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelDebug, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelInfo, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(LogLevelWarn, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(LogLevelError, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(LogLevelError, message, err, context)
}

// Fatal logs a fatal error message. It does not exit.
func (l *Logger) Fatal(message string, err error) {
	l.log(LogLevelFatal, message, err, nil)
}

// WithContext returns a logger that attaches context to every entry
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

func (cl *ContextLogger) Debug(message string) {
	cl.logger.log(LogLevelDebug, message, nil, cl.context)
}

func (cl *ContextLogger) Info(message string) {
	cl.logger.log(LogLevelInfo, message, nil, cl.context)
}

func (cl *ContextLogger) Warn(message string) {
	cl.logger.log(LogLevelWarn, message, nil, cl.context)
}

func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.log(LogLevelError, message, err, cl.context)
}
