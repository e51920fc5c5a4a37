// Package logger writes console, file and webhook logs, plus the structured
// security record stream consumed by log shippers.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

var levels = [...]struct {
	name    string
	color   string
	discord int
}{
	LevelCritical: {"CRITICAL", "\033[1;31m", 0xFF0000},
	LevelError:    {"ERROR", "\033[31m", 0xFF0000},
	LevelWarn:     {"WARN", "\033[33m", 0xFFFF00},
	LevelSuccess:  {"SUCCESS", "\033[32m", 0x00FF00},
	LevelInfo:     {"INFO", "\033[36m", 0x0000FF},
	LevelDebug:    {"DEBUG", "\033[35m", 0x800080},
	LevelSystem:   {"SYSTEM", "\033[34m", 0x808080},
}

func (l LogLevel) known() bool { return l >= 0 && int(l) < len(levels) }

// String returns the string representation of the log level
func (l LogLevel) String() string {
	if !l.known() {
		return "UNKNOWN"
	}
	return levels[l].name
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	if !l.known() {
		return colorReset
	}
	return levels[l].color
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	if !l.known() {
		return 0xFFFFFF
	}
	return levels[l].discord
}

// ParseLevel maps a level name (case insensitive) to a LogLevel.
func ParseLevel(name string) (LogLevel, bool) {
	for i, lv := range levels {
		if strings.EqualFold(lv.name, name) {
			return LogLevel(i), true
		}
	}
	return LevelSystem, false
}

const colorReset = "\033[0m"

// Options configures a Logger.
type Options struct {
	ErrorWebhook string
	LogsWebhook  string
	// Dir is where combined.log, error.log and security.log are written. Defaults to ./logs.
	Dir string
	// MaxLevel drops messages less severe than it. Defaults to LevelSystem (everything).
	MaxLevel LogLevel
	// Console is where human readable lines go. Defaults to os.Stdout.
	Console io.Writer
}

// Logger is the main logging structure
type Logger struct {
	opts      Options
	records   *logrus.Logger
	logFile   *os.File
	errorFile *os.File
	recFile   *os.File
	http      *http.Client
	mu        sync.Mutex
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(opts Options) *Logger {
	once.Do(func() {
		logger = NewLogger(opts)
	})
	return logger
}

// Get returns the global logger, creating a console-only one if Init was not called.
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger(Options{})
	})
	return logger
}

// NewLogger creates a new Logger instance
func NewLogger(opts Options) *Logger {
	if opts.Dir == "" {
		opts.Dir = filepath.Join(".", "logs")
	}
	if opts.MaxLevel == 0 {
		opts.MaxLevel = LevelSystem
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	l := &Logger{
		opts:    opts,
		records: logrus.New(),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
	l.records.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "prefix"},
	})
	l.records.SetOutput(io.Discard)

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		fmt.Fprintf(opts.Console, "Error creando el directorio de logs: %v\n", err)
		return l
	}
	l.logFile = openLog(opts.Console, filepath.Join(opts.Dir, "combined.log"))
	l.errorFile = openLog(opts.Console, filepath.Join(opts.Dir, "error.log"))
	l.recFile = openLog(opts.Console, filepath.Join(opts.Dir, "security.log"))
	if l.recFile != nil {
		l.records.SetOutput(l.recFile)
	}
	return l
}

func openLog(console io.Writer, path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Fprintf(console, "Error abriendo %s: %v\n", path, err)
		return nil
	}
	return f
}

func (l *Logger) log(level LogLevel, message string, prefix string) {
	if level > l.opts.MaxLevel {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(l.opts.Console, "[%s] [%s%s%s] [%s]: %s\n", timestamp, level.Color(), level, colorReset, prefix, message)

	line := fmt.Sprintf("[%s] [%s] [%s]: %s\n", timestamp, level, prefix, message)
	if l.logFile != nil {
		l.logFile.WriteString(line)
	}
	if level <= LevelError && l.errorFile != nil {
		l.errorFile.WriteString(line)
	}

	if url := l.webhookFor(level); url != "" {
		go l.sendToWebhook(url, level, message, prefix)
	}
}

func (l *Logger) webhookFor(level LogLevel) string {
	if level <= LevelError {
		return l.opts.ErrorWebhook
	}
	return l.opts.LogsWebhook
}

func (l *Logger) sendToWebhook(url string, level LogLevel, message, prefix string) {
	payload := map[string]any{
		"embeds": []any{map[string]any{
			"title":       fmt.Sprintf("[%s] %s", level, prefix),
			"description": fmt.Sprintf("```%s```", message),
			"color":       level.DiscordColor(),
			"timestamp":   time.Now().Format(time.RFC3339),
			"footer":      map[string]string{"text": "PancyStudio | PancyGuard Go"},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := l.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return
	}
	resp.Body.Close()
}

// Record writes one structured JSON line to security.log. fields is encoded
// and flattened into the entry.
func (l *Logger) Record(prefix string, fields any) {
	raw, err := json.Marshal(fields)
	if err != nil {
		l.Warn(fmt.Sprintf("Registro no serializable: %v", err), prefix)
		return
	}
	data := logrus.Fields{}
	if err := json.Unmarshal(raw, &data); err != nil {
		data = logrus.Fields{"record": string(raw)}
	}
	l.records.WithFields(data).Info(prefix)
}

// Close closes the log files
func (l *Logger) Close() {
	for _, f := range []*os.File{l.logFile, l.errorFile, l.recFile} {
		if f != nil {
			f.Close()
		}
	}
}

func (l *Logger) Critical(message string, prefix string) { l.log(LevelCritical, message, prefix) }
func (l *Logger) Error(message string, prefix string)    { l.log(LevelError, message, prefix) }
func (l *Logger) Warn(message string, prefix string)     { l.log(LevelWarn, message, prefix) }
func (l *Logger) Success(message string, prefix string)  { l.log(LevelSuccess, message, prefix) }
func (l *Logger) Info(message string, prefix string)     { l.log(LevelInfo, message, prefix) }
func (l *Logger) Debug(message string, prefix string)    { l.log(LevelDebug, message, prefix) }
func (l *Logger) System(message string, prefix string)   { l.log(LevelSystem, message, prefix) }

// Package-level functions for convenience

func Critical(message string, prefix string) { Get().Critical(message, prefix) }
func Error(message string, prefix string)    { Get().Error(message, prefix) }
func Warn(message string, prefix string)     { Get().Warn(message, prefix) }
func Success(message string, prefix string)  { Get().Success(message, prefix) }
func Info(message string, prefix string)     { Get().Info(message, prefix) }
func Debug(message string, prefix string)    { Get().Debug(message, prefix) }
func System(message string, prefix string)   { Get().System(message, prefix) }

// Record writes a structured record using the global logger.
func Record(prefix string, fields any) { Get().Record(prefix, fields) }
