package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes a per-component log file with size rotation. Each
// process (trainer, thinker, trader) keeps its own file under the
// shared logs directory.
type Logger struct {
	component string
	logDir    string
	logFile   *os.File
	logger    *log.Logger
	mu        sync.Mutex
	size      int64
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
)

const (
	maxLogSize  = 10 * 1024 * 1024
	maxLogFiles = 5
)

// NewLogger creates a file logger for the given component, writing to
// <logDir>/<component>.log.
func NewLogger(logDir, component string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{component: component, logDir: logDir}
	if err := l.open(); err != nil {
		return nil, err
	}

	l.logger.Printf("==== %s session started %s ====", component, time.Now().Format("2006-01-02 15:04:05"))
	return l, nil
}

func (l *Logger) open() error {
	path := l.path()
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	l.logFile = file
	l.logger = log.New(file, "", 0)
	l.size = info.Size()
	return nil
}

func (l *Logger) path() string {
	return filepath.Join(l.logDir, l.component+".log")
}

// rotate shifts component.log -> component.log.1 -> ... keeping the
// newest maxLogFiles files. Called with the mutex held.
func (l *Logger) rotate() {
	l.logFile.Close()
	base := l.path()
	os.Remove(fmt.Sprintf("%s.%d", base, maxLogFiles-1))
	for i := maxLogFiles - 2; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", base, i), fmt.Sprintf("%s.%d", base, i+1))
	}
	os.Rename(base, base+".1")
	if err := l.open(); err != nil {
		// Fall back to stderr rather than dropping logs entirely.
		l.logger = log.New(os.Stderr, l.component+" ", 0)
		l.logFile = nil
		l.size = 0
	}
}

// Log writes a formatted entry with the specified level.
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	entry := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.logger.Println(entry)
	l.size += int64(len(entry)) + 1
	if l.size >= maxLogSize && l.logFile != nil {
		l.rotate()
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs an executed order
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// LogError logs an error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogTradeExecution logs fill details in a fixed layout so the log is
// greppable per order.
func (l *Logger) LogTradeExecution(coin, side, reason, orderID string, qty, price, value float64) {
	l.Trade("%s %s %s qty=%.8f price=%.8f value=%.2f order_id=%s", coin, side, reason, qty, price, value, orderID)
}

// Close writes a session footer and closes the file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logFile != nil {
		l.logger.Printf("==== %s session ended %s ====", l.component, time.Now().Format("2006-01-02 15:04:05"))
		return l.logFile.Close()
	}
	return nil
}

// GetLogPath returns the current log file path.
func (l *Logger) GetLogPath() string {
	return l.path()
}
