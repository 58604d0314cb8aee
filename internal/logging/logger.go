// Package logging provides categorized file-based debug logging for vizard.
// Logs are written under <dir>/ with one file per category per day. All
// logging is gated by debug mode: when disabled every call is a no-op, so
// hot paths can log freely.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category names a subsystem log stream.
type Category string

const (
	CategoryBoot        Category = "boot"        // startup and wiring
	CategorySession     Category = "session"     // websocket lifecycle, dispatch
	CategoryResolver    Category = "resolver"    // classification and resolution
	CategoryCandidates  Category = "candidates"  // candidate store operations
	CategoryEmbedding   Category = "embedding"   // embedding engine
	CategoryAPI         Category = "api"         // completion capability calls
	CategorySafety      Category = "safety"      // guard decisions
	CategoryExecutor    Category = "executor"    // query execution
	CategoryCredentials Category = "credentials" // credential store
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls the logging subsystem. The zero value disables logging.
type Options struct {
	DebugMode  bool
	Dir        string
	Level      string          // debug/info/warn/error (default info)
	Categories map[string]bool // nil enables all categories
}

// Logger writes to one category's file. A Logger with a nil inner logger is
// a no-op.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.RWMutex
	loggers  = make(map[Category]*Logger)
	opts     Options
	logLevel = LevelInfo
)

// Initialize configures the logging subsystem. Safe to call more than once;
// later calls replace the configuration. When debug mode is off this is a
// silent no-op.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)

	if !o.DebugMode {
		return nil
	}
	if o.Dir == "" {
		opts.Dir = filepath.Join(".vizard", "logs")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return nil
}

// IsDebugMode reports whether debug logging is active.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return opts.DebugMode
}

func categoryEnabled(c Category) bool {
	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, ok := opts.Categories[string(c)]
	if !ok {
		return true
	}
	return enabled
}

// Get returns the logger for a category, creating its file on first use.
// Disabled categories get a no-op logger.
func Get(c Category) *Logger {
	mu.RLock()
	if !categoryEnabled(c) {
		mu.RUnlock()
		return &Logger{category: c}
	}
	if l, ok := loggers[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[c]; ok {
		return l
	}

	name := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), c)
	path := filepath.Join(opts.Dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return &Logger{category: c}
	}

	l := &Logger{
		category: c,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[c] = l
	return l
}

// CloseAll flushes and closes every open log file.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

func (l *Logger) printf(level int, tag, format string, args ...interface{}) {
	if l.logger == nil || logLevel > level {
		return
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.printf(LevelDebug, "DEBUG", format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.printf(LevelInfo, "INFO", format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.printf(LevelWarn, "WARN", format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.printf(LevelError, "ERROR", format, args...)
}

// Category shortcuts, matching call sites like logging.Session("...").

func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }

func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

func Resolver(format string, args ...interface{}) { Get(CategoryResolver).Info(format, args...) }

func ResolverDebug(format string, args ...interface{}) {
	Get(CategoryResolver).Debug(format, args...)
}

func Candidates(format string, args ...interface{}) { Get(CategoryCandidates).Info(format, args...) }

func CandidatesDebug(format string, args ...interface{}) {
	Get(CategoryCandidates).Debug(format, args...)
}

func Embedding(format string, args ...interface{}) { Get(CategoryEmbedding).Info(format, args...) }

func EmbeddingDebug(format string, args ...interface{}) {
	Get(CategoryEmbedding).Debug(format, args...)
}

func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

func Executor(format string, args ...interface{}) { Get(CategoryExecutor).Info(format, args...) }

func Credentials(format string, args ...interface{}) {
	Get(CategoryCredentials).Info(format, args...)
}
