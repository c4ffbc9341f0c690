package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is the logging level.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Options configures the global logger.
type Options struct {
	Enabled bool
	Level   string
	File    string
	Console bool
	// Format is json or console.
	Format string
	// Output overrides stdout for the console sink.
	Output io.Writer
}

// Logger is a leveled logger over zerolog.
type Logger struct {
	level   Level
	zl      zerolog.Logger
	enabled bool
	closer  io.Closer
}

var (
	mu           sync.RWMutex
	globalLogger *Logger
)

// Init initializes the logger.
func Init(opts Options) error {
	if !opts.Enabled {
		setGlobal(&Logger{enabled: false})
		return nil
	}

	level := parseLevel(opts.Level)
	var writers []io.Writer
	var closer io.Closer

	if opts.File != "" {
		dir := filepath.Dir(opts.File)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if opts.Console || len(writers) == 0 {
		out := opts.Output
		if out == nil {
			out = os.Stdout
		}
		if strings.EqualFold(opts.Format, "console") {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
		}
		writers = append(writers, out)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerologLevel(level)).
		With().Timestamp().Logger()

	setGlobal(&Logger{
		level:   level,
		zl:      zl,
		enabled: true,
		closer:  closer,
	})
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger == nil || globalLogger.closer == nil {
		return nil
	}
	err := globalLogger.closer.Close()
	globalLogger.closer = nil
	return err
}

func setGlobal(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil && globalLogger.closer != nil {
		globalLogger.closer.Close()
	}
	globalLogger = l
}

func parseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug
	case "info":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case Debug:
		return zerolog.DebugLevel
	case Warn:
		return zerolog.WarnLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func event(level Level) *zerolog.Event {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger == nil || !globalLogger.enabled || globalLogger.level > level {
		return nil
	}
	switch level {
	case Debug:
		return globalLogger.zl.Debug()
	case Warn:
		return globalLogger.zl.Warn()
	case Error:
		return globalLogger.zl.Error()
	default:
		return globalLogger.zl.Info()
	}
}

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) {
	if e := event(Debug); e != nil {
		e.Msgf(format, args...)
	}
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	if e := event(Info); e != nil {
		e.Msgf(format, args...)
	}
}

// Warnf logs a warning.
func Warnf(format string, args ...interface{}) {
	if e := event(Warn); e != nil {
		e.Msgf(format, args...)
	}
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	if e := event(Error); e != nil {
		e.Msgf(format, args...)
	}
}
