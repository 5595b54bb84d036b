package logger

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
)

// Logger wraps slog.Logger to satisfy music.Logger.
type Logger struct {
	logger  *slog.Logger
	logFile *os.File // Keep reference to close on shutdown
}

// Options controls where log records go.
type Options struct {
	Level     string
	Format    string
	AddSource bool
	// Dir receives one file per day. Empty disables file output.
	Dir string
	// Console mirrors records to stderr. The terminal UI turns this off.
	Console bool
}

// New creates a new Logger with configurable output format.
func New(opts Options) (*Logger, error) {
	logFile, output, err := logOutput(opts.Dir, opts.Console)
	if err != nil {
		return nil, err
	}

	l := newLogger(output, opts.Level, opts.Format, opts.AddSource)
	l.logFile = logFile
	return l, nil
}

// NewWriter creates a Logger that writes to w only.
func NewWriter(w io.Writer, level, format string) *Logger {
	if w == nil {
		w = io.Discard
	}
	return newLogger(w, level, format, false)
}

func newLogger(output io.Writer, level, format string, addSource bool) *Logger {
	options := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: addSource,
	}

	format = strings.ToLower(strings.TrimSpace(format))
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, options)
	} else {
		handler = slog.NewTextHandler(output, options)
	}

	return &Logger{logger: slog.New(handler)}
}

// With returns a child logger with additional fields.
func (l *Logger) With(args ...any) music.Logger {
	return &Logger{logger: l.logger.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

func logOutput(dir string, console bool) (*os.File, io.Writer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		if console {
			return nil, os.Stderr, nil
		}
		return nil, io.Discard, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}

	fileName := time.Now().Local().Format("2006-01-02") + ".log"
	filePath := filepath.Join(dir, fileName)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}

	if file == nil {
		return nil, nil, errors.New("log file handle is nil")
	}

	if console {
		return file, io.MultiWriter(os.Stderr, file), nil
	}
	return file, file, nil
}

// Close closes the log file handle.
func (l *Logger) Close() error {
	if l == nil || l.logFile == nil {
		return nil
	}
	return l.logFile.Close()
}
