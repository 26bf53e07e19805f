package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ========================================
// Structured Logger
// ========================================

// Logger is the process-wide logger. Stdout carries results, so console
// output goes to stderr.
var Logger = zerolog.Nop()

// fileLogger is the open log file, if any.
var fileLogger *RotatingFile

// LogLevel is a log threshold.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ParseLogLevel maps a config or flag value to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "", "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	}
	return LogLevelWarn, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

// LogConfig configures InitLogger.
type LogConfig struct {
	Level      LogLevel
	Console    bool      // write to Out
	Out        io.Writer // console destination, stderr when nil
	NoColor    bool
	File       bool   // also write to FilePath
	FilePath   string // log file path
	MaxSizeMB  int    // rotate the file past this size
	MaxBackups int    // rotated files to keep
}

// DefaultLogConfig returns console-only logging at warn level.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      LogLevelWarn,
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// ========================================
// Log file
// ========================================

// RotatingFile appends to a log file shared by successive runs. A write that
// would take the file past MaxSizeMB first shifts it to path.1, moving older
// backups up one slot and dropping whatever falls past MaxBackups.
type RotatingFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	keep  int
	f     *os.File
	size  int64
}

// NewRotatingFile opens config.FilePath for appending.
func NewRotatingFile(config LogConfig) (*RotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rf := &RotatingFile{
		path:  config.FilePath,
		limit: int64(config.MaxSizeMB) << 20,
		keep:  config.MaxBackups,
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

// Write implements io.Writer. A single record larger than the limit still
// goes to a fresh file whole.
func (rf *RotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return 0, os.ErrClosed
	}
	if rf.limit > 0 && rf.size > 0 && rf.size+int64(len(p)) > rf.limit {
		if err := rf.shift(); err != nil {
			return 0, err
		}
	}

	n, err := rf.f.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *RotatingFile) open() error {
	f, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	rf.f, rf.size = f, info.Size()
	return nil
}

func (rf *RotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", rf.path, n)
}

// shift moves path.N-1 to path.N down to path to path.1 and reopens path.
// With no backups kept the current file is simply truncated.
func (rf *RotatingFile) shift() error {
	rf.f.Close()
	rf.f = nil

	if rf.keep <= 0 {
		if err := os.Remove(rf.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return rf.open()
	}

	os.Remove(rf.backup(rf.keep))
	for n := rf.keep - 1; n >= 1; n-- {
		os.Rename(rf.backup(n), rf.backup(n+1))
	}
	if err := os.Rename(rf.path, rf.backup(1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return rf.open()
}

// Close closes the log file.
func (rf *RotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.f == nil {
		return nil
	}
	err := rf.f.Close()
	rf.f = nil
	return err
}

// ========================================
// Initialisation
// ========================================

// InitLogger replaces Logger according to config.
func InitLogger(config LogConfig) error {
	var writers []io.Writer

	if config.Console {
		out := config.Out
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    config.NoColor,
		})
	}

	if config.File && config.FilePath != "" {
		rf, err := NewRotatingFile(config)
		if err != nil {
			return err
		}
		fileLogger = rf
		writers = append(writers, rf)
	}

	if len(writers) == 0 {
		Logger = zerolog.Nop()
		return nil
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(config.Level.zerolog()).
		With().
		Timestamp().
		Logger()

	return nil
}

// CloseLogger closes the log file, if one is open.
func CloseLogger() {
	if fileLogger != nil {
		fileLogger.Close()
		fileLogger = nil
	}
}

// ========================================
// Module helpers
// ========================================

// LogDebug starts a debug event tagged with module.
func LogDebug(module string) *zerolog.Event {
	return Logger.Debug().Str("module", module)
}

// LogInfo starts an info event tagged with module.
func LogInfo(module string) *zerolog.Event {
	return Logger.Info().Str("module", module)
}

// LogWarn starts a warn event tagged with module.
func LogWarn(module string) *zerolog.Event {
	return Logger.Warn().Str("module", module)
}

// LogError starts an error event tagged with module.
func LogError(module string) *zerolog.Event {
	return Logger.Error().Str("module", module)
}

// ModuleLogger returns a child logger tagged with module, for packages that
// take a zerolog.Logger.
func ModuleLogger(module string) zerolog.Logger {
	return Logger.With().Str("module", module).Logger()
}
