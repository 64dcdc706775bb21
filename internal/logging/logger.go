// Package logging builds the diagnostic logger. Everything it writes goes to
// stderr or a log file, never to the report stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	envLevel  = "ELFSTAT_LOG_LEVEL"
	envPrefix = "ELFSTAT_LOG_PREFIX"
	envToFile = "ELFSTAT_LOG_TO_FILE"

	defaultPrefix = "elfstat"
)

// Config holds the logger settings taken from the environment.
type Config struct {
	Level  log.Level
	Prefix string
	ToFile bool
}

// ConfigFromEnv reads ELFSTAT_LOG_LEVEL, ELFSTAT_LOG_PREFIX and ELFSTAT_LOG_TO_FILE.
func ConfigFromEnv() Config {
	cfg := Config{
		Level:  ParseLevel(os.Getenv(envLevel)),
		Prefix: os.Getenv(envPrefix),
		ToFile: os.Getenv(envToFile) == "1",
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	return cfg
}

// LoggerCloser is a logger that owns its output.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the log file, if the logger opened one.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// ParseLevel maps a level name to a log level, defaulting to info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a logger writing to w with the given settings. cfg.ToFile is
// ignored here; see NewLogger.
func New(w io.Writer, cfg Config) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          cfg.Prefix,
		Level:           cfg.Level,
	})

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != os.Stderr && w != os.Stdout {
		closer = c
	}
	return &LoggerCloser{Logger: lg, closer: closer}
}

// NewLoggerWithWriter creates a logger writing to w, configured from the environment.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	return New(w, ConfigFromEnv())
}

// NewLogger creates a logger configured from the environment. With
// ELFSTAT_LOG_TO_FILE=1 it appends to elfstat-<timestamp>-debug.log in the
// working directory, falling back to stderr if the file cannot be opened.
func NewLogger() *LoggerCloser {
	cfg := ConfigFromEnv()
	if !cfg.ToFile {
		return New(os.Stderr, cfg)
	}

	logFile := fmt.Sprintf("elfstat-%s-debug.log", time.Now().Format("20060102-150405"))
	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return New(os.Stderr, cfg)
	}
	return New(f, cfg)
}

// IsDebug reports whether ELFSTAT_LOG_LEVEL selects debug output.
func IsDebug() bool {
	return ParseLevel(os.Getenv(envLevel)) == log.DebugLevel
}
