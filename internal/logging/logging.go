// Package logging builds the slog logger used for structured run events.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	FormatJSON = "json"
	FormatText = "text"

	OutputStderr = "stderr"
	OutputFile   = "file"
)

type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// Rotation settings, used when Output is "file".
	FilePath   string `yaml:"file"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Level:      "warn",
		Format:     FormatText,
		Output:     OutputStderr,
		FilePath:   ".relaygen/relaygen.log",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     14,
	}
}

// New builds a logger writing to stderr or to a rotated file.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Output == OutputFile {
		w = newRotatingWriter(cfg)
	}
	return NewWithWriter(cfg, w)
}

func newRotatingWriter(cfg Config) io.Writer {
	if cfg.FilePath == "" {
		fmt.Fprintln(os.Stderr, "⚠️  logging output=file without a file path, using stderr")
		return os.Stderr
	}
	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  cannot create log directory %s: %v, using stderr\n", dir, err)
			return os.Stderr
		}
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug|info|warn|error to a slog level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
