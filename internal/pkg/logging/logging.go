// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log output.
type Config struct {
	Level  string
	Format string
	Dir    string // when set, logs are also written to a rotated file here
}

// New builds a logger writing to stdout and, when a directory is configured,
// to a size-rotated file in that directory. The returned closer flushes the
// file writer; it is a no-op for stdout-only loggers.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	closer := io.Closer(nopCloser{})

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		fileOut := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "pulsemon.log"),
			MaxSize:    20, // megabytes
			MaxBackups: 10,
			MaxAge:     90, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, fileOut)
		closer = fileOut
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
