// Copyright 2024-2026 Aiku AI

package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger writing to out and, if configured,
// to a rotated log file. The returned function closes the file.
func NewLogger(cfg LoggingConfig, out *os.File) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	pretty, err := cfg.pretty(out)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var console io.Writer = out
	if pretty {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	writers := []io.Writer{console}
	closeFn := func() error { return nil }
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   expandHome(cfg.File),
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, file)
		closeFn = file.Close
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger()
	return log, closeFn, nil
}

// pretty resolves the pretty setting. "auto" enables it when out is a
// terminal.
func (c LoggingConfig) pretty(out *os.File) (bool, error) {
	switch strings.ToLower(c.Pretty) {
	case "", "auto":
		return isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd()), nil
	default:
		pretty, err := strconv.ParseBool(c.Pretty)
		if err != nil {
			return false, fmt.Errorf("invalid pretty setting %q: %w", c.Pretty, err)
		}
		return pretty, nil
	}
}
