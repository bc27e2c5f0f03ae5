// Package logging configures the logrus standard logger used throughout
// filepush.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level, format and optional log file.
type Options struct {
	Level  string
	Format string
	File   string
}

// Rotation settings for the log file.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
)

// Setup applies opts to the logrus standard logger and returns it. Output
// always goes to stderr and is copied to File, with rotation, when set.
func Setup(opts Options) (*logrus.Logger, error) {
	logger := logrus.StandardLogger()
	if err := configure(logger, opts, os.Stderr); err != nil {
		return nil, err
	}
	return logger, nil
}

// configure applies opts to logger writing to console plus the optional file.
func configure(logger *logrus.Logger, opts Options, console io.Writer) error {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(opts.Format)
	if err != nil {
		return err
	}

	out := console
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
		}
		out = io.MultiWriter(console, rotator)
	}

	logger.SetLevel(level)
	logger.SetFormatter(formatter)
	logger.SetOutput(out)

	logger.WithFields(logrus.Fields{
		"function": "Setup",
		"level":    level.String(),
		"file":     opts.File,
	}).Debug("Logging configured")

	return nil
}

// ParseLevel accepts logrus level names plus WARN, case-insensitively. An
// empty level means info.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
