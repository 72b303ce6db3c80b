// Package logging builds the logrus loggers used across the client.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = "2006-01-02 15:04:05"

// Options configures a logger.
type Options struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to stderr.
	Output io.Writer
	// DisableColor turns off colored text output.
	DisableColor bool
}

// New builds a logger from opts.
func New(opts Options) (*logrus.Logger, error) {
	logger := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}
	logger.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: defaultTimestampFormat,
			DisableColors:   opts.DisableColor,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: defaultTimestampFormat})
	default:
		return nil, fmt.Errorf("invalid log format %q: must be text or json", opts.Format)
	}

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger, nil
}

var (
	defaultLogger *logrus.Logger
	defaultOnce   sync.Once
)

// Default returns the logger used when a component is built without one.
func Default() logrus.FieldLogger {
	defaultOnce.Do(func() {
		defaultLogger, _ = New(Options{Level: "warn"})
	})
	return defaultLogger
}

// Discard returns a logger that drops everything.
func Discard() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
