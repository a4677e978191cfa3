package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger applies level and format to logger
func (l LogConfig) ConfigureLogger(logger *logrus.Logger, out io.Writer) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)

	switch l.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log format: unknown format %q", l.Format)
	}

	if out != nil {
		logger.SetOutput(out)
	}
	return nil
}
