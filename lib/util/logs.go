package util

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the JSON logger used by every Lambda in this repo.
// The level comes from LOG_LEVEL and defaults to error.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	return logger
}

// SetLogLevel applies a level by name. Anything unrecognized falls back to
// error, which only logs errors to save CloudWatch costs.
func SetLogLevel(logger *logrus.Logger, level string) {
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	default:
		logger.SetLevel(logrus.ErrorLevel)
	}
}
