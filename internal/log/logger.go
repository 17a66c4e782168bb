package log

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the config file's logger block.
// Unknown levels fall back to INFO, unknown formats to the text formatter.
func NewLogger(level, format string, disableTimestamp bool) *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stdout

	switch strings.ToUpper(format) {
	case "JSON":
		log.Formatter = &logrus.JSONFormatter{DisableTimestamp: disableTimestamp}
	default:
		log.Formatter = &logrus.TextFormatter{
			DisableColors:    false,
			DisableTimestamp: disableTimestamp,
		}
	}

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.Level = parsed
	return log
}
