// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// Logger setup from the logging section of the configuration.

package control

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger applies level and formatter settings to l. It is safe to call on a
// logger that other goroutines are writing to.
func ConfigureLogger(l *logrus.Logger, c LoggingConfig) error {
	level := c.Level
	if level == "" {
		level = "info"
	}
	logLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("%s; possible levels: %s", err, logrus.AllLevels)
	}
	l.SetLevel(logLevel)

	timestampFormat := c.TimestampFormat
	fullTimestamp := timestampFormat != ""
	if timestampFormat == "" {
		timestampFormat = time.RFC3339
	}

	switch format := strings.ToLower(c.Format); format {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat:  timestampFormat,
			FullTimestamp:    fullTimestamp,
			DisableTimestamp: c.DisableTimestamp,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:  timestampFormat,
			DisableTimestamp: c.DisableTimestamp,
		})
	default:
		return fmt.Errorf("unknown log format `%s`. possible formats: %s", format, []string{"text", "json"})
	}
	return nil
}
