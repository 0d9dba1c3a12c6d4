package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseLogLevel maps a level name onto logrus.
func ParseLogLevel(level string) (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, level)
	}
	return lvl, nil
}

// ConfigureLogging applies the log section to the standard logrus logger.
func (c *Config) ConfigureLogging(out io.Writer) error {
	lvl, err := ParseLogLevel(c.Log.Level)
	if err != nil {
		return err
	}

	logrus.SetOutput(out)
	logrus.SetLevel(lvl)

	if strings.EqualFold(c.Log.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
