package config

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the standard logrus logger from the config.
func (c *Config) SetupLogging(out io.Writer) error {
	level, err := log.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	if out != nil {
		log.SetOutput(out)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
