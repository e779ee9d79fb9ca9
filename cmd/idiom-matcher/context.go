package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kydenul/log"
	"github.com/spf13/viper"

	im "github.com/kydenul/idiom-matcher"
)

const defaultConfigName = "idiom-matcher"

type commandContext struct {
	configFlag    *string
	logConfigFlag *string
	logLevelFlag  *string

	loggerOnce sync.Once
	logger     log.Logger
}

func newCommandContext(configFlag, logConfigFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logConfigFlag: logConfigFlag,
		logLevelFlag:  logLevelFlag,
	}
}

// ensureLogger builds the logger from --log-config, falling back to --log-level
func (c *commandContext) ensureLogger() log.Logger {
	c.loggerOnce.Do(func() {
		level := "info"
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			level = strings.TrimSpace(*c.logLevelFlag)
		}

		opt := &log.Options{Level: level}
		if c.logConfigFlag != nil && strings.TrimSpace(*c.logConfigFlag) != "" {
			loaded, err := log.LoadFromFile(strings.TrimSpace(*c.logConfigFlag))
			if err != nil {
				fmt.Printf("Warning: Failed to load log config, using default: %v\n", err)
			} else {
				opt = loaded
			}
		}
		c.logger = log.NewLog(opt)
	})
	return c.logger
}

// loadConfig reads the configuration file without validating it. Without --config it
// looks for idiom-matcher.yaml in the working directory and ./config, and falls back
// to the defaults when none exists.
func (c *commandContext) loadConfig() (*im.Config, error) {
	v := viper.New()

	path := ""
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return im.DecodeViper(v)
}
