package remo

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBaseURL      = "https://api.nature.global/1"
	DefaultPollInterval = 60 * time.Second
	DefaultTimeout      = 30 * time.Second
	DefaultCoolTemp     = 28.0
	DefaultHeatTemp     = 20.0
)

// Config defines runtime configuration for the Nature Remo integration.
type Config struct {
	AccessToken     string
	BaseURL         string
	PollInterval    time.Duration
	RequestTimeout  time.Duration
	DefaultCoolTemp float64
	DefaultHeatTemp float64
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultTimeout
	}
	if c.DefaultCoolTemp == 0 {
		c.DefaultCoolTemp = DefaultCoolTemp
	}
	if c.DefaultHeatTemp == 0 {
		c.DefaultHeatTemp = DefaultHeatTemp
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
