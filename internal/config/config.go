package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/glockpete/hass-nature-remo/internal/remo"
)

const (
	DefaultPath                = "/etc/hass-nature-remo/config.yaml"
	DefaultHTTPAddr            = "0.0.0.0:8080"
	DefaultPollIntervalSeconds = 60
	DefaultTimeoutSeconds      = 30
)

// Config is the top-level daemon configuration.
type Config struct {
	HTTPAddr string `yaml:"http_addr"`

	// One of AccessToken and AccessTokenFile must be set; the file form
	// keeps secrets out of the config itself.
	AccessToken     string `yaml:"access_token"`
	AccessTokenFile string `yaml:"access_token_file"`

	BaseURL             string `yaml:"base_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`

	CoolTemperature float64 `yaml:"cool_temperature"`
	HeatTemperature float64 `yaml:"heat_temperature"`

	MQTT *remo.MQTTConfig `yaml:"mqtt"`
}

// Load parses the YAML config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate enforces required invariants beyond YAML typing.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if cfg.AccessToken == "" && cfg.AccessTokenFile == "" {
		return fmt.Errorf("access_token or access_token_file is required")
	}
	if cfg.AccessToken != "" && cfg.AccessTokenFile != "" {
		return fmt.Errorf("access_token and access_token_file are mutually exclusive")
	}
	if cfg.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must be positive")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if cfg.MQTT != nil && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is configured")
	}
	return nil
}

// ResolveToken returns the access token, reading the token file if the
// config points at one.
func (cfg *Config) ResolveToken() (string, error) {
	if cfg.AccessToken != "" {
		return cfg.AccessToken, nil
	}
	data, err := os.ReadFile(cfg.AccessTokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s is empty", cfg.AccessTokenFile)
	}
	return token, nil
}
