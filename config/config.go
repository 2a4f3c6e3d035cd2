package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr        string `yaml:"addr"`
	DBUrl       string `yaml:"db_url"`
	TokenSecret string `yaml:"token_secret"`
	RawTokenTTL string `yaml:"token_ttl"`
	Debug       bool   `yaml:"debug"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`

	MaxAnswerLength int `yaml:"max_answer_length"`
	MaxSelections   int `yaml:"max_selections"`

	TokenTTL time.Duration `yaml:"-"`
}

// Default returns the configuration used when neither a file nor flags say otherwise.
func Default() Config {
	cfg := Config{
		Addr:            net.JoinHostPort("0.0.0.0", "80"),
		DBUrl:           "surveydesk.sqlite",
		RawTokenTTL:     "2m",
		MaxAnswerLength: 255,
		MaxSelections:   50,
	}
	cfg.Redis.TTL = "10m"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not an error
// when path is empty.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, cfg.finish()
}

// SetListen rebuilds Addr from separate host and port values, as passed on the command line.
func (cfg *Config) SetListen(host string, port uint) {
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
}

func (cfg *Config) finish() error {
	if _, err := ParseDuration(cfg.RawTokenTTL); err != nil {
		return fmt.Errorf("token_ttl: %w", err)
	}
	if _, err := ParseDuration(cfg.Redis.TTL); err != nil {
		return fmt.Errorf("redis.ttl: %w", err)
	}
	cfg.TokenTTL = Duration(cfg.RawTokenTTL, 2*time.Minute)
	if cfg.MaxAnswerLength <= 0 {
		cfg.MaxAnswerLength = 255
	}
	if cfg.MaxSelections <= 0 {
		cfg.MaxSelections = 50
	}
	return nil
}

// Validate reports settings the server cannot start without.
func (cfg *Config) Validate() error {
	if err := cfg.finish(); err != nil {
		return err
	}
	if cfg.TokenSecret == "" {
		return errors.New("missing parameter -token-secret")
	}
	return nil
}

// RedisTTL is the answer cache expiry.
func (cfg Config) RedisTTL() time.Duration {
	return Duration(cfg.Redis.TTL, 10*time.Minute)
}

// ParseDuration reads a Go duration string. Bare integers are seconds; empty is zero.
func ParseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", raw)
	}
	return d, nil
}

// Duration is ParseDuration with a fallback for empty or malformed values.
// Load and Validate reject malformed values before this is reached.
func Duration(raw string, fallback time.Duration) time.Duration {
	d, err := ParseDuration(raw)
	if err != nil || raw == "" {
		return fallback
	}
	return d
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
