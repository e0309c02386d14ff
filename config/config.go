// Package config loads the client and tool configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file named by the
// caller or ONE_RPC_CONFIG, then ONE_RPC_* environment variables. Commands
// apply their flags on top and call Validate again.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"one-rpc/one"
)

const envPrefix = "ONE_RPC_"

type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	ContentType string        `yaml:"content_type"`

	User   string `yaml:"user"`
	Secret string `yaml:"secret"` // password or login token

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	EtcdEndpoints []string `yaml:"etcd_endpoints"`
	Service       string   `yaml:"service"`
	Balancer      string   `yaml:"balancer"`

	RateLimit      float64       `yaml:"rate_limit"` // calls per second, 0 = unlimited
	RateBurst      int           `yaml:"rate_burst"`
	MaxRetries     int           `yaml:"max_retries"` // transport errors only, 0 = off
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	ListenAddr string `yaml:"listen_addr"` // one-mock
}

func Default() Config {
	return Config{
		Endpoint:       "http://localhost:2633/RPC2",
		Timeout:        30 * time.Second,
		ContentType:    "application/xml",
		LogLevel:       "info",
		Service:        "one",
		Balancer:       "round_robin",
		RateBurst:      1,
		RetryBaseDelay: 200 * time.Millisecond,
		ListenAddr:     ":2633",
	}
}

// Load builds a Config. path may be empty; ONE_RPC_CONFIG is used then, and
// no file at all is fine.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(envPrefix + "CONFIG"))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Endpoint = env("ENDPOINT", c.Endpoint)
	c.ContentType = env("CONTENT_TYPE", c.ContentType)
	c.User = env("USER", c.User)
	c.Secret = env("SECRET", c.Secret)
	c.LogLevel = env("LOG_LEVEL", c.LogLevel)
	c.Service = env("SERVICE", c.Service)
	c.Balancer = env("BALANCER", c.Balancer)
	c.ListenAddr = env("LISTEN_ADDR", c.ListenAddr)
	if v := env("ETCD_ENDPOINTS", ""); v != "" {
		c.EtcdEndpoints = splitList(v)
	}

	var err error
	if c.Timeout, err = envDuration("TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.RetryBaseDelay, err = envDuration("RETRY_BASE_DELAY", c.RetryBaseDelay); err != nil {
		return err
	}
	if c.LogJSON, err = envBool("LOG_JSON", c.LogJSON); err != nil {
		return err
	}
	if c.RateBurst, err = envInt("RATE_BURST", c.RateBurst); err != nil {
		return err
	}
	if c.MaxRetries, err = envInt("MAX_RETRIES", c.MaxRetries); err != nil {
		return err
	}
	if c.RateLimit, err = envFloat("RATE_LIMIT", c.RateLimit); err != nil {
		return err
	}
	return nil
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	if len(c.EtcdEndpoints) == 0 {
		if c.Endpoint == "" {
			return errors.New("ONE_RPC_ENDPOINT is required without etcd discovery")
		}
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("endpoint %q is not an http(s) URL", c.Endpoint)
		}
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	switch c.ContentType {
	case "application/xml", "text/xml":
	default:
		return fmt.Errorf("content type %q: want application/xml or text/xml", c.ContentType)
	}
	switch c.Balancer {
	case "round_robin", "weighted_random", "consistent_hash":
	default:
		return fmt.Errorf("unknown balancer %q", c.Balancer)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return errors.New("rate burst must be at least 1")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if c.MaxRetries > 0 && c.RetryBaseDelay <= 0 {
		return errors.New("retry base delay must be positive")
	}
	if c.User != "" && strings.Contains(c.User, ":") {
		return errors.New("user must not contain ':'")
	}
	return nil
}

// Credential returns "<user>:<secret>" from the config.
func (c Config) Credential() (string, error) {
	if c.User == "" {
		return "", errors.New("ONE_RPC_USER is required")
	}
	return one.Credential(c.User, c.Secret), nil
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) (int, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return i, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	switch strings.ToLower(env(key, "")) {
	case "":
		return fallback, nil
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s%s: not a boolean", envPrefix, key)
	}
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
