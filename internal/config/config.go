package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/joho/godotenv"
	"github.com/studiowebux/apitest/internal/types"
	"github.com/studiowebux/apitest/internal/version"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load. The AT_ prefix marks apitest settings.
const (
	EnvConfigFile     = "AT_CONFIG_FILE"
	EnvVerbose        = "AT_VERBOSE"
	EnvLogLevel       = "AT_LOG_LEVEL"
	EnvDefaultTimeout = "AT_DEFAULT_TIMEOUT"
	EnvListenAddr     = "AT_LISTEN_ADDR"
	EnvSampleAddr     = "AT_SAMPLE_ADDR"
	EnvMaxBodyBytes   = "AT_MAX_BODY_BYTES"
	EnvUserAgent      = "AT_USER_AGENT"
	EnvReleasesURL    = "AT_RELEASES_URL"
)

const (
	// DefaultListenAddr is where `apitest serve` listens
	DefaultListenAddr = "127.0.0.1:8088"
	// DefaultSampleAddr is where `apitest sample-api` listens
	DefaultSampleAddr = "127.0.0.1:8000"
	// DefaultMaxBodyBytes caps request specs posted to the server (1 MiB)
	DefaultMaxBodyBytes = 1 << 20
)

// Config is built once at startup and passed to every component that needs it
type Config struct {
	Verbose        bool    `yaml:"verbose"`
	LogLevel       string  `yaml:"log_level"`
	DefaultTimeout float64 `yaml:"default_timeout"` // seconds
	ListenAddr     string  `yaml:"listen_addr"`
	SampleAddr     string  `yaml:"sample_addr"`
	MaxBodyBytes   int64   `yaml:"max_body_bytes"`
	UserAgent      string  `yaml:"user_agent"`
	ReleasesURL    string  `yaml:"releases_url"` // release feed queried by `version --check`

	// File is the YAML file the config was read from, empty when none was used
	File string `yaml:"-"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		DefaultTimeout: types.DefaultTimeoutSeconds,
		ListenAddr:     DefaultListenAddr,
		SampleAddr:     DefaultSampleAddr,
		MaxBodyBytes:   DefaultMaxBodyBytes,
		UserAgent:      version.UserAgent(),
		ReleasesURL:    version.ReleasesURL,
	}
}

// Load builds the configuration.
//
// Precedence, lowest first: defaults, YAML config file, .env files, process
// environment. .env files never override variables already set in the
// environment. A missing ./.env is ignored; a missing file in envFiles is an error.
func Load(envFiles ...string) (*Config, error) {
	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	cfg := Default()

	path, err := configFilePath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	if c.DefaultTimeout <= 0 {
		return errors.Errorf("default timeout must be positive, got %g", c.DefaultTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

func loadDotEnv(envFiles []string) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return errors.Wrap(err, "failed to load .env")
		}
	}

	for _, file := range envFiles {
		if file == "" {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return errors.Wrapf(err, "failed to load env file %s", file)
		}
	}
	return nil
}

// configFilePath returns AT_CONFIG_FILE when set, otherwise ~/.apitest/config.yaml
// if it exists, otherwise ""
func configFilePath() (string, error) {
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		return expandHome(path)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", nil
	}
	path := filepath.Join(homeDir, ".apitest", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, path[2:]), nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookup(EnvVerbose); ok {
		c.Verbose = parseBool(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvDefaultTimeout); ok {
		timeout, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvDefaultTimeout)
		}
		c.DefaultTimeout = timeout
	}
	if v, ok := lookup(EnvListenAddr); ok {
		c.ListenAddr = v
	}
	if v, ok := lookup(EnvSampleAddr); ok {
		c.SampleAddr = v
	}
	if v, ok := lookup(EnvMaxBodyBytes); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvMaxBodyBytes)
		}
		c.MaxBodyBytes = n
	}
	if v, ok := lookup(EnvUserAgent); ok {
		c.UserAgent = v
	}
	if v, ok := lookup(EnvReleasesURL); ok {
		c.ReleasesURL = v
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// parseBool accepts "true", "1" and "t" in any case
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "1", "t":
		return true
	}
	return false
}
