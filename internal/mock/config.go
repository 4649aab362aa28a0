package mock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads a sample API configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config Config

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse YAML config")
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSON config")
		}
	default:
		return nil, errors.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	if err := validateConfig(&config); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &config, nil
}

// validateConfig validates the sample API configuration
func validateConfig(config *Config) error {
	switch config.Variant {
	case "", VariantReal, VariantDefect:
	default:
		return errors.Errorf("variant must be '%s' or '%s', got '%s'", VariantReal, VariantDefect, config.Variant)
	}

	for email, password := range config.Users {
		if email == "" {
			return errors.New("user email cannot be empty")
		}
		if password == "" {
			return errors.Errorf("user %s: password is required", email)
		}
	}

	return nil
}
