package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Log formats accepted in Defaults.LogFormat.
const (
	LogFormatAuto = "auto"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Settings is the content of config.yaml.
type Settings struct {
	Defaults Defaults `yaml:"defaults"`
}

// Defaults are fallbacks for command flags.
type Defaults struct {
	// InfraTemplateURI is the template source used when --template-uri is
	// not given to infra install.
	InfraTemplateURI string `yaml:"infra_template_uri,omitempty"`

	// Version is the template ref used when --version is not given.
	Version string `yaml:"version,omitempty"`

	// LogFormat is auto, text or json.
	LogFormat string `yaml:"log_format,omitempty"`
}

// LoadSettings reads path. A missing file yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks enumerated fields.
func (s *Settings) Validate() error {
	switch s.Defaults.LogFormat {
	case "", LogFormatAuto, LogFormatText, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("log_format must be %s, %s or %s, got %q", LogFormatAuto, LogFormatText, LogFormatJSON, s.Defaults.LogFormat)
	}
}
