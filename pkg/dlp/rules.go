package dlp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Rule masks one identifier pattern found in free-text request fields.
type Rule struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Mask    string `yaml:"mask" json:"mask"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

type RulesConfig struct {
	// DropFields are removed from logged input entirely, matched
	// case-insensitively.
	DropFields []string `yaml:"drop_fields" json:"drop_fields"`
	Rules      []Rule   `yaml:"rules" json:"rules"`
}

func LoadRules(path string) (RulesConfig, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return RulesConfig{}, fmt.Errorf("reading redaction rules: %w", err)
	}

	var cfg RulesConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return RulesConfig{}, fmt.Errorf("decoding redaction rules: %w", err)
	}
	if len(cfg.Rules) == 0 && len(cfg.DropFields) == 0 {
		return RulesConfig{}, errors.New("no redaction rules configured")
	}
	return cfg, nil
}

// DefaultRules drops direct identifiers a lab front-end may attach to a
// sample and masks common identifiers inside any remaining text value.
func DefaultRules() RulesConfig {
	return RulesConfig{
		DropFields: []string{"name", "patient_name", "patientName", "address", "phone", "email"},
		Rules: []Rule{
			{Name: "SSN", Type: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`, Mask: "***-**-****", Enabled: true},
			{Name: "DOB", Type: "dob", Pattern: `\b\d{1,2}/\d{1,2}/\d{4}\b`, Mask: "##/##/####", Enabled: true},
			{Name: "Email", Type: "email", Pattern: `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`, Mask: "***@***", Enabled: true},
			{Name: "Phone", Type: "phone", Pattern: `\b\d{3}-\d{3}-\d{4}\b|\(\d{3}\)\s?\d{3}-\d{4}`, Mask: "(***) ***-****", Enabled: true},
		},
	}
}
