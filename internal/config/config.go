package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	LogLevel    string       `yaml:"logLevel"`
	Locals      []string     `yaml:"locals"`
	InitialView string       `yaml:"initialView"`
	Views       []ViewConfig `yaml:"views"`
	Telemetry   Telemetry    `yaml:"telemetry"`
}

// Telemetry toggles the in-process counters exposed over the control socket.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// ViewConfig declares a named view and its ownership rules. Weight is kept
// as the raw YAML scalar; non-integer values degrade to zero when compiled.
type ViewConfig struct {
	Name   string       `yaml:"name"`
	Weight any          `yaml:"weight"`
	Rules  []RuleConfig `yaml:"rules"`
}

// RuleConfig declares one scored rule. Exactly one of Name, Path or Category
// selects the rule kind.
type RuleConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Category string `yaml:"category"`
	Score    any    `yaml:"score"`
}

// Kinds lists the rule kinds set on the rule, in declaration order.
func (r RuleConfig) Kinds() []string {
	kinds := make([]string, 0, 1)
	if r.Name != "" {
		kinds = append(kinds, "name")
	}
	if r.Path != "" {
		kinds = append(kinds, "path")
	}
	if r.Category != "" {
		kinds = append(kinds, "category")
	}
	return kinds
}

// UnmarshalYAML accepts the legacy `locals` spelling `localVariables`.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		LogLevel       string       `yaml:"logLevel"`
		Locals         []string     `yaml:"locals"`
		LocalVariables []string     `yaml:"localVariables"`
		InitialView    string       `yaml:"initialView"`
		Views          []ViewConfig `yaml:"views"`
		Telemetry      Telemetry    `yaml:"telemetry"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.LogLevel = raw.LogLevel
	c.InitialView = raw.InitialView
	c.Views = raw.Views
	c.Telemetry = raw.Telemetry

	switch {
	case raw.Locals != nil:
		c.Locals = raw.Locals
	case raw.LocalVariables != nil:
		c.Locals = raw.LocalVariables
	default:
		c.Locals = nil
	}
	return nil
}

// Parse decodes a configuration document and applies defaults without
// validating it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads and validates a configuration file. The raw bytes are returned
// alongside the decoded config so callers can diff later revisions.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, data, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
}

// Validate returns the first lint error, if any.
func (c *Config) Validate() error {
	if errs := c.Lint(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
