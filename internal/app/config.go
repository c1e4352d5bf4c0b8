package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPaths []string `yaml:"manifests"` // hcl service manifests and workflows
	PluginPaths   []string `yaml:"plugins"`   // loaded after manifests; may override services

	Workflow string            `yaml:"workflow"` // name of a loaded workflow to run
	Chain    string            `yaml:"chain"`    // delimited service list, e.g. "a,b|c"
	Args     map[string]string `yaml:"args"`

	LogFormat       string `yaml:"log_format"`
	LogLevel        string `yaml:"log_level"`
	HealthcheckPort int    `yaml:"healthcheck_port"`
	WorkerCount     int    `yaml:"workers"`
	LogsDir         string `yaml:"logs_dir"`
	LedgerPath      string `yaml:"ledger"`
	Strict          bool   `yaml:"strict"`

	// Argv is the command line that started the run, for run.json.
	Argv []string `yaml:"-"`
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Workflow != "" && cfg.Chain != "" {
		return nil, errors.New("workflow and chain are mutually exclusive")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("unknown log format '%s', expected text or json", cfg.LogFormat)
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// LoadConfigFile reads a YAML config file. Unknown keys are an error.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
