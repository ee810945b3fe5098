// Package config loads proofcore's configuration from a YAML file,
// with ${VAR_NAME} / ${VAR_NAME:-default} environment variable
// substitution and environment-only defaults for running without any
// config file at all.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the proofcore CLI and its
// components.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	LedgerDB  string          `yaml:"ledger_db"`
	BundleDir string          `yaml:"bundle_dir"`
	Logging   LoggingSettings `yaml:"logging"`
	Signing   SigningSettings `yaml:"signing"`
	Gate      GateSettings    `yaml:"gate"`
}

// LoggingSettings controls the ambient structured logging component.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// SigningSettings locates keys used to sign and verify manifests.
type SigningSettings struct {
	SeedPath      string `yaml:"seed_path"`
	KnownKeysPath string `yaml:"known_keys_path"`
}

// GateSettings holds the default temporal gating policy.
type GateSettings struct {
	DefaultPolicy string `yaml:"default_policy"`
}

// Duration wraps time.Duration for YAML unmarshaling in the ${VAR}
// environment-variable-substituted config format.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// defaults returns a Config populated entirely from environment
// variables, used when no config file is given.
func defaults() *Config {
	return &Config{
		DataDir:   getEnv("PROOFCORE_DATA_DIR", "./data"),
		LedgerDB:  getEnv("PROOFCORE_LEDGER_DB", "./data/ledger.sqlite"),
		BundleDir: getEnv("PROOFCORE_BUNDLE_DIR", "./data/bundles"),
		Logging: LoggingSettings{
			Level:  getEnv("PROOFCORE_LOG_LEVEL", "info"),
			Output: getEnv("PROOFCORE_LOG_OUTPUT", "stderr"),
		},
		Signing: SigningSettings{
			SeedPath:      getEnv("PROOFCORE_SEED_PATH", ""),
			KnownKeysPath: getEnv("PROOFCORE_KNOWN_KEY", ""),
		},
		Gate: GateSettings{
			DefaultPolicy: getEnv("PROOFCORE_GATE_POLICY", "none"),
		},
	}
}

// Load reads configuration from a YAML file at path, expanding
// ${VAR_NAME} and ${VAR_NAME:-default} references against the process
// environment before parsing. An empty path returns the
// environment-only defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return defaults(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	expanded := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var problems []string

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug/info/warn/error", c.Logging.Level))
	}

	switch c.Gate.DefaultPolicy {
	case "strict", "none":
	default:
		problems = append(problems, fmt.Sprintf("gate.default_policy %q is not one of strict/none", c.Gate.DefaultPolicy))
	}

	if c.LedgerDB == "" {
		problems = append(problems, "ledger_db must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} with
// environment variable values, falling back to the named default (or
// the empty string) when the variable is unset.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
