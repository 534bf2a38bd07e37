package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/nishad/epibac/internal/errors"
	"github.com/nishad/epibac/internal/paths"
	"gopkg.in/yaml.v3"
)

// Config represents the epibac configuration. It is built once by the
// caller and passed down by value; nothing re-reads it mid-run.
type Config struct {
	Mode       string           `yaml:"mode"`     // normal | gva
	RunName    string           `yaml:"run_name"` // AAMMDD_HOSPXXX, gva only
	Params     ParamsConfig     `yaml:"params"`
	Species    SpeciesList      `yaml:"species,omitempty"`
	Validation ValidationConfig `yaml:"validation"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ParamsConfig holds per-tool parameters forwarded to the pipeline
type ParamsConfig struct {
	Nanopore NanoporeParams `yaml:"nanopore"`
}

// NanoporeParams configures long-read basecalling
type NanoporeParams struct {
	DoradoModel string   `yaml:"dorado_model"`
	KnownModels []string `yaml:"known_models,omitempty"` // accepted in addition to the built-in list
}

// ValidationConfig tunes the severity and depth of manifest checks
type ValidationConfig struct {
	MissingFileSeverity string `yaml:"missing_file_severity"` // warning | error
	CheckFutureDates    bool   `yaml:"check_future_dates"`
	ProbeFastq          bool   `yaml:"probe_fastq"` // gzip/FASTQ header sniffing
}

// StorageConfig controls the validation history database
type StorageConfig struct {
	HistoryEnabled bool   `yaml:"history_enabled"`
	HistoryPath    string `yaml:"history_path"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// SpeciesList is the configured species allow-list. In YAML it may be
// written either as a sequence of names or as a mapping whose keys are
// the names (per-species settings are ignored here).
type SpeciesList []string

// UnmarshalYAML accepts both the sequence and the mapping form.
func (s *SpeciesList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*s = names
	case yaml.MappingNode:
		names := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			names = append(names, node.Content[i].Value)
		}
		*s = names
	case yaml.ScalarNode:
		if node.Tag != "!!null" && strings.TrimSpace(node.Value) != "" {
			return fmt.Errorf("line %d: species must be a list or a mapping", node.Line)
		}
		*s = nil
	default:
		return fmt.Errorf("line %d: species must be a list or a mapping", node.Line)
	}
	return nil
}

// Contains reports whether name is in the allow-list.
func (s SpeciesList) Contains(name string) bool {
	for _, v := range s {
		if v == name {
			return true
		}
	}
	return false
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Mode: "normal",
		Validation: ValidationConfig{
			MissingFileSeverity: "warning",
			CheckFutureDates:    true,
			ProbeFastq:          true,
		},
		Storage: StorageConfig{
			HistoryEnabled: true,
			HistoryPath:    paths.GetHistoryPath(),
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a file. A missing file yields the
// defaults; a file that cannot be read or parsed is a KindConfig error.
func Load(path string) (*Config, error) {
	const op apperrors.Op = "config.Load"

	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindConfig, err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, apperrors.E(op, apperrors.KindConfig, err, "failed to parse config file")
	}

	config.Storage.HistoryPath = expandPath(config.Storage.HistoryPath)
	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))
	config.RunName = strings.TrimSpace(config.RunName)

	if err := config.Validate(); err != nil {
		return nil, apperrors.E(op, apperrors.KindConfig, err, "invalid config file")
	}

	return config, nil
}

// Validate checks settings that have a closed set of values. The mode and
// run name are checked by the schema resolver so they surface as
// validation findings rather than config errors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Validation.MissingFileSeverity) {
	case "", "warning", "error":
	default:
		return fmt.Errorf("validation.missing_file_severity must be 'warning' or 'error', got %q",
			c.Validation.MissingFileSeverity)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json', got %q", c.Logging.Format)
	}
	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file to use when none is given on the
// command line.
func GetConfigPath() string {
	if path := os.Getenv("EPIBAC_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	return paths.GetConfigFile()
}

// HasNanoporeModel reports whether a global basecalling model is set.
func (c *Config) HasNanoporeModel() bool {
	return strings.TrimSpace(c.Params.Nanopore.DoradoModel) != ""
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}

	return path
}
