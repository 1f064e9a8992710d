// Package config loads, validates and merges the YAML audit configuration.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// SupportedVersions is the constraint every configuration version must satisfy.
const SupportedVersions = "^1"

// Config is the root of the configuration document.
type Config struct {
	Version string         `yaml:"version"`
	Sources []SourceConfig `yaml:"sources,omitempty"`
	Reports ReportsConfig  `yaml:"reports"`
	Audit   AuditConfig    `yaml:"audit"`
}

// SourceConfig declares one audited source.
type SourceConfig struct {
	Name           string                 `yaml:"name"`
	Kind           string                 `yaml:"kind"`
	Loader         LoaderConfig           `yaml:"loader"`
	RequiredFields []string               `yaml:"required_fields,omitempty"`
	KeyFields      []string               `yaml:"key_fields,omitempty"`
	Enums          map[string][]string    `yaml:"enums,omitempty"`
	Ranges         map[string]RangeConfig `yaml:"ranges,omitempty"`
	Rules          []RuleConfig           `yaml:"rules,omitempty"`
	Thresholds     ThresholdsConfig       `yaml:"thresholds,omitempty"`
}

type LoaderConfig struct {
	Type  string `yaml:"type,omitempty"`
	Path  string `yaml:"path,omitempty"`
	Table string `yaml:"table,omitempty"`
}

type RangeConfig struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

type RuleConfig struct {
	Name    string `yaml:"name"`
	Expr    string `yaml:"expr"`
	Message string `yaml:"message,omitempty"`
}

type ThresholdsConfig struct {
	ProximityMinutes  *float64 `yaml:"proximity_minutes,omitempty"`
	StalenessDays     *float64 `yaml:"staleness_days,omitempty"`
	ExpiryWarningDays *float64 `yaml:"expiry_warning_days,omitempty"`
	MovementThreshold *float64 `yaml:"movement_threshold,omitempty"`
}

type ReportsConfig struct {
	OutputDir string   `yaml:"output_dir"`
	Formats   []string `yaml:"formats"`
}

type AuditConfig struct {
	Workers int `yaml:"workers"`
}

// ConfigurationError means the configuration could not be used. It is fatal.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Default returns the configuration used when none is given: every built-in kind with
// no data path, and all report formats.
func Default() Config {
	return Config{
		Version: "1.0.0",
		Sources: []SourceConfig{
			{
				Name:   "match_results",
				Kind:   "match_results",
				Loader: LoaderConfig{Type: "csv"},
				Enums:  map[string][]string{"circuit": {"ATP", "Challenger", "ITF"}},
			},
			{Name: "match_stats", Kind: "match_stats", Loader: LoaderConfig{Type: "csv"}},
			{Name: "pre_match_odds", Kind: "pre_match_odds", Loader: LoaderConfig{Type: "csv"}},
			{Name: "venue_metadata", Kind: "venue_metadata", Loader: LoaderConfig{Type: "csv"}},
			{Name: "license_status", Kind: "license_status", Loader: LoaderConfig{Type: "csv"}},
		},
		Reports: ReportsConfig{OutputDir: ".", Formats: []string{"json", "csv", "markdown"}},
		Audit:   AuditConfig{Workers: 1},
	}
}

// Load reads path and merges it over Default. Sources listed in the file replace the
// defaults of the same name.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigurationError{Path: path, Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, &ConfigurationError{Path: path, Err: err}
	}
	return Merge(Default(), cfg), nil
}

// Parse validates and decodes a YAML document without applying defaults.
func Parse(data []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return Config{}, errors.New("configuration is empty")
	}
	if err := validateSchema(doc); err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks what the schema cannot express.
func (c Config) Validate() error {
	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("version %q: %w", c.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("version %s is not supported (want %s)", v, SupportedVersions)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.Loader.Type == "sqlite" && s.Loader.Path != "" && s.Loader.Table == "" {
			return fmt.Errorf("source %s: sqlite loader needs a table", s.Name)
		}
		for field, r := range s.Ranges {
			if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
				return fmt.Errorf("source %s: range for %s has min > max", s.Name, field)
			}
		}
	}
	return nil
}

// Save writes cfg as YAML.
func Save(cfg Config, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	return nil
}

// Merge overlays override on base. Sources are matched by name: a matching source is
// replaced in place, a new one is appended. Empty scalar fields keep the base value.
func Merge(base, override Config) Config {
	out := base
	if override.Version != "" {
		out.Version = override.Version
	}

	out.Sources = append([]SourceConfig(nil), base.Sources...)
	for _, s := range override.Sources {
		replaced := false
		for i := range out.Sources {
			if out.Sources[i].Name == s.Name {
				out.Sources[i] = s
				replaced = true
				break
			}
		}
		if !replaced {
			out.Sources = append(out.Sources, s)
		}
	}

	if override.Reports.OutputDir != "" {
		out.Reports.OutputDir = override.Reports.OutputDir
	}
	if len(override.Reports.Formats) > 0 {
		out.Reports.Formats = append([]string(nil), override.Reports.Formats...)
	}
	if override.Audit.Workers > 0 {
		out.Audit.Workers = override.Audit.Workers
	}
	return out
}

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://ciphercourt.local/schemas/config.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("config schema load failed: %w", err)
	}
	return c.Compile(schemaURL)
})

// validateSchema round-trips the YAML tree through JSON so the validator sees JSON types.
func validateSchema(doc any) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert configuration: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("convert configuration: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
