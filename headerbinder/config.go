package headerbinder

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes a binder in serializable form
type Config struct {
	// Headers lists the bindings in declaration order
	Headers []HeaderBinding `json:"headers" yaml:"headers"`
	// OptionalPolicy is "strict" (the default) or "lenient"
	OptionalPolicy string `json:"optional_policy" yaml:"optional_policy"`
	// SkipPaths defines paths exempt from resolution
	SkipPaths []string `json:"skip_paths" yaml:"skip_paths"`
	// Debug enables debug logging
	Debug bool `json:"debug" yaml:"debug"`
}

// LoadConfigFromFile loads configuration from a file (JSON or YAML)
func LoadConfigFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, &config); err != nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as YAML or JSON: %w", err)
		}
	}

	return &config, nil
}

// SaveConfigToFile saves configuration to a file
func SaveConfigToFile(config *Config, filename string, format string) error {
	var data []byte
	var err error

	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(config)
	case "json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

// parsePolicy maps a configuration policy name to an OptionalPolicy
func parsePolicy(name string) (OptionalPolicy, error) {
	switch name {
	case "", "strict":
		return OptionalStrict, nil
	case "lenient":
		return OptionalLenient, nil
	}
	return OptionalStrict, fmt.Errorf("unknown optional policy %q", name)
}

// ValidateConfig performs comprehensive configuration validation
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration is nil")
	}

	if _, err := parsePolicy(config.OptionalPolicy); err != nil {
		return err
	}

	for i, binding := range config.Headers {
		if binding.Name == "" {
			return fmt.Errorf("binding %d: header name cannot be empty", i)
		}
		if binding.Parse != nil || binding.Type == "" {
			continue
		}
		if _, ok := LookupParser(binding.Type); !ok {
			return fmt.Errorf("binding %d (%s): unknown parser type %q", i, binding.Name, binding.Type)
		}
	}

	return nil
}

// NewBinderFromConfig builds a Binder from a configuration, resolving parser
// type names through the registry. Bindings without a type parse as strings.
func NewBinderFromConfig(config *Config) (*Binder, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration is nil")
	}

	policy, err := parsePolicy(config.OptionalPolicy)
	if err != nil {
		return nil, err
	}

	bindings := make([]HeaderBinding, 0, len(config.Headers))
	for _, binding := range config.Headers {
		if binding.Parse == nil && binding.Type == "" {
			binding.Type = "string"
		}
		bindings = append(bindings, binding)
	}

	schema, err := NewSchema(policy, bindings...)
	if err != nil {
		return nil, err
	}

	binder := NewBinder(schema)
	for _, path := range config.SkipPaths {
		binder.skipPaths[path] = true
	}
	binder.debug = config.Debug
	return binder, nil
}

// ConfigBuilder helps build configurations programmatically
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{
			Headers: make([]HeaderBinding, 0),
		},
	}
}

// WithHeaders sets the header bindings
func (cb *ConfigBuilder) WithHeaders(bindings []HeaderBinding) *ConfigBuilder {
	cb.config.Headers = bindings
	return cb
}

// AddHeader adds a single header binding
func (cb *ConfigBuilder) AddHeader(binding HeaderBinding) *ConfigBuilder {
	cb.config.Headers = append(cb.config.Headers, binding)
	return cb
}

// WithOptionalPolicy sets the optional policy name
func (cb *ConfigBuilder) WithOptionalPolicy(policy string) *ConfigBuilder {
	cb.config.OptionalPolicy = policy
	return cb
}

// WithSkipPaths sets the paths to skip
func (cb *ConfigBuilder) WithSkipPaths(paths []string) *ConfigBuilder {
	cb.config.SkipPaths = paths
	return cb
}

// WithDebug sets debug mode
func (cb *ConfigBuilder) WithDebug(debug bool) *ConfigBuilder {
	cb.config.Debug = debug
	return cb
}

// Build returns the built configuration
func (cb *ConfigBuilder) Build() *Config {
	return cb.config
}
