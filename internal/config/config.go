// Package config loads and validates the lorekeeper configuration from
// .lorekeeper.yml with LOREKEEPER_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// DefaultPath is the conventional config file location.
const DefaultPath = ".lorekeeper.yml"

// envKeyOverrides maps flattened LOREKEEPER_* variable names onto their
// nested config keys.
var envKeyOverrides = map[string]string{
	"chunk_size":                "chunk.size",
	"chunk_overlap":             "chunk.overlap",
	"chunk_min_length":          "chunk.min_length",
	"spoiler_strict_unnumbered": "spoiler.strict_unnumbered",
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (LOREKEEPER_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// LOREKEEPER_PORT -> port, LOREKEEPER_CHUNK_SIZE -> chunk.size, etc.
	if err := k.Load(env.Provider("LOREKEEPER_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LOREKEEPER_"))
		if mapped, ok := envKeyOverrides[key]; ok {
			return mapped
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized embedding provider values.
var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if !validProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if c.EmbeddingProvider == ProviderOllama && c.OllamaBaseURL == "" {
		return fmt.Errorf("ollama_base_url is required for the ollama provider")
	}
	if c.Chunk.Size <= 0 {
		return fmt.Errorf("chunk.size must be positive")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be non-negative and smaller than chunk.size")
	}
	if c.Chunk.MinLength < 0 {
		return fmt.Errorf("chunk.min_length must be non-negative")
	}
	if c.RebuildThreshold < 0 || c.RebuildThreshold >= 1 {
		return fmt.Errorf("rebuild_threshold must be in [0, 1)")
	}
	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for the
// API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
