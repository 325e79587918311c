package config

import "path/filepath"

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level lorekeeper configuration, corresponding to
// .lorekeeper.yml.
type Config struct {
	Port              int           `yaml:"port" koanf:"port"`
	DataDir           string        `yaml:"data_dir" koanf:"data_dir"`
	EmbeddingProvider ProviderType  `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string        `yaml:"embedding_model" koanf:"embedding_model"`
	OllamaBaseURL     string        `yaml:"ollama_base_url" koanf:"ollama_base_url"`
	Chunk             ChunkConfig   `yaml:"chunk" koanf:"chunk"`
	Spoiler           SpoilerConfig `yaml:"spoiler" koanf:"spoiler"`
	RebuildThreshold  float64       `yaml:"rebuild_threshold" koanf:"rebuild_threshold"`
}

// ChunkConfig controls how section text is split.
type ChunkConfig struct {
	Size      int `yaml:"size" koanf:"size"`
	Overlap   int `yaml:"overlap" koanf:"overlap"`
	MinLength int `yaml:"min_length" koanf:"min_length"`
}

// SpoilerConfig controls retrieval gating behavior.
type SpoilerConfig struct {
	// StrictUnnumbered blocks chapters whose number could not be inferred
	// when a max-chapter filter is active.
	StrictUnnumbered bool `yaml:"strict_unnumbered" koanf:"strict_unnumbered"`
}

// DatabasePath returns the SQLite file location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "lorekeeper.db")
}

// IndexDir returns where the vector index export lives.
func (c *Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}

// ManifestDir returns where manifest.json and deleted_ids.json live.
func (c *Config) ManifestDir() string {
	return c.DataDir
}
