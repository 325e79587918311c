package config

// embeddingPresets maps each provider to its default embedding model.
var embeddingPresets = map[ProviderType]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:              8080,
		DataDir:           ".lorekeeper",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    embeddingPresets[ProviderOpenAI],
		OllamaBaseURL:     "http://localhost:11434",
		Chunk: ChunkConfig{
			Size:      1000,
			Overlap:   200,
			MinLength: 15,
		},
		Spoiler:          SpoilerConfig{StrictUnnumbered: false},
		RebuildThreshold: 0.2,
	}
}

// DefaultEmbeddingModel returns the default model for a provider, falling
// back to the OpenAI preset for unknown values.
func DefaultEmbeddingModel(provider ProviderType) string {
	if model, ok := embeddingPresets[provider]; ok {
		return model
	}
	return embeddingPresets[ProviderOpenAI]
}
