package cmd

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/lorekeeper/internal/chunker"
	"github.com/ziadkadry99/lorekeeper/internal/config"
	"github.com/ziadkadry99/lorekeeper/internal/db"
	"github.com/ziadkadry99/lorekeeper/internal/embeddings"
	"github.com/ziadkadry99/lorekeeper/internal/library"
	"github.com/ziadkadry99/lorekeeper/internal/lifecycle"
	"github.com/ziadkadry99/lorekeeper/internal/manifest"
	"github.com/ziadkadry99/lorekeeper/internal/splitter"
	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `lorekeeper init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newEmbedder creates an embeddings.Embedder based on config.
func newEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, cfg.OllamaBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// components bundles the stores every command needs.
type components struct {
	cfg       *config.Config
	database  *db.DB
	manifest  *manifest.Store
	index     *vectorindex.Manager
	lifecycle *lifecycle.Manager
}

// openComponents wires the full stack from config: database, manifest,
// vector index (loading any persisted export) and the lifecycle manager.
func openComponents(cfg *config.Config) (*components, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	man, err := manifest.Open(cfg.ManifestDir())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	index, err := vectorindex.New(embedder, man,
		vectorindex.WithPersistDir(cfg.IndexDir()),
		vectorindex.WithStrictUnnumbered(cfg.Spoiler.StrictUnnumbered),
		vectorindex.WithRebuildThreshold(cfg.RebuildThreshold),
	)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	builder := chunker.NewBuilder(
		chunker.WithSplitter(splitter.New(
			splitter.WithChunkSize(cfg.Chunk.Size),
			splitter.WithOverlap(cfg.Chunk.Overlap),
		)),
		chunker.WithMinLength(cfg.Chunk.MinLength),
	)

	return &components{
		cfg:       cfg,
		database:  database,
		manifest:  man,
		index:     index,
		lifecycle: lifecycle.NewManager(library.NewStore(database), index, man, builder),
	}, nil
}

// Close releases the underlying resources.
func (c *components) Close() {
	c.database.Close()
}
