// Package vectorindex owns the embedding index handle, the soft-delete set
// and the spoiler-aware retrieval predicate. It is the only component that
// talks to chromem, and the lifecycle manager is its only writer.
package vectorindex

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/lorekeeper/internal/chunker"
	"github.com/ziadkadry99/lorekeeper/internal/embeddings"
)

const collectionName = "library"

// indexFile is the on-disk export of the chromem collection.
const indexFile = "index.gob.gz"

// DefaultRebuildThreshold is the advisory deleted-ratio above which a
// rebuild is suggested.
const DefaultRebuildThreshold = 0.2

// deletedSetBias dampens the rebuild ratio for small deleted sets. The true
// chunk-level deletion ratio is not tracked, so the heuristic is advisory
// only.
const deletedSetBias = 10

// DeletedSet is the durable soft-delete set the manager consults and
// mutates. Membership is independent of the manifest entries.
type DeletedSet interface {
	IsDeleted(id string) bool
	MarkDeleted(id string) error
	RestoreDeleted(id string) error
	ClearDeleted() error
	DeletedSnapshot() map[string]struct{}
	DeletedCount() int
}

// Manager owns the vector collection and serves filtered retrieval.
type Manager struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc

	deleted    DeletedSet
	persistDir string

	// strictUnnumbered blocks Body chunks without an inferred chapter
	// number when a spoiler cap is active. The permissive default keeps
	// them retrievable.
	strictUnnumbered bool

	rebuildThreshold float64
}

// Option configures a Manager.
type Option func(*Manager)

// WithStrictUnnumbered makes unnumbered Body chunks fail an active chapter
// filter instead of passing it.
func WithStrictUnnumbered(strict bool) Option {
	return func(m *Manager) { m.strictUnnumbered = strict }
}

// WithPersistDir makes the manager export the collection to dir after every
// successful mutation and load it back on startup.
func WithPersistDir(dir string) Option {
	return func(m *Manager) { m.persistDir = dir }
}

// WithRebuildThreshold sets the deleted-ratio above which stats advise a
// rebuild. Values outside (0, 1) keep the default.
func WithRebuildThreshold(threshold float64) Option {
	return func(m *Manager) {
		if threshold > 0 && threshold < 1 {
			m.rebuildThreshold = threshold
		}
	}
}

// New creates a Manager over a fresh in-memory chromem collection. When a
// persist directory is configured and holds a prior export, it is loaded.
func New(embedder embeddings.Embedder, deleted DeletedSet, opts ...Option) (*Manager, error) {
	m := &Manager{
		embedFunc:        embeddings.ToChromemFunc(embedder),
		deleted:          deleted,
		rebuildThreshold: DefaultRebuildThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.db = chromem.NewDB()
	col, err := m.db.GetOrCreateCollection(collectionName, nil, m.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	m.collection = col

	if m.persistDir != "" {
		if err := m.load(); err != nil {
			if !os.IsNotExist(err) {
				log.Printf("vectorindex: could not load persisted index: %v (starting empty)", err)
			}
		}
	}
	return m, nil
}

// AddChunks embeds and stores a batch of chunks. The batch is all-or-nothing
// from the caller's perspective: on error nothing is recorded durably.
func (m *Manager) AddChunks(ctx context.Context, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:       c.ID,
			Content:  c.Text,
			Metadata: chunkMetadata(c),
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents to index: %w", err)
	}
	m.persistLocked()
	return nil
}

// RemoveDocument drops every chunk of one document from the collection.
// The lifecycle manager uses it to unwind a partially ingested document;
// routine removal stays soft via the deleted set.
func (m *Manager) RemoveDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.collection.Delete(ctx, map[string]string{metaDocumentID: documentID}, nil); err != nil {
		return fmt.Errorf("removing document %s from index: %w", documentID, err)
	}
	m.persistLocked()
	return nil
}

// Search runs a similarity query and applies the retrieval filter. The
// underlying index cannot filter natively, so the manager over-fetches a
// candidate pool and filters afterwards; an empty result is a valid,
// non-error outcome.
func (m *Manager) Search(ctx context.Context, query string, k int, f Filter) ([]Result, error) {
	if k <= 0 {
		k = 10
	}

	m.mu.RLock()
	col := m.collection
	m.mu.RUnlock()

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	fetchK := min(k*f.fetchMultiplier(), count)
	candidates, err := col.Query(ctx, query, fetchK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("index query: %w", err)
	}

	accept := m.predicate(f)
	results := make([]Result, 0, k)
	for _, cand := range candidates {
		if !accept(cand.Metadata) {
			continue
		}
		results = append(results, Result{
			Chunk:      metadataToChunk(cand.ID, cand.Content, cand.Metadata),
			Similarity: cand.Similarity,
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// SoftDelete marks a document's chunks unsearchable without removing them.
func (m *Manager) SoftDelete(id string) error {
	return m.deleted.MarkDeleted(id)
}

// Restore makes a soft-deleted document searchable again. No re-embedding
// happens: the chunks never left the index.
func (m *Manager) Restore(id string) error {
	return m.deleted.RestoreDeleted(id)
}

// IsDeleted reports whether a document is currently soft-deleted.
func (m *Manager) IsDeleted(id string) bool {
	return m.deleted.IsDeleted(id)
}

// RebuildFrom replaces the collection with one built from the given chunks.
// The replacement is assembled fully before the swap, so a failed rebuild
// leaves the previous index and deleted set intact. On success the deleted
// set is cleared: soft-deleted chunks no longer exist.
func (m *Manager) RebuildFrom(ctx context.Context, chunks []chunker.Chunk) error {
	newDB := chromem.NewDB()
	col, err := newDB.GetOrCreateCollection(collectionName, nil, m.embedFunc)
	if err != nil {
		return fmt.Errorf("create replacement collection: %w", err)
	}

	if len(chunks) > 0 {
		docs := make([]chromem.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = chromem.Document{
				ID:       c.ID,
				Content:  c.Text,
				Metadata: chunkMetadata(c),
			}
		}
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("populating replacement collection: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = newDB
	m.collection = col
	if err := m.deleted.ClearDeleted(); err != nil {
		return fmt.Errorf("clearing deleted set: %w", err)
	}
	m.persistLocked()
	return nil
}

// Clear wipes the index and the deleted set entirely.
func (m *Manager) Clear() error {
	newDB := chromem.NewDB()
	col, err := newDB.GetOrCreateCollection(collectionName, nil, m.embedFunc)
	if err != nil {
		return fmt.Errorf("create empty collection: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.db = newDB
	m.collection = col
	if err := m.deleted.ClearDeleted(); err != nil {
		return fmt.Errorf("clearing deleted set: %w", err)
	}
	m.persistLocked()
	return nil
}

// Count returns the number of chunks physically present in the index,
// including soft-deleted ones.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collection.Count()
}

// ShouldRebuild reports whether enough documents are soft-deleted that a
// rebuild would reclaim meaningful space. Advisory only. A non-positive
// threshold falls back to the configured one.
func (m *Manager) ShouldRebuild(threshold float64) bool {
	if threshold <= 0 {
		threshold = m.rebuildThreshold
	}
	if m.Count() == 0 {
		return false
	}
	deleted := m.deleted.DeletedCount()
	if deleted == 0 {
		return false
	}
	ratio := float64(deleted) / float64(deleted+deletedSetBias)
	return ratio > threshold
}

// Stats summarizes the index state.
type Stats struct {
	TotalChunks      int  `json:"total_chunks"`
	DeletedDocuments int  `json:"deleted_documents"`
	ShouldRebuild    bool `json:"should_rebuild"`
}

// IndexStats returns current index statistics.
func (m *Manager) IndexStats() Stats {
	return Stats{
		TotalChunks:      m.Count(),
		DeletedDocuments: m.deleted.DeletedCount(),
		ShouldRebuild:    m.ShouldRebuild(m.rebuildThreshold),
	}
}

// persistLocked exports the collection when persistence is configured.
// Export failure is logged, not fatal: the in-memory index stays valid and
// the next mutation retries.
func (m *Manager) persistLocked() {
	if m.persistDir == "" {
		return
	}
	if err := os.MkdirAll(m.persistDir, 0o755); err != nil {
		log.Printf("vectorindex: creating persist dir: %v", err)
		return
	}
	if err := m.db.ExportToFile(filepath.Join(m.persistDir, indexFile), true, ""); err != nil {
		log.Printf("vectorindex: exporting index: %v", err)
	}
}

func (m *Manager) load() error {
	path := filepath.Join(m.persistDir, indexFile)
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if err := m.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import from %s: %w", path, err)
	}
	col := m.db.GetCollection(collectionName, m.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q missing after import", collectionName)
	}
	m.collection = col
	return nil
}
