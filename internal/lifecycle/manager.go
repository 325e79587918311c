// Package lifecycle coordinates the document lifecycle end to end: ingest
// (detect structure, chunk, embed, record), soft delete, restore, and index
// rebuild. It is the write path; retrieval goes straight to the vector
// index.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ziadkadry99/lorekeeper/internal/chunker"
	"github.com/ziadkadry99/lorekeeper/internal/library"
	"github.com/ziadkadry99/lorekeeper/internal/manifest"
	"github.com/ziadkadry99/lorekeeper/internal/structure"
	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

var (
	// ErrNotFound means the document is unknown to the system.
	ErrNotFound = errors.New("document not found")
	// ErrEmptyContent rejects documents with no usable text.
	ErrEmptyContent = errors.New("document content is empty")
	// ErrRebuildRunning means a rebuild is already in flight.
	ErrRebuildRunning = errors.New("a rebuild is already running")
)

// Add outcome labels.
const (
	StatusProcessed = "processed"
	StatusRestored  = "restored"
	StatusExists    = "already_indexed"
)

// Manager owns the write path over the record store, the vector index and
// the manifest.
type Manager struct {
	records  *library.Store
	index    *vectorindex.Manager
	manifest *manifest.Store
	builder  *chunker.Builder

	// mu serializes rebuilds against everything else. Normal operations
	// take the read side; a rebuild takes the write side so it sees a
	// stable library.
	mu       sync.RWMutex
	docLocks sync.Map // document ID -> *sync.Mutex
	rebuilds *rebuildTracker
}

// NewManager assembles the lifecycle manager.
func NewManager(records *library.Store, index *vectorindex.Manager, man *manifest.Store, builder *chunker.Builder) *Manager {
	if builder == nil {
		builder = chunker.NewBuilder()
	}
	return &Manager{
		records:  records,
		index:    index,
		manifest: man,
		builder:  builder,
		rebuilds: newRebuildTracker(),
	}
}

// AddRequest describes a document to ingest. ID is optional: supplying the
// ID of a soft-deleted document restores it instead of re-processing.
type AddRequest struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	SourceType string `json:"source_type,omitempty"`
}

// AddResult reports what ingesting a document did.
type AddResult struct {
	Document   library.Document `json:"document"`
	Status     string           `json:"status"`
	ChunkCount int              `json:"chunk_count"`
	Sections   int              `json:"sections"`
}

// AddDocument ingests a document. A known soft-deleted ID is restored
// without re-embedding; a known live ID is an idempotent no-op. New content
// is recorded, structure-detected, chunked and indexed as one unit: on
// failure nothing is left behind.
func (m *Manager) AddDocument(ctx context.Context, req AddRequest) (*AddResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if req.ID != "" {
		unlock := m.lockDoc(req.ID)
		defer unlock()

		if m.manifest.IsDeleted(req.ID) {
			return m.restoreLocked(ctx, req.ID)
		}
		if _, ok := m.manifest.Entry(req.ID); ok {
			doc, err := m.records.GetByID(ctx, req.ID)
			if err != nil {
				return nil, err
			}
			if doc == nil {
				return nil, ErrNotFound
			}
			e, _ := m.manifest.Entry(req.ID)
			return &AddResult{Document: *doc, Status: StatusExists, ChunkCount: e.ChunkCount}, nil
		}
	}

	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if req.Title == "" {
		req.Title = titleFromFilename(req.Filename)
	}

	doc, err := m.records.Create(ctx, library.Document{
		ID:         req.ID,
		Title:      req.Title,
		Filename:   req.Filename,
		Content:    req.Content,
		SourceType: req.SourceType,
	})
	if err != nil {
		return nil, err
	}

	if req.ID == "" {
		unlock := m.lockDoc(doc.ID)
		defer unlock()
	}

	chunks, sections := m.buildChunks(*doc)
	if len(chunks) == 0 {
		// Content was all whitespace fragments below the chunk floor.
		if delErr := m.records.Delete(ctx, doc.ID); delErr != nil {
			log.Printf("lifecycle: cleaning up empty document %s: %v", doc.ID, delErr)
		}
		return nil, ErrEmptyContent
	}

	if err := m.index.AddChunks(ctx, chunks); err != nil {
		// Roll the record back so a failed embed leaves no orphan.
		if delErr := m.records.Delete(ctx, doc.ID); delErr != nil {
			log.Printf("lifecycle: rolling back document %s: %v", doc.ID, delErr)
		}
		return nil, fmt.Errorf("indexing document %q: %w", doc.Title, err)
	}

	if err := m.manifest.SetEntry(doc.ID, entryFor(*doc, chunks, manifest.EventProcessed)); err != nil {
		// Unwind the indexed chunks and the record too, so a retry starts
		// from nothing instead of tripping over a half-ingested document.
		if remErr := m.index.RemoveDocument(ctx, doc.ID); remErr != nil {
			log.Printf("lifecycle: unwinding index for %s: %v", doc.ID, remErr)
		}
		if delErr := m.records.Delete(ctx, doc.ID); delErr != nil {
			log.Printf("lifecycle: rolling back document %s: %v", doc.ID, delErr)
		}
		return nil, fmt.Errorf("recording manifest entry: %w", err)
	}

	return &AddResult{
		Document:   *doc,
		Status:     StatusProcessed,
		ChunkCount: len(chunks),
		Sections:   sections,
	}, nil
}

// ProcessDocument (re)ingests a document already present in the record
// store: restore if soft-deleted, no-op if indexed, full ingest otherwise.
func (m *Manager) ProcessDocument(ctx context.Context, id string) (*AddResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unlock := m.lockDoc(id)
	defer unlock()

	doc, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	if m.manifest.IsDeleted(id) {
		return m.restoreLocked(ctx, id)
	}
	if e, ok := m.manifest.Entry(id); ok {
		return &AddResult{Document: *doc, Status: StatusExists, ChunkCount: e.ChunkCount}, nil
	}

	chunks, sections := m.buildChunks(*doc)
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}
	if err := m.index.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("indexing document %q: %w", doc.Title, err)
	}
	if err := m.manifest.SetEntry(id, entryFor(*doc, chunks, manifest.EventProcessed)); err != nil {
		// The record pre-existed, so only the chunks are unwound; the next
		// process call re-ingests from the stored content.
		if remErr := m.index.RemoveDocument(ctx, id); remErr != nil {
			log.Printf("lifecycle: unwinding index for %s: %v", id, remErr)
		}
		return nil, fmt.Errorf("recording manifest entry: %w", err)
	}
	return &AddResult{Document: *doc, Status: StatusProcessed, ChunkCount: len(chunks), Sections: sections}, nil
}

// restoreLocked flips a soft-deleted document back to live. The chunks never
// left the index, so no re-embedding happens.
func (m *Manager) restoreLocked(ctx context.Context, id string) (*AddResult, error) {
	doc, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}

	if err := m.index.Restore(id); err != nil {
		return nil, fmt.Errorf("restoring document %s: %w", id, err)
	}
	if e, ok := m.manifest.Entry(id); ok {
		e.LastEvent = manifest.EventRestored
		e.LastEventAt = nowUTC()
		if err := m.manifest.SetEntry(id, e); err != nil {
			return nil, fmt.Errorf("recording restore: %w", err)
		}
		return &AddResult{Document: *doc, Status: StatusRestored, ChunkCount: e.ChunkCount}, nil
	}
	return &AddResult{Document: *doc, Status: StatusRestored}, nil
}

// DeleteDocument soft-deletes a document: its chunks stay in the index but
// stop matching searches. Deleting an already-deleted document is a no-op.
func (m *Manager) DeleteDocument(ctx context.Context, id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unlock := m.lockDoc(id)
	defer unlock()

	if _, ok := m.manifest.Entry(id); !ok {
		doc, err := m.records.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if doc == nil {
			return ErrNotFound
		}
	}
	return m.index.SoftDelete(id)
}

// DeleteAll wipes the library: records, index, manifest and deleted set.
func (m *Manager) DeleteAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.records.DeleteAll(ctx); err != nil {
		return err
	}
	if err := m.index.Clear(); err != nil {
		return err
	}
	return m.manifest.Clear()
}

// Rebuild re-chunks and re-embeds every live document into a fresh index and
// permanently drops soft-deleted ones. Per-document failures are logged and
// skipped; report, when non-nil, is called after each document.
func (m *Manager) Rebuild(ctx context.Context, report func(done, total int, title string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, err := m.records.List(ctx)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	var live []library.Document
	for _, d := range docs {
		if m.manifest.IsDeleted(d.ID) {
			// Rebuild is the point where soft deletes become permanent.
			if err := m.records.Delete(ctx, d.ID); err != nil {
				log.Printf("lifecycle: dropping deleted document %s: %v", d.ID, err)
			}
			continue
		}
		live = append(live, d)
	}

	var allChunks []chunker.Chunk
	entries := make(map[string]manifest.Entry, len(live))
	done := 0
	for _, d := range live {
		full, err := m.records.GetByID(ctx, d.ID)
		if err != nil || full == nil {
			log.Printf("lifecycle: rebuild skipping %s: %v", d.ID, err)
			continue
		}
		chunks, _ := m.buildChunks(*full)
		if len(chunks) == 0 {
			log.Printf("lifecycle: rebuild skipping %s: no chunks", d.ID)
			continue
		}
		allChunks = append(allChunks, chunks...)
		entries[d.ID] = entryFor(*full, chunks, manifest.EventRebuilt)
		done++
		if report != nil {
			report(done, len(live), full.Title)
		}
	}

	if err := m.index.RebuildFrom(ctx, allChunks); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	if err := m.manifest.ReplaceAll(entries); err != nil {
		return fmt.Errorf("replacing manifest: %w", err)
	}
	return nil
}

// StartRebuild launches Rebuild in the background. Progress is observable
// via RebuildStatus and SubscribeRebuild.
func (m *Manager) StartRebuild(ctx context.Context) error {
	total, err := m.records.Count(ctx)
	if err != nil {
		return err
	}
	if !m.rebuilds.TryStart(total) {
		return ErrRebuildRunning
	}

	// The rebuild outlives its trigger, so it detaches from the caller's
	// cancellation.
	bg := context.WithoutCancel(ctx)
	go func() {
		err := m.Rebuild(bg, func(done, total int, title string) {
			m.rebuilds.Progress(done, total, title)
		})
		if err != nil {
			log.Printf("lifecycle: rebuild failed: %v", err)
		}
		m.rebuilds.Finish(err)
	}()
	return nil
}

// RebuildStatus returns the state of the current or last rebuild.
func (m *Manager) RebuildStatus() RebuildStatus {
	return m.rebuilds.Snapshot()
}

// SubscribeRebuild streams rebuild status snapshots until cancel is called.
func (m *Manager) SubscribeRebuild() (<-chan RebuildStatus, func()) {
	return m.rebuilds.Subscribe()
}

// DocumentStatus is the per-document view the status endpoints serve.
type DocumentStatus struct {
	library.Document
	Indexed          bool           `json:"indexed"`
	Deleted          bool           `json:"deleted"`
	ChunkCount       int            `json:"chunk_count"`
	MaxChapter       int            `json:"max_chapter"`
	BackmatterChunks int            `json:"backmatter_chunk_count"`
	LastEvent        manifest.Event `json:"last_event,omitempty"`
}

// Status reports one document's lifecycle state.
func (m *Manager) Status(ctx context.Context, id string) (*DocumentStatus, error) {
	doc, err := m.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	doc.Content = ""

	st := &DocumentStatus{
		Document: *doc,
		Deleted:  m.manifest.IsDeleted(id),
	}
	if e, ok := m.manifest.Entry(id); ok {
		st.Indexed = true
		st.ChunkCount = e.ChunkCount
		st.MaxChapter = e.MaxChapter
		st.BackmatterChunks = e.BackmatterChunks
		st.LastEvent = e.LastEvent
	}
	return st, nil
}

// List returns the lifecycle state of every document, newest first.
// Soft-deleted documents are omitted unless includeDeleted is set.
func (m *Manager) List(ctx context.Context, includeDeleted bool) ([]DocumentStatus, error) {
	docs, err := m.records.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentStatus, 0, len(docs))
	for _, d := range docs {
		deleted := m.manifest.IsDeleted(d.ID)
		if deleted && !includeDeleted {
			continue
		}
		st := DocumentStatus{Document: d, Deleted: deleted}
		if e, ok := m.manifest.Entry(d.ID); ok {
			st.Indexed = true
			st.ChunkCount = e.ChunkCount
			st.MaxChapter = e.MaxChapter
			st.BackmatterChunks = e.BackmatterChunks
			st.LastEvent = e.LastEvent
		}
		out = append(out, st)
	}
	return out, nil
}

// LibraryStats summarizes the whole library.
type LibraryStats struct {
	Documents        int               `json:"documents"`
	DeletedDocuments int               `json:"deleted_documents"`
	TotalChunks      int               `json:"total_chunks"`
	ShouldRebuild    bool              `json:"should_rebuild"`
	Index            vectorindex.Stats `json:"index"`
}

// Stats returns library-wide statistics.
func (m *Manager) Stats(ctx context.Context) (*LibraryStats, error) {
	n, err := m.records.Count(ctx)
	if err != nil {
		return nil, err
	}
	idx := m.index.IndexStats()
	return &LibraryStats{
		Documents:        n,
		DeletedDocuments: idx.DeletedDocuments,
		TotalChunks:      idx.TotalChunks,
		ShouldRebuild:    idx.ShouldRebuild,
		Index:            idx,
	}, nil
}

// buildChunks detects structure and chunks one document. A document with no
// detectable skeleton falls back to flat chunking.
func (m *Manager) buildChunks(doc library.Document) ([]chunker.Chunk, int) {
	meta := chunker.DocumentMeta{
		DocumentID:    doc.ID,
		DocumentTitle: doc.Title,
		SourceType:    doc.SourceType,
	}

	sections := structure.Detect(doc.Content)
	if sections == nil {
		return m.builder.BuildFlat(doc.Content, meta), 0
	}

	var chunks []chunker.Chunk
	for _, sec := range sections {
		chunks = append(chunks, m.builder.Build(sec.Text(doc.Content), meta, sec)...)
	}
	return chunks, len(sections)
}

// lockDoc serializes operations on one document.
func (m *Manager) lockDoc(id string) func() {
	v, _ := m.docLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// entryFor derives the manifest entry from a document's chunks.
func entryFor(doc library.Document, chunks []chunker.Chunk, event manifest.Event) manifest.Entry {
	e := manifest.Entry{
		Title:       doc.Title,
		Filename:    doc.Filename,
		ChunkCount:  len(chunks),
		LastEvent:   event,
		LastEventAt: nowUTC(),
	}
	for _, c := range chunks {
		switch {
		case c.SectionType == structure.Backmatter:
			e.BackmatterChunks++
		case c.Numbered && c.Chapter > e.MaxChapter:
			e.MaxChapter = c.Chapter
		}
	}
	return e
}

func nowUTC() time.Time { return time.Now().UTC() }

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	title = strings.NewReplacer("-", " ", "_", " ").Replace(title)
	if title == "" || title == "." {
		return "Untitled"
	}
	words := strings.Fields(title)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
