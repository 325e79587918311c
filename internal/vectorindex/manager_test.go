package vectorindex

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/ziadkadry99/lorekeeper/internal/chunker"
	"github.com/ziadkadry99/lorekeeper/internal/structure"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text. Similar texts
// produce similar vectors because shared characters contribute to the same
// positions.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// memDeleted is an in-memory DeletedSet for tests.
type memDeleted struct {
	ids map[string]struct{}
}

func newMemDeleted() *memDeleted {
	return &memDeleted{ids: make(map[string]struct{})}
}

func (d *memDeleted) IsDeleted(id string) bool {
	_, ok := d.ids[id]
	return ok
}

func (d *memDeleted) MarkDeleted(id string) error {
	d.ids[id] = struct{}{}
	return nil
}

func (d *memDeleted) RestoreDeleted(id string) error {
	delete(d.ids, id)
	return nil
}

func (d *memDeleted) ClearDeleted() error {
	d.ids = make(map[string]struct{})
	return nil
}

func (d *memDeleted) DeletedSnapshot() map[string]struct{} {
	out := make(map[string]struct{}, len(d.ids))
	for id := range d.ids {
		out[id] = struct{}{}
	}
	return out
}

func (d *memDeleted) DeletedCount() int { return len(d.ids) }

func makeChunk(docID, title, text string, chapter int, numbered bool, sec structure.SectionType) chunker.Chunk {
	return chunker.Chunk{
		ID:            uuid.NewString(),
		DocumentID:    docID,
		DocumentTitle: title,
		Index:         0,
		TotalChunks:   1,
		ChapterTitle:  "Chapter",
		SectionType:   sec,
		SourceType:    "txt",
		Text:          text,
		Chapter:       chapter,
		Numbered:      numbered,
	}
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *memDeleted) {
	t.Helper()
	deleted := newMemDeleted()
	m, err := New(newMockEmbedder(64), deleted, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, deleted
}

func TestAddChunksAndSearch(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	chunks := []chunker.Chunk{
		makeChunk("doc1", "Novel", "The dragon guarded the mountain hoard for centuries", 1, true, structure.Body),
		makeChunk("doc1", "Novel", "Rain fell softly on the harbor town all winter", 2, true, structure.Body),
	}
	if err := m.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	if got := m.Count(); got != 2 {
		t.Fatalf("Count = %d, want 2", got)
	}

	results, err := m.Search(ctx, "dragon guarded the mountain hoard", 1, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Chunk.DocumentID != "doc1" {
		t.Errorf("DocumentID = %q, want doc1", results[0].Chunk.DocumentID)
	}
	if results[0].Chunk.Chapter != 1 || !results[0].Chunk.Numbered {
		t.Errorf("chapter metadata lost: chapter=%d numbered=%v", results[0].Chunk.Chapter, results[0].Chunk.Numbered)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	m, _ := newTestManager(t)
	results, err := m.Search(context.Background(), "anything", 5, Filter{})
	if err != nil {
		t.Fatalf("Search on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results from empty index", len(results))
	}
}

func TestSoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "Novel", "A lighthouse keeper watched the restless sea", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	if err := m.SoftDelete("doc1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	results, err := m.Search(ctx, "lighthouse keeper restless sea", 5, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("soft-deleted document still searchable: %d results", len(results))
	}
	// Chunks stay physically present.
	if got := m.Count(); got != 1 {
		t.Fatalf("Count after soft delete = %d, want 1", got)
	}

	if err := m.Restore("doc1"); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	results, err = m.Search(ctx, "lighthouse keeper restless sea", 5, Filter{})
	if err != nil {
		t.Fatalf("Search after restore: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("restored document not searchable: %d results", len(results))
	}
}

func TestRemoveDocument(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "Gone", "The smugglers hid the cargo in the sea caves", 1, true, structure.Body),
		makeChunk("doc1", "Gone", "By morning the tide had erased every footprint", 2, true, structure.Body),
		makeChunk("doc2", "Kept", "A festival filled the market square with lanterns", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	if err := m.RemoveDocument(ctx, "doc1"); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if got := m.Count(); got != 1 {
		t.Fatalf("Count = %d, want 1", got)
	}
	results, err := m.Search(ctx, "smugglers hid the cargo in the sea caves", 5, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Chunk.DocumentID == "doc1" {
			t.Errorf("removed document still searchable: %q", r.Chunk.Text)
		}
	}
}

func TestRebuildFromClearsDeletedSet(t *testing.T) {
	ctx := context.Background()
	m, deleted := newTestManager(t)

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "Kept", "The caravan crossed the salt flats at dawn", 1, true, structure.Body),
		makeChunk("doc2", "Gone", "An abandoned observatory on the cliff edge", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	if err := m.SoftDelete("doc2"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	// Rebuild from the surviving chunks only.
	if err := m.RebuildFrom(ctx, []chunker.Chunk{
		makeChunk("doc1", "Kept", "The caravan crossed the salt flats at dawn", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("RebuildFrom: %v", err)
	}

	if got := m.Count(); got != 1 {
		t.Errorf("Count after rebuild = %d, want 1", got)
	}
	if deleted.DeletedCount() != 0 {
		t.Errorf("deleted set not cleared after rebuild: %d entries", deleted.DeletedCount())
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	m, deleted := newTestManager(t)

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "Novel", "Some narrative text about a quiet village", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	if err := m.SoftDelete("doc1"); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := m.Count(); got != 0 {
		t.Errorf("Count after Clear = %d, want 0", got)
	}
	if deleted.DeletedCount() != 0 {
		t.Errorf("deleted set survived Clear: %d entries", deleted.DeletedCount())
	}
}

func TestShouldRebuild(t *testing.T) {
	ctx := context.Background()
	m, deleted := newTestManager(t)

	if m.ShouldRebuild(0.2) {
		t.Error("empty index should never suggest a rebuild")
	}

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "A", "First document body text goes here", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	if m.ShouldRebuild(0.2) {
		t.Error("no deletions should never suggest a rebuild")
	}

	// 3 deleted: ratio 3/13 ~ 0.23, above the 0.2 threshold.
	for _, id := range []string{"doc1", "doc2", "doc3"} {
		deleted.MarkDeleted(id)
	}
	if !m.ShouldRebuild(0.2) {
		t.Error("expected rebuild suggestion at 3 deletions")
	}
	// 2 deleted: ratio 2/12 ~ 0.17, below threshold.
	deleted.RestoreDeleted("doc3")
	if m.ShouldRebuild(0.2) {
		t.Error("did not expect rebuild suggestion at 2 deletions")
	}
}

func TestConfiguredRebuildThreshold(t *testing.T) {
	ctx := context.Background()
	m, deleted := newTestManager(t, WithRebuildThreshold(0.5))

	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "A", "First document body text goes here", 1, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
	// 3 deleted: ratio 3/13 ~ 0.23, above the default 0.2 but below 0.5.
	for _, id := range []string{"doc1", "doc2", "doc3"} {
		deleted.MarkDeleted(id)
	}

	if m.ShouldRebuild(0) {
		t.Error("configured 0.5 threshold should suppress the suggestion")
	}
	if m.IndexStats().ShouldRebuild {
		t.Error("IndexStats should honor the configured threshold")
	}
	if !m.ShouldRebuild(0.2) {
		t.Error("an explicit threshold argument should still win")
	}
}

func TestPersistAndReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	deleted := newMemDeleted()

	m, err := New(newMockEmbedder(64), deleted, WithPersistDir(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.AddChunks(ctx, []chunker.Chunk{
		makeChunk("doc1", "Novel", "A hidden valley beyond the northern pass", 3, true, structure.Body),
	}); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	reloaded, err := New(newMockEmbedder(64), deleted, WithPersistDir(dir))
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if got := reloaded.Count(); got != 1 {
		t.Fatalf("Count after reload = %d, want 1", got)
	}
	results, err := reloaded.Search(ctx, "hidden valley northern pass", 1, Filter{})
	if err != nil {
		t.Fatalf("Search after reload: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Chapter != 3 {
		t.Fatalf("reloaded index lost data: %+v", results)
	}
}
