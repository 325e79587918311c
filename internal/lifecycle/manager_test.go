package lifecycle

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/lorekeeper/internal/db"
	"github.com/ziadkadry99/lorekeeper/internal/library"
	"github.com/ziadkadry99/lorekeeper/internal/manifest"
	"github.com/ziadkadry99/lorekeeper/internal/vectorindex"
)

// mockEmbedder returns deterministic embeddings based on text content.
type mockEmbedder struct {
	dims int
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.dims)
		for j, ch := range text {
			vec[(int(ch)+j)%m.dims] += 1.0
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		norm = math.Sqrt(norm)
		if norm > 0 {
			for j := range vec {
				vec[j] = float32(float64(vec[j]) / norm)
			}
		}
		results[i] = vec
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

const novel = `The old keeper had guarded the library for forty years, and in all
that time no visitor had ever asked for the sealed shelf on the third
floor, the one behind the ladder that nobody used.

Chapter 1

The stranger arrived on a moonless night carrying a sealed letter
that smelled faintly of salt and cedar. Nobody saw him cross the square.

Chapter 2

By morning the letter was gone and the keeper with it, leaving only
a chalk circle on the reading-room floor and a single wet bootprint.

Appendix

Maps of the old quarter, reproduced from the city archive with the
kind permission of the archivist and her patient assistants.`

func newTestManager(t *testing.T) (*Manager, *vectorindex.Manager) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	man, err := manifest.Open(t.TempDir())
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	index, err := vectorindex.New(&mockEmbedder{dims: 64}, man)
	if err != nil {
		t.Fatalf("vectorindex.New: %v", err)
	}
	return NewManager(library.NewStore(database), index, man, nil), index
}

func TestAddDocumentProcesses(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	result, err := m.AddDocument(ctx, AddRequest{
		Title:    "The Keeper",
		Filename: "keeper.txt",
		Content:  novel,
	})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if result.Status != StatusProcessed {
		t.Errorf("Status = %q, want %q", result.Status, StatusProcessed)
	}
	// Preamble + two chapters + appendix.
	if result.Sections != 4 {
		t.Errorf("Sections = %d, want 4", result.Sections)
	}
	if result.ChunkCount == 0 || index.Count() != result.ChunkCount {
		t.Errorf("ChunkCount = %d, index holds %d", result.ChunkCount, index.Count())
	}

	st, err := m.Status(ctx, result.Document.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Indexed || st.Deleted {
		t.Errorf("status = %+v, want indexed and live", st)
	}
	if st.MaxChapter != 2 {
		t.Errorf("MaxChapter = %d, want 2", st.MaxChapter)
	}
	if st.BackmatterChunks == 0 {
		t.Error("appendix produced no backmatter chunks")
	}
}

func TestAddDocumentEmptyContent(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.AddDocument(context.Background(), AddRequest{Title: "X", Content: "   \n\t  "})
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("err = %v, want ErrEmptyContent", err)
	}
}

func TestAddDocumentTitleFromFilename(t *testing.T) {
	m, _ := newTestManager(t)
	result, err := m.AddDocument(context.Background(), AddRequest{
		Filename: "the-long_road.txt",
		Content:  novel,
	})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if result.Document.Title != "The Long Road" {
		t.Errorf("Title = %q, want %q", result.Document.Title, "The Long Road")
	}
}

func TestDeleteRestoreCycle(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	added, err := m.AddDocument(ctx, AddRequest{Title: "T", Filename: "t.txt", Content: novel})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	id := added.Document.ID
	countBefore := index.Count()

	if err := m.DeleteDocument(ctx, id); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	// Soft delete keeps the chunks.
	if index.Count() != countBefore {
		t.Errorf("Count after soft delete = %d, want %d", index.Count(), countBefore)
	}
	st, err := m.Status(ctx, id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Deleted {
		t.Error("document not marked deleted")
	}

	// Deleting again is idempotent.
	if err := m.DeleteDocument(ctx, id); err != nil {
		t.Errorf("second DeleteDocument: %v", err)
	}

	// Re-adding by ID restores without re-embedding.
	restored, err := m.AddDocument(ctx, AddRequest{ID: id})
	if err != nil {
		t.Fatalf("AddDocument (restore): %v", err)
	}
	if restored.Status != StatusRestored {
		t.Errorf("Status = %q, want %q", restored.Status, StatusRestored)
	}
	if index.Count() != countBefore {
		t.Errorf("restore changed chunk count: %d != %d", index.Count(), countBefore)
	}
	st, _ = m.Status(ctx, id)
	if st.Deleted {
		t.Error("document still marked deleted after restore")
	}
	if st.LastEvent != manifest.EventRestored {
		t.Errorf("LastEvent = %q, want %q", st.LastEvent, manifest.EventRestored)
	}
}

func TestAddDocumentIdempotent(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	added, err := m.AddDocument(ctx, AddRequest{Title: "T", Filename: "t.txt", Content: novel})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	countBefore := index.Count()

	again, err := m.AddDocument(ctx, AddRequest{ID: added.Document.ID, Content: novel})
	if err != nil {
		t.Fatalf("AddDocument (again): %v", err)
	}
	if again.Status != StatusExists {
		t.Errorf("Status = %q, want %q", again.Status, StatusExists)
	}
	if index.Count() != countBefore {
		t.Errorf("idempotent add grew the index: %d != %d", index.Count(), countBefore)
	}
}

func TestDeleteMissing(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.DeleteDocument(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchRespectsSoftDelete(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	added, err := m.AddDocument(ctx, AddRequest{Title: "T", Filename: "t.txt", Content: novel})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := m.DeleteDocument(ctx, added.Document.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	results, err := index.Search(ctx, "stranger sealed letter moonless", 5, vectorindex.Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("soft-deleted document surfaced %d results", len(results))
	}
}

func TestRebuildDropsDeletedPermanently(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	kept, err := m.AddDocument(ctx, AddRequest{Title: "Kept", Filename: "kept.txt", Content: novel})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	gone, err := m.AddDocument(ctx, AddRequest{
		Title:    "Gone",
		Filename: "gone.txt",
		Content:  "Chapter 1\n\nA completely different story about sailors.\n\nChapter 2\n\nThe sailors reached the island at noon.",
	})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := m.DeleteDocument(ctx, gone.Document.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	var reports int
	if err := m.Rebuild(ctx, func(done, total int, title string) { reports++ }); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if reports != 1 {
		t.Errorf("progress reported %d documents, want 1", reports)
	}

	// The deleted document is now gone from every layer.
	if _, err := m.Status(ctx, gone.Document.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted document still has a record after rebuild: %v", err)
	}
	st, err := m.Status(ctx, kept.Document.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Indexed || st.LastEvent != manifest.EventRebuilt {
		t.Errorf("kept document state after rebuild: %+v", st)
	}
	if index.Count() != st.ChunkCount {
		t.Errorf("index holds %d chunks, manifest says %d", index.Count(), st.ChunkCount)
	}

	stats, err := m.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents != 1 || stats.DeletedDocuments != 0 {
		t.Errorf("stats after rebuild = %+v", stats)
	}
}

func TestListIncludeDeleted(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	a, _ := m.AddDocument(ctx, AddRequest{Title: "A", Filename: "a.txt", Content: novel})
	if err := m.DeleteDocument(ctx, a.Document.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	live, err := m.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("List(false) returned %d documents, want 0", len(live))
	}

	all, err := m.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || !all[0].Deleted {
		t.Errorf("List(true) = %+v", all)
	}
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	m, index := newTestManager(t)

	if _, err := m.AddDocument(ctx, AddRequest{Title: "A", Filename: "a.txt", Content: novel}); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if err := m.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if index.Count() != 0 {
		t.Errorf("index not empty after DeleteAll: %d", index.Count())
	}
	docs, err := m.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("records survived DeleteAll: %d", len(docs))
	}
}

func TestFlatFallbackForUnstructuredText(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	plain := strings.Repeat("A plain narrative sentence with no headings whatsoever. ", 40)
	result, err := m.AddDocument(ctx, AddRequest{Title: "Plain", Filename: "plain.txt", Content: plain})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	if result.Sections != 0 {
		t.Errorf("Sections = %d, want 0 for flat fallback", result.Sections)
	}
	if result.ChunkCount == 0 {
		t.Error("flat fallback produced no chunks")
	}
}

// A failed manifest write must leave no record and no searchable chunks, so
// retrying the same document (even with an explicit ID) starts clean.
func TestAddDocumentUnwindsOnManifestFailure(t *testing.T) {
	ctx := context.Background()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	manifestDir := filepath.Join(t.TempDir(), "manifest")
	man, err := manifest.Open(manifestDir)
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	index, err := vectorindex.New(&mockEmbedder{dims: 64}, man)
	if err != nil {
		t.Fatalf("vectorindex.New: %v", err)
	}
	records := library.NewStore(database)
	m := NewManager(records, index, man, nil)

	// Replace the manifest directory with a regular file so the next
	// persisted write cannot create its temp file.
	if err := os.RemoveAll(manifestDir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if err := os.WriteFile(manifestDir, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	req := AddRequest{ID: "doc-retry", Title: "The Keeper", Filename: "keeper.txt", Content: novel}
	if _, err := m.AddDocument(ctx, req); err == nil {
		t.Fatal("expected AddDocument to fail when the manifest cannot be written")
	}

	if got := index.Count(); got != 0 {
		t.Errorf("index holds %d chunks after failed add, want 0", got)
	}
	doc, err := records.GetByID(ctx, "doc-retry")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc != nil {
		t.Error("record survived the failed add")
	}

	// With the directory back, the same request succeeds.
	if err := os.Remove(manifestDir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := os.MkdirAll(manifestDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	result, err := m.AddDocument(ctx, req)
	if err != nil {
		t.Fatalf("retry after repair: %v", err)
	}
	if result.Status != StatusProcessed {
		t.Errorf("Status = %q, want %q", result.Status, StatusProcessed)
	}
}
