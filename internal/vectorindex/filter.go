package vectorindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/lorekeeper/internal/chunker"
	"github.com/ziadkadry99/lorekeeper/internal/structure"
)

// Metadata keys stored alongside every chunk in the index.
const (
	metaDocumentID    = "document_id"
	metaDocumentTitle = "document_title"
	metaChunkIndex    = "chunk_index"
	metaTotalChunks   = "total_chunks"
	metaChapterTitle  = "chapter_title"
	metaChapterNumber = "chapter_number"
	metaSectionType   = "section_type"
	metaSourceType    = "source_type"
)

// Filter narrows a search. The zero value matches every live chunk.
type Filter struct {
	// DocumentID restricts results to a single document when non-empty.
	DocumentID string
	// MaxChapter caps Body chunks at the given chapter number. Nil means
	// no spoiler protection.
	MaxChapter *int
	// IncludeBackmatter admits Backmatter chunks. Backmatter is excluded
	// by default because it tends to discuss the whole work.
	IncludeBackmatter bool
}

// fetchMultiplier sizes the candidate pool. Chapter filtering can discard
// most of the pool, so it over-fetches far more aggressively than a plain
// or document-scoped search.
func (f Filter) fetchMultiplier() int {
	switch {
	case f.MaxChapter != nil:
		return 20
	case f.DocumentID != "":
		return 4
	default:
		return 2
	}
}

// Result is one retrieval hit.
type Result struct {
	Chunk      chunker.Chunk `json:"chunk"`
	Similarity float32       `json:"similarity"`
}

// predicate builds the per-candidate accept function for a filter. Checks
// run cheapest-first: deleted set, document scope, then spoiler gating by
// section type.
func (m *Manager) predicate(f Filter) func(meta map[string]string) bool {
	deleted := m.deleted.DeletedSnapshot()
	strict := m.strictUnnumbered

	return func(meta map[string]string) bool {
		if _, gone := deleted[meta[metaDocumentID]]; gone {
			return false
		}
		if f.DocumentID != "" && meta[metaDocumentID] != f.DocumentID {
			return false
		}
		if f.MaxChapter == nil {
			return true
		}

		switch structure.SectionType(meta[metaSectionType]) {
		case structure.Frontmatter:
			return true
		case structure.Backmatter:
			return f.IncludeBackmatter
		default:
			num, ok := parseChapter(meta[metaChapterNumber])
			if !ok {
				// No inferred chapter number: retrievable under a cap
				// unless strict mode is on.
				return !strict
			}
			return num <= *f.MaxChapter
		}
	}
}

// chunkMetadata flattens a chunk into the string map the index stores.
// An unnumbered chunk gets an empty chapter_number so the filter can tell
// "no number" from "chapter 0".
func chunkMetadata(c chunker.Chunk) map[string]string {
	chapter := ""
	if c.Numbered {
		chapter = strconv.Itoa(c.Chapter)
	}
	return map[string]string{
		metaDocumentID:    c.DocumentID,
		metaDocumentTitle: c.DocumentTitle,
		metaChunkIndex:    strconv.Itoa(c.Index),
		metaTotalChunks:   strconv.Itoa(c.TotalChunks),
		metaChapterTitle:  c.ChapterTitle,
		metaChapterNumber: chapter,
		metaSectionType:   string(c.SectionType),
		metaSourceType:    c.SourceType,
	}
}

// metadataToChunk rebuilds a chunk from a stored candidate.
func metadataToChunk(id, content string, meta map[string]string) chunker.Chunk {
	index, _ := strconv.Atoi(meta[metaChunkIndex])
	total, _ := strconv.Atoi(meta[metaTotalChunks])
	chapter, numbered := parseChapter(meta[metaChapterNumber])
	return chunker.Chunk{
		ID:            id,
		DocumentID:    meta[metaDocumentID],
		DocumentTitle: meta[metaDocumentTitle],
		Index:         index,
		TotalChunks:   total,
		ChapterTitle:  meta[metaChapterTitle],
		SectionType:   structure.SectionType(meta[metaSectionType]),
		SourceType:    meta[metaSourceType],
		Text:          content,
		Chapter:       chapter,
		Numbered:      numbered,
	}
}

func parseChapter(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatResults renders hits for terminal and tool output.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No matching passages found."
	}

	var b strings.Builder
	for i, r := range results {
		c := r.Chunk
		fmt.Fprintf(&b, "--- Result %d (similarity %.3f) ---\n", i+1, r.Similarity)
		fmt.Fprintf(&b, "Document: %s\n", c.DocumentTitle)
		if c.ChapterTitle != "" {
			fmt.Fprintf(&b, "Section: %s\n", c.ChapterTitle)
		}
		if c.Numbered {
			fmt.Fprintf(&b, "Chapter: %d\n", c.Chapter)
		}
		fmt.Fprintf(&b, "Chunk: %d/%d\n\n", c.Index+1, c.TotalChunks)
		b.WriteString(strings.TrimSpace(c.Text))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
