// Package chunker turns detected sections into retrieval-sized chunk records
// carrying the ordering and spoiler metadata that must survive into the index.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ziadkadry99/lorekeeper/internal/splitter"
	"github.com/ziadkadry99/lorekeeper/internal/structure"
)

// DefaultMinLength is the floor below which a trimmed piece is discarded as
// a stray whitespace or punctuation fragment.
const DefaultMinLength = 15

// Chunk is one retrieval-sized piece of a section's text. Chunks are
// immutable once created; their only lifecycle event is bulk deletion
// alongside their owning document.
type Chunk struct {
	ID            string
	DocumentID    string
	DocumentTitle string
	Index         int // 0-based order within the section
	TotalChunks   int // count within the section
	ChapterTitle  string
	SectionType   structure.SectionType
	SourceType    string
	Text          string

	// Chapter is meaningful only when Numbered. A numbered chunk of type
	// Body gates against the caller's spoiler cap; Frontmatter chunks are
	// pinned to 0 (always visible); Backmatter chunks are never numbered.
	Chapter  int
	Numbered bool
}

// DocumentMeta is the per-document metadata stamped onto every chunk.
type DocumentMeta struct {
	DocumentID    string
	DocumentTitle string
	SourceType    string
}

// Builder splits section text and assembles chunk records.
type Builder struct {
	split     *splitter.Splitter
	minLength int
}

// Option configures a Builder.
type Option func(*Builder)

// WithSplitter replaces the default text splitter.
func WithSplitter(s *splitter.Splitter) Option {
	return func(b *Builder) { b.split = s }
}

// WithMinLength sets the minimum trimmed piece length.
func WithMinLength(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minLength = n
		}
	}
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		split:     splitter.New(),
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build chunks one section's text, propagating the section's type, title and
// chapter number into every chunk. Pieces below the minimum floor are
// discarded and survivors re-indexed densely.
func (b *Builder) Build(sectionText string, meta DocumentMeta, sec structure.Section) []Chunk {
	pieces := b.validPieces(sectionText)

	chunks := make([]Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, Chunk{
			ID:            uuid.New().String(),
			DocumentID:    meta.DocumentID,
			DocumentTitle: meta.DocumentTitle,
			Index:         i,
			TotalChunks:   len(pieces),
			ChapterTitle:  sec.Title,
			SectionType:   sec.Type,
			SourceType:    meta.SourceType,
			Text:          text,
			Chapter:       chapterFor(sec),
			Numbered:      numberedFor(sec),
		})
	}
	return chunks
}

// BuildFlat chunks a whole document that has no detectable structure. Every
// chunk is Body with chapter number 1 — a permissive sentinel that keeps the
// content retrievable but can never be fully spoiler-proof.
func (b *Builder) BuildFlat(documentText string, meta DocumentMeta) []Chunk {
	pieces := b.validPieces(documentText)

	chunks := make([]Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, Chunk{
			ID:            uuid.New().String(),
			DocumentID:    meta.DocumentID,
			DocumentTitle: meta.DocumentTitle,
			Index:         i,
			TotalChunks:   len(pieces),
			SectionType:   structure.Body,
			SourceType:    meta.SourceType,
			Text:          text,
			Chapter:       1,
			Numbered:      true,
		})
	}
	return chunks
}

func (b *Builder) validPieces(text string) []string {
	var pieces []string
	for _, p := range b.split.Split(text) {
		trimmed := strings.TrimSpace(p)
		if len(trimmed) < b.minLength {
			continue
		}
		pieces = append(pieces, trimmed)
	}
	return pieces
}

// chapterFor and numberedFor enforce the chunk invariants: only Frontmatter
// and successfully numbered Body sections yield a chapter number.
func chapterFor(sec structure.Section) int {
	if sec.Type == structure.Backmatter {
		return 0
	}
	return sec.Chapter
}

func numberedFor(sec structure.Section) bool {
	if sec.Type == structure.Backmatter {
		return false
	}
	return sec.Numbered
}
