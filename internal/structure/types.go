package structure

// SectionType classifies a detected section of a document.
type SectionType string

const (
	// Frontmatter is material before the story proper (prologues, prefaces,
	// leading preambles). It is always visible regardless of reading position.
	Frontmatter SectionType = "frontmatter"
	// Body is narrative content, optionally carrying an inferred chapter number.
	Body SectionType = "body"
	// Backmatter is reference material after the story (appendices, glossaries).
	// It never carries a chapter number.
	Backmatter SectionType = "backmatter"
)

// Section is a contiguous span of document text with one inferred type.
// Sections are produced in strictly increasing Start order and never overlap.
type Section struct {
	Start int // byte offset, inclusive
	End   int // byte offset, exclusive
	Title string
	Type  SectionType

	// Chapter is the inferred chapter number. It is meaningful only when
	// Numbered is true. Frontmatter sections use 0 as the always-visible
	// sentinel; Backmatter sections are never numbered.
	Chapter  int
	Numbered bool
}

// Text returns the section's span of the given document text.
func (s Section) Text(doc string) string {
	return doc[s.Start:s.End]
}
