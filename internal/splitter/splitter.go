// Package splitter breaks long text into retrieval-sized, possibly
// overlapping pieces, preferring natural boundaries: paragraph breaks first,
// then lines, then sentences, then raw characters.
package splitter

import "strings"

// DefaultChunkSize is the target number of bytes per piece.
const DefaultChunkSize = 1000

// DefaultOverlap is the number of bytes carried over between pieces.
const DefaultOverlap = 200

// DefaultSeparators is the boundary preference order. The empty string is the
// last resort: a hard cut at the size limit.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits text recursively along a separator preference list.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithChunkSize sets the target piece size in bytes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive pieces in bytes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// WithSeparators replaces the boundary preference list.
func WithSeparators(seps []string) Option {
	return func(s *Splitter) {
		if len(seps) > 0 {
			s.separators = seps
		}
	}
}

// New creates a Splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultOverlap,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}
	return s
}

// Split breaks text into ordered pieces of at most the configured size,
// except where no separator can produce a smaller piece. Pieces overlap by
// roughly the configured overlap. Whitespace-only input yields nothing.
func (s *Splitter) Split(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return s.hardCut(text)
	}
	return s.merge(splitKeep(text, sep), rest)
}

// merge packs separator-delimited parts into chunks up to chunkSize, sliding
// a window so that consecutive chunks share an overlap tail. Parts that alone
// exceed the size limit recurse with the remaining separators.
func (s *Splitter) merge(parts []string, rest []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if total == 0 {
			return
		}
		joined := strings.Join(window, "")
		if strings.TrimSpace(joined) != "" {
			chunks = append(chunks, joined)
		}
	}

	for _, part := range parts {
		if len(part) > s.chunkSize {
			flush()
			window, total = nil, 0
			chunks = append(chunks, s.split(part, rest)...)
			continue
		}

		if total+len(part) > s.chunkSize && total > 0 {
			flush()
			// Retain the tail of the window as overlap for the next chunk.
			for total > s.overlap || (total+len(part) > s.chunkSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, part)
		total += len(part)
	}
	flush()

	return chunks
}

// hardCut slices text at the byte limit with overlap, snapping cut points
// back to rune boundaries so multi-byte characters are never torn.
func (s *Splitter) hardCut(text string) []string {
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}

	var pieces []string
	for start := 0; start < len(text); start += step {
		end := start + s.chunkSize
		if end >= len(text) {
			pieces = append(pieces, text[runeStart(text, start):])
			break
		}
		pieces = append(pieces, text[runeStart(text, start):runeStart(text, end)])
	}
	return pieces
}

// pickSeparator returns the first separator present in text and the
// remaining, lower-preference separators.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if sep == "" {
			return "", nil
		}
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// splitKeep splits text on sep, keeping the separator attached to the
// preceding part so joins reconstruct the original text.
func splitKeep(text, sep string) []string {
	raw := strings.SplitAfter(text, sep)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func runeStart(text string, i int) int {
	for i > 0 && i < len(text) && (text[i]&0xC0) == 0x80 {
		i--
	}
	return i
}
