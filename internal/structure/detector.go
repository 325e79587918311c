// Package structure infers chapter and section boundaries from raw
// narrative text, without format-specific hints. Detection applies an
// ordered rule catalog: the first structural family producing enough
// matches supplies the skeleton, keyword families fill in special and
// backmatter sections, and everything else is classified Body.
package structure

import (
	"sort"
	"strings"
)

const (
	// minMatches is how many hits a structural family needs before it wins.
	minMatches = 2
	// boundaryTolerance keeps two rules from firing on the same physical
	// boundary (offsets within this window are considered covered).
	boundaryTolerance = 20
	// minPreambleLength is the shortest leading span that becomes an
	// implicit Frontmatter section.
	minPreambleLength = 100
	// maxHeadingLength rejects prose lines that happen to start with a
	// keyword; real headings are short.
	maxHeadingLength = 120
)

// mark is a matched boundary before span assembly.
type mark struct {
	offset int
	title  string
	typ    SectionType
}

// Detect infers section boundaries for the given text. Sections come back in
// strictly increasing, non-overlapping offset order covering [0, len(text))
// together with any leading preamble. Fewer than two detected boundaries
// yields nil; callers fall back to flat chunking.
func Detect(text string) []Section {
	var marks []mark
	structuralDone := false

	for _, rule := range catalog {
		if rule.family == structural && structuralDone {
			continue
		}

		locs := rule.re.FindAllStringIndex(text, -1)
		var accepted []mark
		for _, loc := range locs {
			line := text[loc[0]:loc[1]]
			if len(line) > maxHeadingLength {
				continue
			}
			if covered(marks, loc[0]) {
				continue
			}
			accepted = append(accepted, mark{
				offset: loc[0],
				title:  cleanHeading(line),
				typ:    rule.classify(line),
			})
		}

		if rule.family == structural {
			if len(accepted) < minMatches {
				continue
			}
			structuralDone = true
		}
		marks = append(marks, accepted...)
	}

	if len(marks) < minMatches {
		return nil
	}

	sort.Slice(marks, func(i, j int) bool { return marks[i].offset < marks[j].offset })

	var sections []Section
	if first := marks[0].offset; first >= minPreambleLength && len(strings.TrimSpace(text[:first])) >= minPreambleLength {
		sections = append(sections, Section{
			Start:    0,
			End:      first,
			Type:     Frontmatter,
			Chapter:  0,
			Numbered: true,
		})
	}

	for i, m := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1].offset
		}
		sections = append(sections, newSection(m, end))
	}

	return sections
}

// newSection finalizes one section, enforcing the type/number invariants:
// Frontmatter is pinned to the always-visible sentinel 0, Backmatter never
// carries a number, and Body gets one only when inference succeeds.
func newSection(m mark, end int) Section {
	sec := Section{
		Start: m.offset,
		End:   end,
		Title: m.title,
		Type:  m.typ,
	}
	switch m.typ {
	case Frontmatter:
		sec.Chapter = 0
		sec.Numbered = true
	case Body:
		if n, ok := InferChapterNumber(m.title); ok {
			sec.Chapter = n
			sec.Numbered = true
		}
	}
	return sec
}

func covered(marks []mark, offset int) bool {
	for _, m := range marks {
		d := offset - m.offset
		if d < 0 {
			d = -d
		}
		if d <= boundaryTolerance {
			return true
		}
	}
	return false
}
