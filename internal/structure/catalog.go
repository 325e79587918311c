package structure

import (
	"regexp"
	"strings"
)

// ruleFamily distinguishes how a boundary rule participates in detection.
// Structural families compete: the highest-priority family with enough
// matches supplies the document's skeleton and lower structural families are
// skipped. Keyword families always contribute, on regions not already claimed.
type ruleFamily int

const (
	structural ruleFamily = iota
	keyword
)

// boundaryRule is one entry of the ordered pattern catalog.
type boundaryRule struct {
	name     string
	family   ruleFamily
	re       *regexp.Regexp
	classify func(heading string) SectionType
}

// catalog is the ordered boundary-detection rule list, highest priority first.
var catalog = []boundaryRule{
	{
		name:     "chapter-heading",
		family:   structural,
		re:       regexp.MustCompile(`(?mi)^[ \t]*(?:[=\-#*]+[ \t]*)?chapter[ \t]+(?:[0-9]+|[ivxlc]+|[a-z]+(?:[ \t-][a-z]+)?)\b[^\n]*$`),
		classify: func(string) SectionType { return Body },
	},
	{
		name:     "division-heading",
		family:   structural,
		re:       regexp.MustCompile(`(?mi)^[ \t]*(?:[=\-#*]+[ \t]*)?(?:part|book)[ \t]+(?:[0-9]+|[ivxlc]+|[a-z]+(?:[ \t-][a-z]+)?)\b[^\n]*$`),
		classify: func(string) SectionType { return Body },
	},
	{
		name:     "special-section",
		family:   keyword,
		re:       regexp.MustCompile(`(?mi)^[ \t]*(?:[=\-#*]+[ \t]*)?(?:prologue|epilogue|interlude|preface|introduction)\b[^\n]*$`),
		classify: classifySpecial,
	},
	{
		name:     "backmatter-section",
		family:   keyword,
		re:       regexp.MustCompile(`(?mi)^[ \t]*(?:[=\-#*]+[ \t]*)?(?:appendix|glossary|afterword|bibliography|notes|acknowledg\w*|map of\b|timeline)\b[^\n]*$`),
		classify: func(string) SectionType { return Backmatter },
	},
	{
		name:     "generic-marker",
		family:   structural,
		re:       regexp.MustCompile(`(?m)^[ \t]*===[ \t]*.+?[ \t]*===[ \t]*$`),
		classify: func(string) SectionType { return Body },
	},
}

// classifySpecial maps a special-section heading to its side of the story.
// Epilogues read after the final chapter, so they gate like backmatter;
// interludes sit inside the narrative and stay Body without a number.
func classifySpecial(heading string) SectionType {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "epilogue"):
		return Backmatter
	case strings.Contains(h, "interlude"):
		return Body
	default:
		return Frontmatter
	}
}

// cleanHeading strips marker decoration from a matched heading line.
func cleanHeading(line string) string {
	s := strings.TrimSpace(line)
	s = strings.Trim(s, "=-#* \t")
	return strings.TrimSpace(s)
}
