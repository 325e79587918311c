package structure

import (
	"regexp"
	"strconv"
	"strings"
)

// ordinalWords covers the spelled-out chapter numbers books actually use.
// Compounds like "twenty-one" are summed from tens + units.
var ordinalWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
	"thirty": 30, "forty": 40, "fifty": 50,
}

var romanValues = map[byte]int{
	'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100,
}

// RomanToInt parses a roman numeral using the standard subtractive-pair rule.
// Returns false for empty input or characters outside I/V/X/L/C.
func RomanToInt(s string) (int, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := romanValues[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) && romanValues[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// wordToInt resolves a spelled-out number, including tens+units compounds
// ("twenty-one", "forty two").
func wordToInt(s string) (int, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, ok := ordinalWords[s]; ok {
		return n, true
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ' ' })
	if len(parts) != 2 {
		return 0, false
	}
	tens, ok1 := ordinalWords[parts[0]]
	units, ok2 := ordinalWords[parts[1]]
	if !ok1 || !ok2 || tens%10 != 0 || units >= 10 {
		return 0, false
	}
	return tens + units, true
}

// Number tokens never span lines: a heading is one line, so the whitespace
// inside the pattern must not cross into the prose that follows it.
var chapterNumberRe = regexp.MustCompile(`(?i)(?:chapter|part|book)[ \t]+([0-9]+|[ivxlc]+|[a-z]+(?:[ \t-][a-z]+)?)`)

// InferChapterNumber extracts a chapter number from a heading.
// It tries, in order: digits adjacent to a chapter/part/book keyword,
// the ordinal-word table, then roman numerals. Inference is best-effort;
// a false result leaves the section retrievable but not precisely gated.
func InferChapterNumber(heading string) (int, bool) {
	m := chapterNumberRe.FindStringSubmatch(heading)
	if m == nil {
		return 0, false
	}
	token := m[1]
	if n, ok := tokenToInt(token); ok {
		return n, true
	}
	// The capture is greedy over two words ("Four The" from "Chapter Four
	// The Journey"); retry with the first word alone.
	if i := strings.IndexAny(token, "- \t\n"); i > 0 {
		return tokenToInt(token[:i])
	}
	return 0, false
}

func tokenToInt(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil && n > 0 {
		return n, true
	}
	if n, ok := wordToInt(token); ok {
		return n, true
	}
	// Roman parsing last: "I" is also the pronoun and "six" is not roman,
	// so only clean numeral tokens reach here.
	return RomanToInt(token)
}
