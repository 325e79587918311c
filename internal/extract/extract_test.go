package extract

import (
	"strings"
	"testing"
)

func TestFromFilePlainText(t *testing.T) {
	text, sourceType, err := FromFile("story.txt", []byte("Chapter 1\n\nOnce upon a time."))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if sourceType != "txt" {
		t.Errorf("sourceType = %q, want txt", sourceType)
	}
	if text != "Chapter 1\n\nOnce upon a time." {
		t.Errorf("txt extraction altered content: %q", text)
	}
}

func TestFromFileMarkdownHeadings(t *testing.T) {
	md := "# Chapter 1\n\nIt was a dark night.\n\n## Chapter 2\n\nMorning came *slowly*.\n"
	text, sourceType, err := FromFile("story.md", []byte(md))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if sourceType != "md" {
		t.Errorf("sourceType = %q, want md", sourceType)
	}
	for _, want := range []string{
		"=== Chapter 1 ===",
		"=== Chapter 2 ===",
		"It was a dark night.",
		"Morning came slowly.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "#") || strings.Contains(text, "*") {
		t.Errorf("markdown syntax leaked into extracted text:\n%s", text)
	}
}

func TestFromFileMarkdownSoftBreaks(t *testing.T) {
	md := "First line\nsecond line of the same paragraph.\n\nNext paragraph.\n"
	text, _, err := FromFile("n.md", []byte(md))
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if !strings.Contains(text, "First line\nsecond line") {
		t.Errorf("soft break lost:\n%q", text)
	}
	if !strings.Contains(text, "paragraph.\n\nNext paragraph.") {
		t.Errorf("paragraph boundary lost:\n%q", text)
	}
}

func TestFromFileUnsupported(t *testing.T) {
	_, _, err := FromFile("book.pdf", []byte("%PDF"))
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if !strings.Contains(err.Error(), ".pdf") {
		t.Errorf("error does not name the extension: %v", err)
	}
}
