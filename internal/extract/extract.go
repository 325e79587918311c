// Package extract turns uploaded files into the plain text the structure
// detector works on. Markdown headings become `=== Heading ===` marker lines
// so downstream boundary detection sees them.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SupportedExtensions lists the file types the extractor accepts.
var SupportedExtensions = []string{".txt", ".text", ".md", ".markdown"}

// FromFile converts raw file bytes to plain text based on the filename's
// extension. It returns the text and a short source-type label.
func FromFile(filename string, data []byte) (string, string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return string(data), "txt", nil
	case ".md", ".markdown":
		text, err := markdownToText(data)
		if err != nil {
			return "", "", fmt.Errorf("extracting markdown from %s: %w", filename, err)
		}
		return text, "md", nil
	default:
		return "", "", fmt.Errorf("unsupported file type %q (supported: %s)",
			filepath.Ext(filename), strings.Join(SupportedExtensions, ", "))
	}
}

// markdownToText walks the markdown AST and renders plain text. Headings get
// `=== ... ===` markers, block boundaries become blank lines, and inline
// formatting is dropped.
func markdownToText(data []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(data))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Heading:
			if entering {
				b.WriteString("=== ")
			} else {
				b.WriteString(" ===\n\n")
			}
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(data))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *ast.Paragraph, *ast.TextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock:
			if entering {
				writeLines(&b, data, node.Lines())
				b.WriteString("\n")
			}
		case *ast.CodeBlock:
			if entering {
				writeLines(&b, data, node.Lines())
				b.WriteString("\n")
			}
		case *ast.ThematicBreak:
			if entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()) + "\n", nil
}

func writeLines(b *strings.Builder, data []byte, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(data))
	}
}
