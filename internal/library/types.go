// Package library persists the documents the system manages: the original
// text bodies plus identifying metadata. The vector index is derived from
// this store and can always be rebuilt from it.
package library

import "time"

// Document is a stored narrative document.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	Content    string    `json:"content,omitempty"`
	SourceType string    `json:"source_type"`
	CreatedAt  time.Time `json:"created_at"`
}
