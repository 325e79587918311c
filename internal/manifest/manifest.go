// Package manifest persists the durable record of which documents are
// represented in the vector index and which are soft-deleted. Two small JSON
// files under the data directory are the source of truth across restarts:
// manifest.json for per-document entries and deleted_ids.json for the
// soft-delete set. Writes go through a temp-file-then-rename replace so a
// crash mid-write never corrupts state.
package manifest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	manifestFile = "manifest.json"
	deletedFile  = "deleted_ids.json"
)

// Event names the lifecycle operation that last touched a document.
type Event string

const (
	EventProcessed Event = "processed"
	EventRestored  Event = "restored"
	EventRebuilt   Event = "rebuilt"
)

// Entry summarizes one document's processed state.
type Entry struct {
	Title            string    `json:"title"`
	Filename         string    `json:"filename"`
	ChunkCount       int       `json:"chunk_count"`
	MaxChapter       int       `json:"max_chapter"`
	BackmatterChunks int       `json:"backmatter_chunk_count"`
	LastEventAt      time.Time `json:"last_event_at"`
	LastEvent        Event     `json:"last_event"`
}

type manifestData struct {
	Documents   map[string]Entry `json:"documents"`
	TotalCount  int              `json:"total_documents"`
	LastUpdated time.Time        `json:"last_updated"`
}

type deletedData struct {
	DeletedIDs  []string  `json:"deleted_ids"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store holds the manifest and the deleted set in memory and mirrors every
// mutation to disk. All methods are safe for concurrent use.
type Store struct {
	dir string

	mu      sync.RWMutex
	entries map[string]Entry
	deleted map[string]struct{}
}

// Open loads (or initializes) the manifest store under dir. Unreadable or
// corrupt files are logged and replaced with empty state; startup never
// fails on bad persisted data.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}

	s := &Store{
		dir:     dir,
		entries: make(map[string]Entry),
		deleted: make(map[string]struct{}),
	}

	var m manifestData
	if ok := s.loadJSON(manifestFile, &m); ok && m.Documents != nil {
		s.entries = m.Documents
	}

	var d deletedData
	if ok := s.loadJSON(deletedFile, &d); ok {
		for _, id := range d.DeletedIDs {
			s.deleted[id] = struct{}{}
		}
	}

	return s, nil
}

func (s *Store) loadJSON(name string, v any) bool {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("manifest: could not read %s: %v (starting empty)", name, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("manifest: %s is corrupt: %v (starting empty)", name, err)
		return false
	}
	return true
}

// Entry returns the entry for a document, if present.
func (s *Store) Entry(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Entries returns a copy of all entries.
func (s *Store) Entries() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out
}

// SetEntry records a document's processed state. On a failed write the
// in-memory state is restored, so callers observe the store unchanged.
func (s *Store) SetEntry(id string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.entries[id]
	s.entries[id] = e
	if err := s.saveManifestLocked(); err != nil {
		if had {
			s.entries[id] = prev
		} else {
			delete(s.entries, id)
		}
		return err
	}
	return nil
}

// RemoveEntry drops a document from the manifest.
func (s *Store) RemoveEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.entries[id]
	delete(s.entries, id)
	if err := s.saveManifestLocked(); err != nil {
		if had {
			s.entries[id] = prev
		}
		return err
	}
	return nil
}

// ReplaceAll swaps the whole manifest, as after a rebuild.
func (s *Store) ReplaceAll(entries map[string]Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry, len(entries))
	for id, e := range entries {
		s.entries[id] = e
	}
	return s.saveManifestLocked()
}

// IsDeleted reports whether a document is soft-deleted.
func (s *Store) IsDeleted(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.deleted[id]
	return ok
}

// MarkDeleted adds a document to the soft-delete set.
func (s *Store) MarkDeleted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deleted[id]; ok {
		return nil
	}
	s.deleted[id] = struct{}{}
	if err := s.saveDeletedLocked(); err != nil {
		delete(s.deleted, id)
		return err
	}
	return nil
}

// RestoreDeleted removes a document from the soft-delete set.
func (s *Store) RestoreDeleted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deleted[id]; !ok {
		return nil
	}
	delete(s.deleted, id)
	if err := s.saveDeletedLocked(); err != nil {
		s.deleted[id] = struct{}{}
		return err
	}
	return nil
}

// ClearDeleted empties the soft-delete set, as after a rebuild.
func (s *Store) ClearDeleted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = make(map[string]struct{})
	return s.saveDeletedLocked()
}

// DeletedSnapshot returns a copy of the soft-delete set for lock-free
// filtering during retrieval.
func (s *Store) DeletedSnapshot() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.deleted))
	for id := range s.deleted {
		out[id] = struct{}{}
	}
	return out
}

// DeletedCount returns the size of the soft-delete set.
func (s *Store) DeletedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deleted)
}

// Clear wipes both the manifest and the deleted set.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry)
	s.deleted = make(map[string]struct{})
	if err := s.saveManifestLocked(); err != nil {
		return err
	}
	return s.saveDeletedLocked()
}

func (s *Store) saveManifestLocked() error {
	return s.writeAtomic(manifestFile, manifestData{
		Documents:   s.entries,
		TotalCount:  len(s.entries),
		LastUpdated: time.Now().UTC(),
	})
}

func (s *Store) saveDeletedLocked() error {
	ids := make([]string, 0, len(s.deleted))
	for id := range s.deleted {
		ids = append(ids, id)
	}
	return s.writeAtomic(deletedFile, deletedData{
		DeletedIDs:  ids,
		LastUpdated: time.Now().UTC(),
	})
}

// writeAtomic replaces a file via write-new-then-rename, so readers and
// crash recovery only ever see a complete file.
func (s *Store) writeAtomic(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp for %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
