// Package store maintains the bounded, persistent clipboard history.
//
// The whole entry set is the unit of persistence: every mutation rewrites
// history.json in full after the in-memory change. A failed write is logged
// and the in-memory state stands; the next successful write reconciles.
// Image blobs live as one file per entry under <dir>/images and share their
// owning entry's lifetime exactly.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.klb.dev/clipstash/internal/entry"
)

const (
	historyFile = "history.json"
	imagesDir   = "images"

	// DefaultMaxItems bounds the non-pinned entry count.
	DefaultMaxItems = 25
	// DefaultMaxContentLen bounds text content, in code points.
	DefaultMaxContentLen = 4096
)

// Options configures a Store. Zero fields take defaults.
type Options struct {
	Dir           string
	MaxItems      int
	MaxContentLen int
	Now           func() time.Time
}

// Store holds the clipboard history and its on-disk mirror. All methods are
// safe for concurrent use; the capture loop is expected to be the only
// snapshot-driven writer.
type Store struct {
	dir           string
	maxItems      int
	maxContentLen int
	now           func() time.Time

	mu      sync.Mutex
	entries []entry.Entry
	onAdd   func(entry.Entry)
}

// Open loads the persisted history from opts.Dir, creating the data and image
// directories if needed. A missing history file yields an empty store; a
// corrupt one is treated as empty rather than failing startup.
func Open(opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("store: data directory not set")
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.MaxContentLen <= 0 {
		opts.MaxContentLen = DefaultMaxContentLen
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := os.MkdirAll(filepath.Join(opts.Dir, imagesDir), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	s := &Store{
		dir:           opts.Dir,
		maxItems:      opts.MaxItems,
		maxContentLen: opts.MaxContentLen,
		now:           opts.Now,
	}
	s.load()
	return s, nil
}

// SetOnAdd registers a hook fired after every successful Add/AddImage, outside
// the store lock. Only one hook is supported; calling again replaces it.
func (s *Store) SetOnAdd(fn func(entry.Entry)) {
	s.mu.Lock()
	s.onAdd = fn
	s.mu.Unlock()
}

// Add records text-like content. Empty or whitespace-only content is rejected
// with a nil return and no side effects. Content matching an existing entry of
// the same kind refreshes that entry's timestamp in place — no new identity is
// minted. New text content is truncated to the configured maximum before the
// duplicate scan.
func (s *Store) Add(kind entry.Kind, content, preview string) *entry.Entry {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if kind == entry.KindText || kind == entry.KindHTML {
		content = entry.Truncate(content, s.maxContentLen)
	}

	s.mu.Lock()
	now := s.now()
	for i := range s.entries {
		e := &s.entries[i]
		if e.Kind == kind && e.Content == content {
			e.Timestamp = now
			dup := *e
			s.persistLocked()
			hook := s.onAdd
			s.mu.Unlock()
			slog.Debug("history entry refreshed", "id", dup.ID, "kind", dup.Kind)
			if hook != nil {
				hook(dup)
			}
			return &dup
		}
	}

	if preview == "" {
		preview = entry.MakePreview(content)
	}
	e := entry.Entry{
		ID:        entry.NewID(),
		Kind:      kind,
		Content:   content,
		Preview:   preview,
		Timestamp: now,
	}
	s.entries = append(s.entries, e)
	s.enforceLimitLocked()
	s.persistLocked()
	hook := s.onAdd
	s.mu.Unlock()

	slog.Debug("history entry added", "id", e.ID, "kind", e.Kind, "preview", e.Preview)
	if hook != nil {
		hook(e)
	}
	return &e
}

// AddImage writes the image bytes to a new blob file and records an entry
// referencing it. Empty input is rejected. Images are never deduplicated
// against stored entries; every capture creates a new entry.
func (s *Store) AddImage(data []byte, format string) *entry.Entry {
	if len(data) == 0 {
		return nil
	}
	if format == "" {
		format = "png"
	}

	id := entry.NewID()
	filename := id + "." + format
	path := filepath.Join(s.dir, imagesDir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		slog.Error("image blob write failed", "path", path, "err", err)
		return nil
	}

	s.mu.Lock()
	e := entry.Entry{
		ID:        id,
		Kind:      entry.KindImage,
		Content:   filename,
		Preview:   fmt.Sprintf("[image %dkB]", len(data)/1024),
		Timestamp: s.now(),
	}
	s.entries = append(s.entries, e)
	s.enforceLimitLocked()
	s.persistLocked()
	hook := s.onAdd
	s.mu.Unlock()

	slog.Debug("history image added", "id", e.ID, "size_bytes", len(data))
	if hook != nil {
		hook(e)
	}
	return &e
}

// Delete removes the entry with the given id, deleting its blob if it was an
// image. Reports whether anything was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		removed := s.entries[i]
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		s.removeBlob(removed)
		s.persistLocked()
		return true
	}
	return false
}

// TogglePin flips the pinned state of the entry with the given id.
// Reports whether the id was found.
func (s *Store) TogglePin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries[i].Pinned = !s.entries[i].Pinned
			s.persistLocked()
			return true
		}
	}
	return false
}

// Clear removes all entries, or only non-pinned ones when keepPinned is set.
// Blobs of removed image entries are deleted with them.
func (s *Store) Clear(keepPinned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept, removed []entry.Entry
	for _, e := range s.entries {
		if keepPinned && e.Pinned {
			kept = append(kept, e)
		} else {
			removed = append(removed, e)
		}
	}
	s.entries = kept
	for _, e := range removed {
		s.removeBlob(e)
	}
	s.persistLocked()
	slog.Info("history cleared", "removed", len(removed), "kept", len(kept))
}

// Entries returns the display-ordered view: pinned first, then non-pinned,
// each group newest first. The order is computed here, not stored.
func (s *Store) Entries() []entry.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayLocked()
}

// Search returns display-ordered entries whose preview or content contains
// the query as a case-insensitive substring. An empty query returns the full
// view.
func (s *Store) Search(query string) []entry.Entry {
	all := s.Entries()
	if query == "" {
		return all
	}
	q := strings.ToLower(query)
	var out []entry.Entry
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Preview), q) ||
			strings.Contains(strings.ToLower(e.Content), q) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the entry with the given id.
func (s *Store) Get(id string) (entry.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return entry.Entry{}, false
}

// BlobPath returns the on-disk path of an image entry's blob, if the entry is
// an image and the blob currently exists.
func (s *Store) BlobPath(e entry.Entry) (string, bool) {
	if e.Kind != entry.KindImage {
		return "", false
	}
	path := filepath.Join(s.dir, imagesDir, e.Content)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Len returns the pinned and non-pinned entry counts.
func (s *Store) Len() (pinned, normal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Pinned {
			pinned++
		} else {
			normal++
		}
	}
	return pinned, normal
}

func (s *Store) displayLocked() []entry.Entry {
	var pinned, normal []entry.Entry
	for _, e := range s.entries {
		if e.Pinned {
			pinned = append(pinned, e)
		} else {
			normal = append(normal, e)
		}
	}
	newestFirst := func(list []entry.Entry) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Timestamp.After(list[j].Timestamp)
		})
	}
	newestFirst(pinned)
	newestFirst(normal)
	return append(pinned, normal...)
}

// enforceLimitLocked evicts the oldest non-pinned entries until at most
// maxItems remain. Pinned entries are never scanned. Timestamp ties fall back
// to insertion order via the stable sort.
func (s *Store) enforceLimitLocked() {
	var normal []entry.Entry
	for _, e := range s.entries {
		if !e.Pinned {
			normal = append(normal, e)
		}
	}
	excess := len(normal) - s.maxItems
	if excess <= 0 {
		return
	}
	sort.SliceStable(normal, func(i, j int) bool {
		return normal[i].Timestamp.Before(normal[j].Timestamp)
	})
	evict := make(map[string]struct{}, excess)
	for _, e := range normal[:excess] {
		evict[e.ID] = struct{}{}
	}

	kept := s.entries[:0]
	for _, e := range s.entries {
		if _, gone := evict[e.ID]; gone {
			s.removeBlob(e)
			slog.Debug("history entry evicted", "id", e.ID, "kind", e.Kind)
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
}

func (s *Store) removeBlob(e entry.Entry) {
	if e.Kind != entry.KindImage || e.Content == "" {
		return
	}
	path := filepath.Join(s.dir, imagesDir, e.Content)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("image blob remove failed", "path", path, "err", err)
	}
}

func (s *Store) load() {
	path := filepath.Join(s.dir, historyFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("history file unreadable, starting empty", "path", path, "err", err)
		}
		return
	}
	entries, skipped := entry.DecodeRecords(data, s.now())
	s.entries = entries
	if skipped > 0 {
		slog.Warn("skipped malformed history records", "skipped", skipped, "loaded", len(entries))
	} else {
		slog.Debug("history loaded", "entries", len(entries))
	}
}

// persistLocked rewrites the full history file. Write-temp-then-rename keeps
// a mid-crash from leaving a half-written file behind.
func (s *Store) persistLocked() {
	data, err := entry.EncodeRecords(s.entries)
	if err != nil {
		slog.Error("history encode failed", "err", err)
		return
	}
	path := filepath.Join(s.dir, historyFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		slog.Error("history write failed", "path", tmp, "err", err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		slog.Error("history rename failed", "path", path, "err", err)
	}
}
