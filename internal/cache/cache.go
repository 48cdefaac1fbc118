// Package cache keeps the last raw body fetched for each institution on disk,
// together with the validators needed to revalidate it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoDir is returned by a Store without a directory.
var ErrNoDir = errors.New("cache dir not configured")

// Entry is the metadata saved next to a cached body.
type Entry struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	SavedAt      time.Time `json:"saved_at"`
}

// Age reports how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.SavedAt)
}

// Store writes <slug>.body and <slug>.meta.json under Dir, where slug is the
// institution acronym folded to lower-case ASCII ("W&M" becomes "w_m").
type Store struct {
	Dir string
	// StrictPerms restricts the directory to 0700 and files to 0600.
	StrictPerms bool
}

func (s *Store) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return ErrNoDir
	}
	if err := os.MkdirAll(s.Dir, s.dirMode()); err != nil {
		return err
	}
	if s.StrictPerms {
		return os.Chmod(s.Dir, 0o700)
	}
	return nil
}

func (s *Store) dirMode() os.FileMode {
	if s.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (s *Store) fileMode() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

// Slug maps an institution acronym to the file stem used on disk.
func Slug(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(key)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func (s *Store) metaPath(key string) string { return filepath.Join(s.Dir, Slug(key)+".meta.json") }
func (s *Store) bodyPath(key string) string { return filepath.Join(s.Dir, Slug(key)+".body") }

// LoadMeta returns the entry metadata for key if present.
func (s *Store) LoadMeta(_ context.Context, key string) (*Entry, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.metaPath(key))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, fmt.Errorf("decode meta %s: %w", key, err)
	}
	return &e, nil
}

// LoadBody returns the cached body for key if present.
func (s *Store) LoadBody(_ context.Context, key string) ([]byte, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.bodyPath(key))
}

// Fresh returns the cached body when it exists and is younger than maxAge.
// A non-positive maxAge accepts any age.
func (s *Store) Fresh(ctx context.Context, key string, maxAge time.Duration) ([]byte, *Entry, bool) {
	meta, err := s.LoadMeta(ctx, key)
	if err != nil {
		return nil, nil, false
	}
	if maxAge > 0 && meta.Age(time.Now().UTC()) > maxAge {
		return nil, meta, false
	}
	body, err := s.LoadBody(ctx, key)
	if err != nil {
		return nil, meta, false
	}
	return body, meta, true
}

// Save writes the body and then atomically replaces the metadata, so a
// reader never sees metadata for a body that was not written.
func (s *Store) Save(_ context.Context, e Entry, body []byte) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := os.WriteFile(s.bodyPath(e.Key), body, s.fileMode()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	tmp := s.metaPath(e.Key) + ".tmp"
	if err := os.WriteFile(tmp, data, s.fileMode()); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return os.Rename(tmp, s.metaPath(e.Key))
}

// Touch bumps SavedAt after a 304 revalidation.
func (s *Store) Touch(ctx context.Context, key string) error {
	meta, err := s.LoadMeta(ctx, key)
	if err != nil {
		return err
	}
	body, err := s.LoadBody(ctx, key)
	if err != nil {
		return err
	}
	meta.SavedAt = time.Now().UTC()
	return s.Save(ctx, *meta, body)
}
