// Package cache holds synthesized reply audio for a short servable window.
//
// Reply audio is the one artifact promoted out of the per-request scratch
// scope: the response carries a reference, and the client fetches the bytes
// before the entry's TTL expires. Entries are removed by an age-based sweep
// run opportunistically alongside pipeline runs.
package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type entry struct {
	path      string
	mime      string
	createdAt time.Time
}

// AudioCache is a TTL-bounded file cache for synthesized reply audio.
// Safe for concurrent use.
type AudioCache struct {
	mu      sync.Mutex
	dir     string
	ttl     time.Duration
	entries map[string]*entry
}

// NewAudioCache creates a cache under dir with the given entry TTL.
func NewAudioCache(dir string, ttl time.Duration) (*AudioCache, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, errors.Wrapf(err, "unable to create audio cache dir %s", dir)
	}
	return &AudioCache{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]*entry),
	}, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "audio/wav":
		return ".wav"
	case "audio/opus":
		return ".opus"
	case "audio/aac":
		return ".aac"
	case "audio/flac":
		return ".flac"
	default:
		return ".mp3"
	}
}

// Put stores audio bytes and returns the entry id used to fetch them.
func (c *AudioCache) Put(data []byte, mime string) (string, error) {
	id := uuid.New().String()
	path := filepath.Join(c.dir, id+extensionFor(mime))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write cached audio")
	}

	c.mu.Lock()
	c.entries[id] = &entry{path: path, mime: mime, createdAt: time.Now()}
	c.mu.Unlock()

	return id, nil
}

// Open resolves an entry id to its file path and mime type. An expired or
// unknown id reports false; expired entries are removed on the way out.
func (c *AudioCache) Open(id string) (string, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return "", "", false
	}
	if time.Since(e.createdAt) > c.ttl {
		c.removeLocked(id, e)
		return "", "", false
	}
	return e.path, e.mime, true
}

// Sweep removes entries older than the TTL and returns how many were
// removed. The TTL is generous relative to fetch latency, so a file being
// served is never young enough to be swept out from under the reader.
func (c *AudioCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, e := range c.entries {
		if now.Sub(e.createdAt) > c.ttl {
			c.removeLocked(id, e)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *AudioCache) removeLocked(id string, e *entry) {
	delete(c.entries, id)
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not remove cached audio", "path", e.path, "error", err)
	}
}
