// Package cache provides durable, TTL-bounded storage of test result
// documents keyed by (test ID, run ID). Failures inside the cache are
// recovered locally and surfaced as a miss or a false return; callers
// never see an error from this layer.
package cache

import (
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minhdang/bpagent/internal/metrics"
)

// On-disk format: two files per key. Reads check both extensions so caches
// written before compression was enabled stay readable.
const (
	extPlain      = ".json"
	extCompressed = ".json.gz"
)

// Store is the file-backed result cache. When disabled it behaves as a
// no-op variant: Get always misses, Set and Invalidate report success,
// Clear and Cleanup report zero. Concurrent use is safe: writes are
// temp-file-plus-rename, so readers never observe a partial file.
type Store struct {
	dir      string
	ttl      time.Duration
	compress bool
	enabled  bool
	log      *slog.Logger
}

// New creates a Store rooted at dir, creating the directory (including
// parents) if absent.
func New(dir string, ttl time.Duration, compress bool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	logger.Debug("initialized result cache",
		"dir", dir, "ttl", ttl, "compression", compress)
	return &Store{dir: dir, ttl: ttl, compress: compress, enabled: true, log: logger}, nil
}

// NewDisabled returns a Store in no-op mode, so call sites need no
// enabled/disabled branching.
func NewDisabled(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("result cache is disabled")
	return &Store{log: logger}
}

// Enabled reports whether the store actually persists anything.
func (s *Store) Enabled() bool {
	return s.enabled
}

// key derives the stable content key for a (testID, runID) pair. md5 keeps
// existing on-disk caches addressable.
func key(testID, runID string) string {
	sum := md5.Sum([]byte(testID + "_" + runID))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached document for the pair, or ok=false on a miss.
// Expired entries miss without being deleted (Cleanup reclaims them);
// corrupted entries are best-effort deleted and miss.
func (s *Store) Get(testID, runID string) (map[string]any, bool) {
	if !s.enabled {
		return nil, false
	}

	k := key(testID, runID)
	for _, ext := range []string{extCompressed, extPlain} {
		path := filepath.Join(s.dir, k+ext)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		age := time.Since(info.ModTime())
		if age > s.ttl {
			s.log.Debug("cache expired", "test_id", testID, "run_id", runID, "age", age.Round(time.Second))
			metrics.CacheMisses.WithLabelValues("expired").Inc()
			return nil, false
		}

		doc, err := readEntry(path)
		if err != nil {
			s.log.Warn("invalid cache entry, removing", "path", path, "error", err)
			if rmErr := os.Remove(path); rmErr != nil {
				s.log.Warn("could not remove corrupted cache file", "path", path, "error", rmErr)
			}
			metrics.CacheMisses.WithLabelValues("corrupt").Inc()
			return nil, false
		}

		s.log.Debug("cache hit", "test_id", testID, "run_id", runID)
		metrics.CacheHits.Inc()
		return doc, true
	}

	s.log.Debug("cache miss", "test_id", testID, "run_id", runID)
	metrics.CacheMisses.WithLabelValues("absent").Inc()
	return nil, false
}

// Set stores a document for the pair, replacing any previous entry in
// full. Empty payloads are rejected. The write goes to a temp file in the
// cache directory and is renamed over the final path, so an interrupted
// write never leaves a corrupted file at the canonical location.
func (s *Store) Set(testID, runID string, payload any) bool {
	if !s.enabled {
		return true
	}
	if emptyPayload(payload) {
		s.log.Warn("refusing to cache empty payload", "test_id", testID, "run_id", runID)
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("failed to encode payload",
			"test_id", testID, "run_id", runID, "error", err)
		return false
	}

	k := key(testID, runID)
	ext, sibling := extPlain, extCompressed
	if s.compress {
		ext, sibling = extCompressed, extPlain
	}
	path := filepath.Join(s.dir, k+ext)

	// Unique temp name: concurrent writers for the same key must not
	// clobber each other's in-progress file.
	tmp := path + ".tmp." + uuid.NewString()
	if err := writeFile(tmp, data, s.compress); err != nil {
		s.log.Warn("cache write failed", "test_id", testID, "run_id", runID, "error", err)
		_ = os.Remove(tmp)
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		s.log.Warn("cache rename failed", "test_id", testID, "run_id", runID, "error", err)
		_ = os.Remove(tmp)
		return false
	}
	// A set replaces the entry in full: an older file under the other
	// encoding would shadow or coexist with this write, so drop it.
	_ = os.Remove(filepath.Join(s.dir, k+sibling))

	s.log.Debug("cached result", "test_id", testID, "run_id", runID)
	return true
}

// Invalidate removes any entry for the pair, checking both encodings.
// Idempotent; returns whether at least one file was removed.
func (s *Store) Invalidate(testID, runID string) bool {
	if !s.enabled {
		return true
	}

	k := key(testID, runID)
	found := false
	for _, ext := range []string{extCompressed, extPlain} {
		path := filepath.Join(s.dir, k+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn("error invalidating cache entry", "path", path, "error", err)
			continue
		}
		found = true
	}
	if found {
		s.log.Debug("invalidated cache entry", "test_id", testID, "run_id", runID)
		metrics.CacheEvictions.WithLabelValues("invalidate").Inc()
	}
	return found
}

// Clear removes every recognized cache file in the store directory,
// leaving unrelated files untouched. Best-effort per file.
func (s *Store) Clear() int {
	if !s.enabled {
		return 0
	}
	count := s.removeMatching(func(os.FileInfo) bool { return true })
	s.log.Info("cleared cache", "entries", count)
	metrics.CacheEvictions.WithLabelValues("clear").Add(float64(count))
	return count
}

// Cleanup removes recognized cache files older than maxAge. maxAge <= 0
// defaults to the store TTL.
func (s *Store) Cleanup(maxAge time.Duration) int {
	if !s.enabled {
		return 0
	}
	if maxAge <= 0 {
		maxAge = s.ttl
	}
	now := time.Now()
	count := s.removeMatching(func(info os.FileInfo) bool {
		return now.Sub(info.ModTime()) > maxAge
	})
	s.log.Info("cleaned up expired cache entries", "entries", count)
	metrics.CacheEvictions.WithLabelValues("cleanup").Add(float64(count))
	return count
}

// removeMatching deletes recognized cache files accepted by the
// predicate, skipping files it cannot stat or remove.
func (s *Store) removeMatching(match func(os.FileInfo) bool) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("cannot read cache dir", "dir", s.dir, "error", err)
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !isCacheFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.log.Warn("cannot stat cache file", "path", path, "error", err)
			continue
		}
		if !match(info) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn("cannot remove cache file", "path", path, "error", err)
			continue
		}
		count++
	}
	return count
}

// isCacheFile recognizes the two known on-disk extensions and excludes
// in-progress temp files.
func isCacheFile(name string) bool {
	if strings.Contains(name, ".tmp.") {
		return false
	}
	return strings.HasSuffix(name, extPlain) || strings.HasSuffix(name, extCompressed)
}

func writeFile(path string, data []byte, compress bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	var werr error
	if compress {
		zw := gzip.NewWriter(f)
		if _, werr = zw.Write(data); werr == nil {
			werr = zw.Close()
		}
	} else {
		_, werr = f.Write(data)
	}

	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	return werr
}

// readEntry loads and decodes one cache file, decompressing by extension.
func readEntry(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var doc map[string]any
	if strings.HasSuffix(path, extCompressed) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		if err := json.NewDecoder(zr).Decode(&doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// emptyPayload rejects payloads that would cache nothing useful.
func emptyPayload(payload any) bool {
	if payload == nil {
		return true
	}
	switch v := payload.(type) {
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case string:
		return v == ""
	}
	return false
}
