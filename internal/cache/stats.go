package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stats is an aggregate view over all entries, recomputed by scanning the
// store directory.
type Stats struct {
	Dir         string
	TTL         time.Duration
	Compression bool
	Enabled     bool
	EntryCount  int
	SizeBytes   int64
	OldestEntry time.Time
	NewestEntry time.Time
}

// HumanSize formats SizeBytes for display.
func (st Stats) HumanSize() string {
	switch {
	case st.SizeBytes > 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(st.SizeBytes)/(1024*1024))
	case st.SizeBytes > 1024:
		return fmt.Sprintf("%.2f KB", float64(st.SizeBytes)/1024)
	default:
		return fmt.Sprintf("%d bytes", st.SizeBytes)
	}
}

// Stats scans the directory once and aggregates entry count, total size
// and the oldest/newest write times. Files with unreadable metadata are
// skipped, logged, not fatal.
func (s *Store) Stats() Stats {
	st := Stats{
		Dir:         s.dir,
		TTL:         s.ttl,
		Compression: s.compress,
		Enabled:     s.enabled,
	}
	if !s.enabled {
		return st
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warn("cannot read cache dir", "dir", s.dir, "error", err)
		return st
	}

	for _, entry := range entries {
		if !isCacheFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.log.Warn("error reading cache file metadata",
				"path", filepath.Join(s.dir, entry.Name()), "error", err)
			continue
		}

		st.EntryCount++
		st.SizeBytes += info.Size()

		mtime := info.ModTime()
		if st.OldestEntry.IsZero() || mtime.Before(st.OldestEntry) {
			st.OldestEntry = mtime
		}
		if st.NewestEntry.IsZero() || mtime.After(st.NewestEntry) {
			st.NewestEntry = mtime
		}
	}
	return st
}
