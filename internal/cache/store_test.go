package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, ttl time.Duration, compress bool) *Store {
	t.Helper()
	store, err := New(t.TempDir(), ttl, compress, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestSetGetRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "compressed"
		}
		t.Run(name, func(t *testing.T) {
			store := newTestStore(t, time.Hour, compress)

			payload := map[string]any{"status": "completed", "duration": 60.0}
			if !store.Set("t1", "r1", payload) {
				t.Fatal("Set returned false")
			}

			got, ok := store.Get("t1", "r1")
			if !ok {
				t.Fatal("expected cache hit")
			}
			if got["status"] != "completed" {
				t.Errorf("expected status completed, got %v", got["status"])
			}
			if got["duration"] != 60.0 {
				t.Errorf("expected duration 60, got %v", got["duration"])
			}
		})
	}
}

func TestGetMissesOnAbsentEntry(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	if _, ok := store.Get("t1", "never-set"); ok {
		t.Fatal("expected miss")
	}
}

func TestExpiredEntryMissesButStaysOnDisk(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	store.Set("t1", "r1", map[string]any{"x": 1})

	// Age the file past the TTL.
	path := filepath.Join(store.dir, key("t1", "r1")+extPlain)
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if _, ok := store.Get("t1", "r1"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expired entry should remain on disk until cleanup: %v", err)
	}
}

func TestCorruptedEntryIsRemoved(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	path := filepath.Join(store.dir, key("t1", "r1")+extPlain)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, ok := store.Get("t1", "r1"); ok {
		t.Fatal("expected corrupted entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected corrupted file to be deleted, stat err: %v", err)
	}
}

func TestSetRejectsEmptyPayloads(t *testing.T) {
	store := newTestStore(t, time.Hour, false)

	for name, payload := range map[string]any{
		"nil":        nil,
		"empty map":  map[string]any{},
		"empty list": []any{},
		"empty str":  "",
	} {
		if store.Set("t1", "r1", payload) {
			t.Errorf("%s: expected Set to refuse empty payload", name)
		}
	}
	if _, ok := store.Get("t1", "r1"); ok {
		t.Fatal("nothing should have been cached")
	}
}

func TestSetReplacesPreviousEntry(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	store.Set("t1", "r1", map[string]any{"version": 1.0})
	store.Set("t1", "r1", map[string]any{"version": 2.0})

	got, ok := store.Get("t1", "r1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got["version"] != 2.0 {
		t.Errorf("expected replacement, got %v", got["version"])
	}
}

func TestPlainEntryReadableByCompressedStore(t *testing.T) {
	dir := t.TempDir()

	plain, err := New(dir, time.Hour, false, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plain.Set("t1", "r1", map[string]any{"legacy": true})

	// Same directory, compression now enabled: the old entry must still
	// be readable.
	compressed, err := New(dir, time.Hour, true, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, ok := compressed.Get("t1", "r1")
	if !ok {
		t.Fatal("expected legacy plain entry to hit")
	}
	if got["legacy"] != true {
		t.Errorf("unexpected payload: %v", got)
	}
}

func TestSetReplacesEntryAcrossEncodings(t *testing.T) {
	dir := t.TempDir()
	compressed, _ := New(dir, time.Hour, true, nil)
	plain, _ := New(dir, time.Hour, false, nil)

	compressed.Set("t1", "r1", map[string]any{"version": 1.0})

	// Compression toggled off: the plain write must fully replace the
	// compressed entry, not coexist with it.
	if !plain.Set("t1", "r1", map[string]any{"version": 2.0}) {
		t.Fatal("Set returned false")
	}

	got, ok := plain.Get("t1", "r1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got["version"] != 2.0 {
		t.Errorf("Set was not a full replacement: got version %v, want 2", got["version"])
	}
	gz := filepath.Join(dir, key("t1", "r1")+extCompressed)
	if _, err := os.Stat(gz); !os.IsNotExist(err) {
		t.Errorf("stale compressed entry should be removed, stat err: %v", err)
	}

	// And the other direction: compressed set drops the plain file.
	compressed.Set("t1", "r1", map[string]any{"version": 3.0})
	if got, ok := compressed.Get("t1", "r1"); !ok || got["version"] != 3.0 {
		t.Errorf("expected version 3 after compressed set, got %v (hit=%v)", got, ok)
	}
	if _, err := os.Stat(filepath.Join(dir, key("t1", "r1")+extPlain)); !os.IsNotExist(err) {
		t.Errorf("stale plain entry should be removed, stat err: %v", err)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	store.Set("t1", "r1", map[string]any{"x": 1})

	if !store.Invalidate("t1", "r1") {
		t.Fatal("expected first invalidate to remove the entry")
	}
	if store.Invalidate("t1", "r1") {
		t.Fatal("expected second invalidate to find nothing")
	}
	if _, ok := store.Get("t1", "r1"); ok {
		t.Fatal("entry should be gone")
	}
}

func TestInvalidateRemovesBothEncodings(t *testing.T) {
	dir := t.TempDir()
	plain, _ := New(dir, time.Hour, false, nil)
	compressed, _ := New(dir, time.Hour, true, nil)

	plain.Set("t1", "r1", map[string]any{"x": 1})
	compressed.Set("t1", "r1", map[string]any{"x": 2})

	plain.Invalidate("t1", "r1")
	if _, ok := compressed.Get("t1", "r1"); ok {
		t.Fatal("expected both encodings removed")
	}
}

func TestClearLeavesUnrelatedFiles(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	store.Set("t1", "r1", map[string]any{"x": 1})
	store.Set("t2", "r2", map[string]any{"y": 2})

	unrelated := filepath.Join(store.dir, "README.txt")
	if err := os.WriteFile(unrelated, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if removed := store.Clear(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("unrelated file should survive Clear: %v", err)
	}
}

func TestCleanupRemovesOnlyOldEntries(t *testing.T) {
	store := newTestStore(t, time.Hour, false)
	store.Set("old", "r1", map[string]any{"x": 1})
	store.Set("new", "r1", map[string]any{"y": 2})

	oldPath := filepath.Join(store.dir, key("old", "r1")+extPlain)
	stale := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(oldPath, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if removed := store.Cleanup(2 * time.Hour); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := store.Get("new", "r1"); !ok {
		t.Error("fresh entry should survive cleanup")
	}
}

func TestDisabledStoreIsNoOp(t *testing.T) {
	store := NewDisabled(nil)

	if store.Enabled() {
		t.Fatal("disabled store reports enabled")
	}
	if !store.Set("t1", "r1", map[string]any{"x": 1}) {
		t.Error("disabled Set should report success")
	}
	if _, ok := store.Get("t1", "r1"); ok {
		t.Error("disabled Get should always miss")
	}
	if !store.Invalidate("t1", "r1") {
		t.Error("disabled Invalidate should report success")
	}
	if store.Clear() != 0 || store.Cleanup(0) != 0 {
		t.Error("disabled Clear/Cleanup should report zero")
	}
}

func TestKeyIsStable(t *testing.T) {
	// Known md5 of "t1_r1"; existing on-disk caches depend on this mapping.
	if key("t1", "r1") != key("t1", "r1") {
		t.Fatal("key not deterministic")
	}
	if key("t1", "r1") == key("t1", "r2") {
		t.Fatal("distinct runs must map to distinct keys")
	}
	if len(key("t", "r")) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(key("t", "r")))
	}
}
