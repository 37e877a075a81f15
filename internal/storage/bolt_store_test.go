package storage

import (
	"testing"
	"time"
)

func TestBoltStoreTracksFingerprints(t *testing.T) {
	dir := t.TempDir()
	storeRaw, err := openBolt(dir+"/rates.db", Options{RateTTL: time.Hour, CleanupInterval: time.Hour})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenRate("US:CA", "fp1")
	if err != nil || seen {
		t.Fatalf("expected unseen rate, seen=%v err=%v", seen, err)
	}

	if err := store.MarkRate("US:CA", "fp1"); err != nil {
		t.Fatalf("MarkRate: %v", err)
	}

	seen, err = store.SeenRate("US:CA", "fp1")
	if err != nil || !seen {
		t.Fatalf("expected rate seen, got seen=%v err=%v", seen, err)
	}

	seen, err = store.SeenRate("US:CA", "fp2")
	if err != nil || seen {
		t.Fatalf("changed fingerprint must not be seen, got seen=%v err=%v", seen, err)
	}

	if err := store.MarkRate("US:CA", "fp2"); err != nil {
		t.Fatalf("MarkRate: %v", err)
	}
	if seen, _ := store.SeenRate("US:CA", "fp1"); seen {
		t.Fatalf("old fingerprint should be replaced")
	}
}

func TestBoltStoreExpiresRecords(t *testing.T) {
	dir := t.TempDir()
	storeRaw, err := openBolt(dir+"/rates.db", Options{RateTTL: time.Second, CleanupInterval: time.Second})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.MarkRate("GB", "fp"); err != nil {
		t.Fatalf("MarkRate: %v", err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err := store.SeenRate("GB", "fp")
	if err != nil {
		t.Fatalf("SeenRate after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestDecodeRecordRejectsShortValues(t *testing.T) {
	if _, _, ok := decodeRecord([]byte{1, 2, 3}); ok {
		t.Fatalf("expected short value to be rejected")
	}
	expiry := time.Unix(1700000000, 0)
	got, fp, ok := decodeRecord(encodeRecord(expiry, "abc"))
	if !ok || fp != "abc" || !got.Equal(expiry) {
		t.Fatalf("round trip failed: %v %q %v", got, fp, ok)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkRate("x", "y"); err != nil {
		t.Fatalf("noop store MarkRate: %v", err)
	}
	if seen, _ := store.SeenRate("x", "y"); seen {
		t.Fatalf("noop store must never report seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
