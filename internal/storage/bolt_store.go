package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	rateBucket       = "summary_rates"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Each value is an 8-byte
// big-endian expiry followed by the fingerprint.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	rateTTL         time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rateBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		rateTTL:         opts.RateTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenRate reports whether key was last published with the same fingerprint
// and that record has not expired.
func (b *boltStore) SeenRate(key, fingerprint string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var seen bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(rateBucket))
		if bucket == nil {
			return fmt.Errorf("rate bucket missing")
		}

		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}

		expiry, stored, ok := decodeRecord(value)
		if !ok || !expiry.After(now) {
			return bucket.Delete(k)
		}

		seen = stored == fingerprint
		return nil
	})
	return seen, err
}

// MarkRate records fingerprint as the latest published value for key.
func (b *boltStore) MarkRate(key, fingerprint string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(rateBucket))
		if bucket == nil {
			return fmt.Errorf("rate bucket missing")
		}
		return bucket.Put([]byte(key), encodeRecord(now.Add(b.rateTTL), fingerprint))
	})
}

// maybeCleanupExpired removes expired records on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(rateBucket))
		if bucket == nil {
			return fmt.Errorf("rate bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeRecord(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeRecord(expiry time.Time, fingerprint string) []byte {
	buf := make([]byte, expiryValueBytes+len(fingerprint))
	binary.BigEndian.PutUint64(buf, uint64(expiry.Unix()))
	copy(buf[expiryValueBytes:], fingerprint)
	return buf
}

// decodeRecord splits a stored value into its expiry and fingerprint.
func decodeRecord(value []byte) (time.Time, string, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, "", false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, "", false
	}
	return time.Unix(unix, 0), string(value[expiryValueBytes:]), true
}
