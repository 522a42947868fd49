package storage

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const cookieBucket = "cookies"

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	sessionTTL      time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cookieBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		sessionTTL:      opts.SessionTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// LoadCookies returns every unexpired cookie, dropping expired or unreadable entries.
func (b *boltStore) LoadCookies() ([]StoredCookie, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := b.now()
	var out []StoredCookie
	err := b.db.Update(func(tx *bolt.Tx) error {
		live, err := purgeExpired(tx, now)
		out = live
		return err
	})
	if err != nil {
		return nil, err
	}
	b.lastCleanup.Store(now.Unix())
	return out, nil
}

// SaveCookies writes through the cookies a response set for u.
func (b *boltStore) SaveCookies(u *url.URL, cookies []*http.Cookie) error {
	if b == nil || b.db == nil || u == nil || len(cookies) == 0 {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(cookieBucket))
		if bucket == nil {
			return fmt.Errorf("cookie bucket missing")
		}
		for _, c := range cookies {
			if c == nil || c.Name == "" {
				continue
			}
			key := []byte(cookieKey(u, c))
			rec, keep := toStored(u, c, now, b.sessionTTL)
			if !keep {
				if err := bucket.Delete(key); err != nil {
					return err
				}
				continue
			}
			raw, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode cookie %q: %w", c.Name, err)
			}
			if err := bucket.Put(key, raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// maybeCleanupExpired removes expired cookies on a fixed cadence to avoid unbounded growth.
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
		_, err := purgeExpired(tx, now)
		return err
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// purgeExpired deletes expired or unreadable entries and returns the rest.
// Keys are collected first since deleting under a live cursor skips entries.
func purgeExpired(tx *bolt.Tx, now time.Time) ([]StoredCookie, error) {
	bucket := tx.Bucket([]byte(cookieBucket))
	if bucket == nil {
		return nil, fmt.Errorf("cookie bucket missing")
	}

	var (
		live  []StoredCookie
		stale [][]byte
	)
	err := bucket.ForEach(func(k, v []byte) error {
		rec, ok := decodeCookie(v)
		if !ok || !rec.ExpiresAt.After(now) {
			stale = append(stale, append([]byte(nil), k...))
			return nil
		}
		live = append(live, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, k := range stale {
		if err := bucket.Delete(k); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func decodeCookie(value []byte) (StoredCookie, bool) {
	var rec StoredCookie
	if err := json.Unmarshal(value, &rec); err != nil {
		return StoredCookie{}, false
	}
	if rec.Name == "" || rec.URL == "" || rec.ExpiresAt.IsZero() {
		return StoredCookie{}, false
	}
	return rec, true
}
