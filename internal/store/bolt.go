// Package store persists the last-known snapshot and the bounded update
// history in a local bbolt database that survives process restarts.
package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/nearspot/locationd/internal/domain"
)

var (
	bucketSnapshot = []byte("snapshot")
	bucketHistory  = []byte("history")
	keyCurrent     = []byte("current")
)

// Bolt implements domain.SnapshotStore and domain.HistoryStore on a single
// bbolt file. Safe for concurrent use; bbolt serializes writers internally.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file and its buckets.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshot); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close releases the underlying database file.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Get returns the last-known snapshot, or ok=false when none has been
// written yet.
func (s *Bolt) Get() (domain.LocationSnapshot, bool, error) {
	var snapshot domain.LocationSnapshot
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSnapshot).Get(keyCurrent)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.LocationSnapshot{}, false, err
	}
	return snapshot, found, nil
}

// Put overwrites the single cached snapshot.
func (s *Bolt) Put(snapshot domain.LocationSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSnapshot).Put(keyCurrent, data)
	})
}

// Append inserts an update record and trims the ring to domain.HistoryLimit
// inside the same write transaction, oldest first.
func (s *Bolt) Append(record domain.UpdateRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}

		// Evict oldest entries beyond the limit. Keys are collected first:
		// deleting through the bucket invalidates an open cursor.
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for i := 0; i < len(keys)-domain.HistoryLimit; i++ {
			if err := b.Delete(keys[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recent returns up to n records, most recent first.
func (s *Bolt) Recent(n int) ([]domain.UpdateRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	var records []domain.UpdateRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil && len(records) < n; k, v = c.Prev() {
			var record domain.UpdateRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// itob converts a bucket sequence number to a sortable big-endian key.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
