package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-inspect/internal/inspect/domain"
	"github.com/haukened/rr-inspect/internal/inspect/repos/history"
)

var bucketRuns = []byte("runs")

// boltStore implements history.Store using bbolt. Keys are big-endian unix
// milliseconds so cursor order is chronological.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (history.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) Save(takenAt time.Time, snap domain.TrafficSnapshot) error {
	doc := history.NewDocument(snap, takenAt)
	val, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := encodeKey(doc.Timestamp)
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).Put(key, val)
	})
}

func (s *boltStore) List() ([]history.Entry, error) {
	var out []history.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			e, err := decodeEntry(k, v)
			if err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	return out, err
}

func (s *boltStore) Latest() (history.Entry, error) {
	var (
		e     history.Entry
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(bucketRuns).Cursor().Last()
		if k == nil {
			return nil
		}
		var err error
		e, err = decodeEntry(k, v)
		found = err == nil
		return err
	})
	if err != nil {
		return history.Entry{}, err
	}
	if !found {
		return history.Entry{}, history.ErrEmpty
	}
	return e, nil
}

func encodeKey(ms int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ms))
	return buf
}

func decodeEntry(k, v []byte) (history.Entry, error) {
	if len(k) != 8 {
		return history.Entry{}, fmt.Errorf("corrupt history key of length %d", len(k))
	}
	var doc history.Document
	if err := json.Unmarshal(v, &doc); err != nil {
		return history.Entry{}, fmt.Errorf("corrupt history entry: %w", err)
	}
	ms := int64(binary.BigEndian.Uint64(k))
	return history.Entry{TakenAt: time.UnixMilli(ms), Snapshot: doc.Snapshot()}, nil
}
