package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"zclc/internal/emit"
	"zclc/internal/zcl"
)

var (
	bucketCatalog = []byte("catalog")
	bucketBuilds  = []byte("builds")
	keyTable      = []byte("table")
	keyBuild      = []byte("build")
)

// BoltStore implements Store using BoltDB. The catalog is held as its
// CBOR descriptor table.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketCatalog, bucketBuilds} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveCatalog(cat *zcl.Catalog, info *BuildInfo) error {
	table, err := emit.EncodeTable(cat)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		cb := tx.Bucket(bucketCatalog)
		bb := tx.Bucket(bucketBuilds)
		if cb == nil || bb == nil {
			return fmt.Errorf("bucket %q or %q not found", bucketCatalog, bucketBuilds)
		}

		seq, err := bb.NextSequence()
		if err != nil {
			return err
		}
		info.Seq = seq
		data, err := json.Marshal(info)
		if err != nil {
			return err
		}
		if err := bb.Put(seqKey(seq), data); err != nil {
			return err
		}
		if err := cb.Put(keyTable, table); err != nil {
			return err
		}
		return cb.Put(keyBuild, data)
	})
}

func (s *BoltStore) LoadCatalog() (*zcl.Catalog, *BuildInfo, error) {
	var (
		table []byte
		info  BuildInfo
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCatalog)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketCatalog)
		}
		data := b.Get(keyTable)
		if data == nil {
			return fmt.Errorf("catalog: %w", ErrNotFound)
		}
		// Values are only valid for the life of the transaction.
		table = append([]byte(nil), data...)
		if meta := b.Get(keyBuild); meta != nil {
			return json.Unmarshal(meta, &info)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	cat, err := emit.DecodeTable(table)
	if err != nil {
		return nil, nil, err
	}
	return cat, &info, nil
}

func (s *BoltStore) Builds(limit int) ([]*BuildInfo, error) {
	var builds []*BuildInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBuilds)
		if b == nil {
			return nil // no bucket = no builds
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(builds) >= limit {
				break
			}
			var info BuildInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			builds = append(builds, &info)
		}
		return nil
	})
	return builds, err
}

func (s *BoltStore) PruneBuilds(keep int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBuilds)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketBuilds)
		}
		var stale [][]byte
		c := b.Cursor()
		n := 0
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			n++
			if n > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// seqKey encodes a sequence number so keys sort in build order.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
