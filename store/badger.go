package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

const (
	searchPrefix = "search/"
	hashPrefix   = "hash/"
)

// Badger stores records in an embedded BadgerDB directory. Each record is
// kept under search/<id> with an empty index key hash/<hash>/<id>.
type Badger struct {
	db *badger.DB
}

func OpenBadger(dir string) (*Badger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Save(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(searchPrefix+rec.ID), data); err != nil {
			return err
		}
		return txn.Set(hashKey(rec.Hash, rec.ID), nil)
	})
}

func (b *Badger) Load(_ context.Context, id string) (Record, error) {
	var rec Record
	err := b.db.View(func(txn *badger.Txn) error {
		return get(txn, id, &rec)
	})
	return rec, err
}

func (b *Badger) ByHash(_ context.Context, hash string) ([]Record, error) {
	var recs []Record
	prefix := hashKey(hash, "")
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			var rec Record
			if err := get(txn, id, &rec); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	sortByTime(recs)
	return recs, err
}

func (b *Badger) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

func get(txn *badger.Txn, id string, rec *Record) error {
	item, err := txn.Get([]byte(searchPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}

func hashKey(hash, id string) []byte {
	return []byte(hashPrefix + hash + "/" + id)
}
