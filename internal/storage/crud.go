package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/manav03panchal/projecthub/internal/model"
)

// ErrKeyNotFound is returned when a key is not found in the database.
var ErrKeyNotFound = errors.New("key not found")

// IsErrKeyNotFound returns true if the error is a key not found error.
func IsErrKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound) || errors.Is(err, badger.ErrKeyNotFound)
}

func getInTxn(txn *badger.Txn, key string, v model.Model) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return err
		}
		v.SetKey(key)
		return nil
	})
}

// Get retrieves a value by key and unmarshals it into v.
func (d *DB) Get(key string, v model.Model) error {
	return d.db.View(func(txn *badger.Txn) error {
		return getInTxn(txn, key, v)
	})
}

// Set stores a model under its key.
func (d *DB) Set(v model.Model) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(v.GetKey()), data)
	})
}

// Delete removes a key from the database.
func (d *DB) Delete(key string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Exists checks if a key exists in the database.
func (d *DB) Exists(key string) (bool, error) {
	var exists bool
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

// GetOrCreate loads key into existing, or stores the model built by create
// when the key is absent. The check and the write share one transaction.
func (d *DB) GetOrCreate(key string, existing model.Model, create func() model.Model) (model.Model, bool, error) {
	var (
		result  model.Model
		created bool
	)
	err := d.db.Update(func(txn *badger.Txn) error {
		err := getInTxn(txn, key, existing)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, ErrKeyNotFound) {
			return err
		}

		v := create()
		v.SetKey(key)
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return err
		}
		result, created = v, true
		return nil
	})
	return result, created, err
}

// ListByPrefix retrieves all keys with the given prefix.
func (d *DB) ListByPrefix(prefix string) ([]string, error) {
	var keys []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// DeleteByPrefix removes every key with the given prefix and returns the count.
func (d *DB) DeleteByPrefix(prefix string) (int, error) {
	keys, err := d.ListByPrefix(prefix)
	if err != nil {
		return 0, err
	}
	err = d.Batch(func(b *Batch) error {
		for _, key := range keys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// GetAllByPrefix retrieves all values with the given prefix, in key order.
func GetAllByPrefix[T model.Model](d *DB, prefix string, newFunc func() T) ([]T, error) {
	var results []T
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				v := newFunc()
				if err := json.Unmarshal(val, v); err != nil {
					return err
				}
				v.SetKey(string(item.KeyCopy(nil)))
				results = append(results, v)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return results, err
}

// ErrBatchTooLarge is returned when a batch outgrows one Badger transaction.
// Nothing from the batch is written.
var ErrBatchTooLarge = errors.New("batch exceeds the transaction size limit")

// Batch groups writes into one transaction. Either every staged write is
// committed or none is.
type Batch struct {
	txn *badger.Txn
	n   int
}

// Batch runs fn with a write batch and commits it if fn succeeds.
func (d *DB) Batch(fn func(b *Batch) error) error {
	b := &Batch{txn: d.db.NewTransaction(true)}
	defer b.txn.Discard()

	if err := fn(b); err != nil {
		return err
	}
	return b.txn.Commit()
}

// Set stages a model write.
func (b *Batch) Set(v model.Model) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.apply(func(txn *badger.Txn) error {
		return txn.Set([]byte(v.GetKey()), data)
	})
}

// Delete stages a key deletion.
func (b *Batch) Delete(key string) error {
	return b.apply(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return b.n
}

func (b *Batch) apply(op func(*badger.Txn) error) error {
	err := op(b.txn)
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w after %d writes", ErrBatchTooLarge, b.n)
	}
	if err != nil {
		return err
	}
	b.n++
	return nil
}
