/*
Package store provides the key-value storage used by the vault and the cash
extension. The only implementation is an in-memory btree, which is all the
demo network needs. Persistent backends belong to the excluded ledger
substrate and can implement the same interface.
*/
package store

import (
	"bytes"

	"github.com/google/btree"

	"github.com/iov-one/promissory/errors"
)

const (
	// DefaultFreeListSize is the size we hold for free nodes in the btree
	DefaultFreeListSize = btree.DefaultFreeListSize
)

// ReadOnlyKVStore is the subset of KVStore methods that cannot modify state.
type ReadOnlyKVStore interface {
	// Get returns nil iff key doesn't exist. Panics on nil key.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists. Panics on nil key.
	Has(key []byte) (bool, error)

	// Iterate calls fn for every key under this store within the range
	// [start, end), in ascending key order. Iteration stops early when fn
	// returns false. A nil start iterates from the first key, a nil end
	// until the last one.
	Iterate(start, end []byte, fn func(key, value []byte) bool) error
}

// KVStore is a simple interface to get/set data
type KVStore interface {
	ReadOnlyKVStore

	// Set sets the key. Panics on nil key.
	Set(key, value []byte) error

	// Delete deletes the key. Panics on nil key.
	Delete(key []byte) error
}

// MemStore returns a btree backed KVStore. There is no persistence here.
func MemStore() KVStore {
	return &memStore{
		bt: btree.NewWithFreeList(2, btree.NewFreeList(DefaultFreeListSize)),
	}
}

type memStore struct {
	bt *btree.BTree
}

var _ KVStore = (*memStore)(nil)

// Set writes to the btree
func (m *memStore) Set(key, value []byte) error {
	m.bt.ReplaceOrInsert(newItem(key, value))
	return nil
}

// Delete removes the key from the btree
func (m *memStore) Delete(key []byte) error {
	m.bt.Delete(bkey{key})
	return nil
}

// Get reads from the btree
func (m *memStore) Get(key []byte) ([]byte, error) {
	res := m.bt.Get(bkey{key})
	if res == nil {
		return nil, nil
	}
	it, ok := res.(item)
	if !ok {
		return nil, errors.Wrapf(errors.ErrHuman, "unknown item in btree: %#v", res)
	}
	return it.value, nil
}

// Has reads from the btree
func (m *memStore) Has(key []byte) (bool, error) {
	return m.bt.Has(bkey{key}), nil
}

// Iterate walks the btree in ascending key order within [start, end).
func (m *memStore) Iterate(start, end []byte, fn func(key, value []byte) bool) error {
	var iterErr error
	visit := func(i btree.Item) bool {
		it, ok := i.(item)
		if !ok {
			iterErr = errors.Wrapf(errors.ErrHuman, "unknown item in btree: %#v", i)
			return false
		}
		return fn(it.key, it.value)
	}
	switch {
	case start == nil && end == nil:
		m.bt.Ascend(visit)
	case start == nil:
		m.bt.AscendLessThan(bkey{end}, visit)
	case end == nil:
		m.bt.AscendGreaterOrEqual(bkey{start}, visit)
	default:
		m.bt.AscendRange(bkey{start}, bkey{end}, visit)
	}
	return iterErr
}

// bkey implements btree.Item for plain key lookups
type bkey struct {
	key []byte
}

var _ btree.Item = bkey{}

// Less returns true iff second argument is greater than first
//
// panics if the item to compare doesn't implement keyer.
func (k bkey) Less(item btree.Item) bool {
	cmp := item.(keyer).Key()
	return bytes.Compare(k.key, cmp) < 0
}

// Key returns the key of the item this refers to
func (k bkey) Key() []byte {
	return k.key
}

// item is a btree node holding a full key-value pair
type item struct {
	bkey
	value []byte
}

// newItem sets the key-value pair, copying both slices so that the caller
// can reuse its buffers.
func newItem(key, value []byte) item {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	return item{bkey{k}, v}
}

// keyer is an interface to get the sort key of an item
type keyer interface {
	Key() []byte
}

// PrefixRange turns a prefix into (start, end) to create
// and iterator
func PrefixRange(prefix []byte) ([]byte, []byte) {
	// special case: no prefix is whole range
	if len(prefix) == 0 {
		return nil, nil
	}

	// find the last byte that can be incremented and cut there, any
	// 0xff suffix would just carry over
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] < 0xff {
			end := make([]byte, i+1)
			copy(end, prefix)
			end[i]++
			return prefix, end
		}
	}

	// prefix is all 0xff, no end to the range
	return prefix, nil
}
