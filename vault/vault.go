/*
Package vault stores one party's view of record revisions.

Every party of the network runs its own vault. A vault holds at most one
unconsumed revision per linear ID, exactly mirroring the guarantee the
finality layer provides for the ledger as a whole, plus the full revision
history for auditing. The vault is a passive collaborator: it never mutates
a stored revision, records go in and come out as independent copies.
*/
package vault

import (
	"encoding/binary"
	"sync"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
	"github.com/iov-one/promissory/store"
)

var (
	unconsumedPrefix = []byte("u:")
	historyPrefix    = []byte("h:")
	counterPrefix    = []byte("c:")
)

// Vault is a store of record revisions, safe for concurrent use.
type Vault struct {
	mu sync.RWMutex
	db store.KVStore
}

var _ iou.RecordLookup = (*Vault)(nil)

// New returns a vault backed by a fresh in-memory store.
func New() *Vault {
	return NewWithStore(store.MemStore())
}

// NewWithStore returns a vault persisting into the given store.
func NewWithStore(db store.KVStore) *Vault {
	return &Vault{db: db}
}

// Put records a new unconsumed revision. There must be no other unconsumed
// revision under the same linear ID.
func (v *Vault) Put(rec *iou.IOU) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.put(rec)
}

func (v *Vault) put(rec *iou.IOU) error {
	if err := rec.Validate(); err != nil {
		return errors.Wrap(err, "invalid record")
	}
	key := unconsumedKey(rec.LinearID)
	if ok, err := v.db.Has(key); err != nil {
		return err
	} else if ok {
		return errors.Wrapf(errors.ErrDuplicate, "unconsumed revision exists: %s", rec.LinearID)
	}

	raw, err := rec.Marshal()
	if err != nil {
		return err
	}
	if err := v.db.Set(key, raw); err != nil {
		return err
	}
	return v.appendHistory(rec.LinearID, raw)
}

// FindUnconsumed returns the single unconsumed revision of the given record.
// The returned value is a private copy of the stored one.
func (v *Vault) FindUnconsumed(id iou.LinearID) (*iou.IOU, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	raw, err := v.db.Get(unconsumedKey(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no unconsumed revision: %s", id)
	}
	var rec iou.IOU
	if err := rec.Unmarshal(raw); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Consume removes the unconsumed revision of the given record. The history
// is retained.
func (v *Vault) Consume(id iou.LinearID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.consume(id)
}

func (v *Vault) consume(id iou.LinearID) error {
	key := unconsumedKey(id)
	if ok, err := v.db.Has(key); err != nil {
		return err
	} else if !ok {
		return errors.Wrapf(errors.ErrNotFound, "no unconsumed revision: %s", id)
	}
	return v.db.Delete(key)
}

// Apply records a finalized transition from the given party's point of
// view: the consumed input revision is retired if this party held it and
// the produced output, if any, is stored when this party takes part in it.
// A party drawn into a record for the first time holds no input to retire
// and a party leaving the record does not store the output. The whole
// update is performed under a single lock so that a concurrent lookup never
// observes a half applied transition.
func (v *Vault) Apply(self promissory.Condition, p *iou.Proposal) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p.Input != nil {
		held, err := v.db.Has(unconsumedKey(p.Input.LinearID))
		if err != nil {
			return err
		}
		if held {
			if err := v.consume(p.Input.LinearID); err != nil {
				return err
			}
		}
	}
	if p.Output != nil && p.Output.Participants().Contains(self) {
		if err := v.put(p.Output.Copy()); err != nil {
			return err
		}
	}
	return nil
}

// ListUnconsumed returns all live records, ordered by linear ID.
func (v *Vault) ListUnconsumed() ([]*iou.IOU, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var recs []*iou.IOU
	var iterErr error
	start, end := store.PrefixRange(unconsumedPrefix)
	err := v.db.Iterate(start, end, func(key, value []byte) bool {
		var rec iou.IOU
		if iterErr = rec.Unmarshal(value); iterErr != nil {
			return false
		}
		recs = append(recs, &rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return recs, iterErr
}

// History returns every revision ever recorded under the given linear ID,
// oldest first.
func (v *Vault) History(id iou.LinearID) ([]*iou.IOU, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var recs []*iou.IOU
	var iterErr error
	prefix := append(append([]byte(nil), historyPrefix...), id...)
	prefix = append(prefix, ':')
	start, end := store.PrefixRange(prefix)
	err := v.db.Iterate(start, end, func(key, value []byte) bool {
		var rec iou.IOU
		if iterErr = rec.Unmarshal(value); iterErr != nil {
			return false
		}
		recs = append(recs, &rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return recs, iterErr
}

func (v *Vault) appendHistory(id iou.LinearID, raw []byte) error {
	next, err := v.nextSeq(id)
	if err != nil {
		return err
	}
	return v.db.Set(historyKey(id, next), raw)
}

func (v *Vault) nextSeq(id iou.LinearID) (uint64, error) {
	key := append(append([]byte(nil), counterPrefix...), id...)
	raw, err := v.db.Get(key)
	if err != nil {
		return 0, err
	}
	var n uint64
	if raw != nil {
		n = binary.BigEndian.Uint64(raw)
	}
	n++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	if err := v.db.Set(key, buf); err != nil {
		return 0, err
	}
	return n, nil
}

func unconsumedKey(id iou.LinearID) []byte {
	return append(append([]byte(nil), unconsumedPrefix...), id...)
}

func historyKey(id iou.LinearID, seq uint64) []byte {
	key := append(append([]byte(nil), historyPrefix...), id...)
	key = append(key, ':')
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return append(key, buf...)
}
