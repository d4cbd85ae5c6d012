/*
Package notary is the finality collaborator: it totally orders finalized
transitions and guarantees that no record revision is ever consumed twice.

This is an in-memory stand-in for the distributed ledger substrate the
system runs against in production. It is deliberately strict: before a
transition is recorded the notary independently re-runs the validation
engine and verifies every declared signature, trusting no submitting party.
*/
package notary

import (
	"bytes"
	"context"
	"sync"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
)

// Notary finalizes transitions one at a time. Submissions racing to consume
// the same revision are serialized and only the first one wins.
type Notary struct {
	mu     sync.Mutex
	logger log.Logger
	seq    uint64
	// tips maps a linear ID to the digest of its single unconsumed
	// revision. A terminated record has no tip but stays in seen.
	tips map[string][]byte
	seen map[string]bool
}

// New returns an empty notary.
func New(logger log.Logger) *Notary {
	return &Notary{
		logger: logger.With("module", "notary"),
		tips:   make(map[string][]byte),
		seen:   make(map[string]bool),
	}
}

// Submit records a fully signed transition. On success it returns the
// position of the transition in the total order. A transition is recorded
// atomically: either it is finalized as a whole or it has no effect.
func (n *Notary) Submit(ctx context.Context, sp *iou.SignedProposal) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(errors.ErrTimeout, err.Error())
	}
	if sp == nil || sp.Proposal == nil {
		return 0, errors.Wrap(errors.ErrEmpty, "no proposal")
	}

	// Never trust the submitter: re-run the validation engine and check
	// every signature before touching any state.
	if err := iou.Validate(sp.Proposal); err != nil {
		return 0, errors.Wrap(err, "validation")
	}
	if err := sp.VerifySignatures(); err != nil {
		return 0, errors.Wrap(err, "signatures")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	p := sp.Proposal
	switch {
	case p.Input == nil:
		// A fresh record: its identity must never have been used.
		id := string(p.Output.LinearID)
		if n.seen[id] {
			return 0, errors.Wrapf(errors.ErrDuplicate, "linear id already issued: %s", p.Output.LinearID)
		}
		digest, err := p.Output.Digest()
		if err != nil {
			return 0, err
		}
		n.seen[id] = true
		n.tips[id] = digest
	default:
		id := string(p.Input.LinearID)
		digest, err := p.Input.Digest()
		if err != nil {
			return 0, err
		}
		tip, live := n.tips[id]
		switch {
		case !n.seen[id]:
			return 0, errors.Wrapf(errors.ErrNotFound, "unknown record: %s", p.Input.LinearID)
		case !live || !bytes.Equal(tip, digest):
			// Either the record terminated or another transition
			// consumed this revision first.
			return 0, errors.Wrapf(errors.ErrDoubleSpend, "record: %s", p.Input.LinearID)
		}
		if p.Output == nil {
			delete(n.tips, id)
		} else {
			next, err := p.Output.Digest()
			if err != nil {
				return 0, err
			}
			n.tips[id] = next
		}
	}

	n.seq++
	n.logger.Info("transition finalized",
		"position", n.seq,
		"kind", p.Kind.String(),
	)
	return n.seq, nil
}
