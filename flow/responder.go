package flow

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
)

// RecordStore is the slice of a party's vault the protocol needs: lookup
// for the independent re-validation and the atomic update on finality.
type RecordStore interface {
	FindUnconsumed(id iou.LinearID) (*iou.IOU, error)
	Apply(self promissory.Condition, p *iou.Proposal) error
}

// ResponderState is a step of the responder's protocol run.
type ResponderState int32

const (
	AwaitingProposal ResponderState = iota
	Validating
	ResponderSigned
	Rejected
	AwaitingFinality
	ResponderFinalized
)

func (s ResponderState) String() string {
	switch s {
	case AwaitingProposal:
		return "awaiting proposal"
	case Validating:
		return "validating"
	case ResponderSigned:
		return "signed"
	case Rejected:
		return "rejected"
	case AwaitingFinality:
		return "awaiting finality"
	case ResponderFinalized:
		return "finalized"
	default:
		return "invalid"
	}
}

// Responder serves one party's side of incoming commit protocol sessions.
// It never trusts the initiator: every proposal is re-validated before a
// signature is produced.
type Responder struct {
	key     crypto.Signer
	records RecordStore
	logger  log.Logger
}

// NewResponder returns a responder signing with the given key and recording
// finalized revisions in the given store.
func NewResponder(key crypto.Signer, records RecordStore, logger log.Logger) *Responder {
	return &Responder{
		key:     key,
		records: records,
		logger:  logger.With("module", "flow", "role", "responder"),
	}
}

// Serve handles a single session: receive the proposal, validate, sign or
// reject, await finality and record the outcome. The context bounds every
// wait, a responder that never hears back returns once the deadline passes.
func (r *Responder) Serve(ctx context.Context, conv Conversation) (ResponderState, error) {
	defer conv.Close()

	state := AwaitingProposal
	msg, err := conv.Receive(ctx)
	if err != nil {
		return state, errors.Wrap(err, "awaiting proposal")
	}
	prop, ok := msg.(ProposalMsg)
	if !ok {
		return state, errors.Wrapf(errors.ErrNetwork, "unexpected message %T", msg)
	}
	p := prop.Proposal

	state = Validating
	if err := r.check(p); err != nil {
		state = Rejected
		r.logger.Info("proposal rejected", "kind", p.Kind.String(), "cause", err.Error())
		if serr := conv.Send(ctx, RejectMsg{Reason: err.Error()}); serr != nil {
			return state, errors.Wrap(serr, "send rejection")
		}
		return state, err
	}

	sp := &iou.SignedProposal{Proposal: p}
	if err := sp.Sign(r.key); err != nil {
		return state, err
	}
	if err := conv.Send(ctx, SignatureMsg{Sig: sp.Signatures[0]}); err != nil {
		return state, errors.Wrap(err, "send signature")
	}
	state = ResponderSigned

	state = AwaitingFinality
	msg, err = conv.Receive(ctx)
	if err != nil {
		return state, errors.Wrap(err, "awaiting finality")
	}
	switch m := msg.(type) {
	case FinalityMsg:
		self := r.key.PublicKey().Condition()
		if err := r.records.Apply(self, m.Proposal); err != nil {
			return state, errors.Wrap(err, "record finalized revision")
		}
		r.logger.Info("transition finalized",
			"kind", m.Proposal.Kind.String(),
			"position", m.Position,
		)
		return ResponderFinalized, nil
	case AbortMsg:
		return state, errors.Wrapf(errors.ErrState, "protocol aborted: %s", m.Reason)
	default:
		return state, errors.Wrapf(errors.ErrNetwork, "unexpected message %T", msg)
	}
}

// check is the responder's own verdict on a proposal. The validation engine
// ruling comes first, then local sanity: this party must actually be a
// declared signer and, when it already holds the consumed record, the
// initiator's copy must match its own.
func (r *Responder) check(p *iou.Proposal) error {
	if err := iou.Validate(p); err != nil {
		return err
	}
	self := r.key.PublicKey().Condition()
	if !p.SignerSet().Contains(self) {
		return errors.Wrap(errors.ErrUnauthorized, "not a declared signer")
	}
	if p.Input != nil {
		own, err := r.records.FindUnconsumed(p.Input.LinearID)
		switch {
		case errors.ErrNotFound.Is(err):
			// A party drawn into a record for the first time, the
			// incoming lender of a transfer, holds no prior
			// revision to compare against.
		case err != nil:
			return err
		case !own.Equals(p.Input):
			return errors.Wrap(errors.ErrState, "input does not match the revision this party holds")
		}
	}
	return nil
}
