package iou

import (
	amino "github.com/tendermint/go-amino"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
)

// Kind enumerates the transition kinds. This is a closed set: the validation
// engine matches it exhaustively and adding a kind is a compile time visible
// change.
type Kind int32

const (
	// Issue creates a new record with nothing consumed.
	Issue Kind = 1
	// Transfer replaces the lender of an existing record.
	Transfer Kind = 2
	// Settle pays down the outstanding amount, terminating the record on
	// full payment.
	Settle Kind = 3
)

func (k Kind) String() string {
	switch k {
	case Issue:
		return "issue"
	case Transfer:
		return "transfer"
	case Settle:
		return "settle"
	default:
		return "invalid"
	}
}

// Validate returns an error unless this is one of the declared kinds.
func (k Kind) Validate() error {
	switch k {
	case Issue, Transfer, Settle:
		return nil
	default:
		return errors.ErrMsg.Newf("unknown transition kind: %d", k)
	}
}

// Proposal is a candidate transition of a single record: the prior revision
// it consumes, the revision it produces, the declared intent and the exact
// set of parties that must counter-sign.
//
// A proposal is owned by the initiating party until submitted for finality.
type Proposal struct {
	Kind Kind `json:"kind"`
	// Input is the consumed prior revision. It must be nil for an issue.
	Input *IOU `json:"input,omitempty"`
	// Output is the produced revision. It must be nil when a settlement
	// pays the record off completely.
	Output *IOU `json:"output,omitempty"`
	// Signers is the declared signer set. The validation engine rejects
	// the proposal unless this is exactly the set the kind requires.
	Signers []promissory.Condition `json:"signers"`
	// Payments are the payment asset movements accompanying a
	// settlement. Their authenticity is upheld by the payment asset
	// ledger, only their shape is inspected here.
	Payments []promissory.Payment `json:"payments,omitempty"`
}

// cdc provides the deterministic binary encoding that signatures are
// computed over. All parties must derive the very same bytes from the very
// same proposal.
var cdc = amino.NewCodec()

// SignBytes returns the canonical byte representation of this proposal that
// every required signer signs.
func (p *Proposal) SignBytes() ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal proposal")
	}
	return raw, nil
}

// SignerSet returns the declared signers as a deduplicated set.
func (p *Proposal) SignerSet() promissory.ConditionSet {
	return promissory.UnionConditions(p.Signers)
}

// Copy returns a deep copy of the proposal.
func (p *Proposal) Copy() *Proposal {
	if p == nil {
		return nil
	}
	cpy := &Proposal{
		Kind:   p.Kind,
		Input:  p.Input.Copy(),
		Output: p.Output.Copy(),
	}
	for _, s := range p.Signers {
		cpy.Signers = append(cpy.Signers, append(promissory.Condition(nil), s...))
	}
	for _, pay := range p.Payments {
		cpy.Payments = append(cpy.Payments, promissory.Payment{
			Recipient: append(promissory.Condition(nil), pay.Recipient...),
			Amount:    pay.Amount,
		})
	}
	return cpy
}

// Signature binds a signer condition to its signature over the proposal
// sign bytes.
type Signature struct {
	Signer promissory.Condition `json:"signer"`
	Sig    []byte               `json:"sig"`
}

// SignedProposal is a proposal together with the counter-signatures gathered
// so far. Once every declared signer has signed it can be submitted for
// finality.
type SignedProposal struct {
	Proposal   *Proposal   `json:"proposal"`
	Signatures []Signature `json:"signatures"`
}

// Sign appends a signature produced with the given key. It is an error to
// sign with a key that is not part of the declared signer set, or to sign
// twice.
func (sp *SignedProposal) Sign(key crypto.Signer) error {
	cond := key.PublicKey().Condition()
	if !sp.Proposal.SignerSet().Contains(cond) {
		return errors.Wrap(errors.ErrUnauthorized, "not a declared signer")
	}
	if sp.SignedBy(cond) {
		return errors.Wrap(errors.ErrDuplicate, "already signed")
	}
	raw, err := sp.Proposal.SignBytes()
	if err != nil {
		return err
	}
	sig, err := key.Sign(raw)
	if err != nil {
		return errors.Wrap(err, "sign proposal")
	}
	sp.Signatures = append(sp.Signatures, Signature{Signer: cond, Sig: sig})
	return nil
}

// Add merges a counterparty signature after verifying it belongs to the
// declared signer set and is valid for the proposal sign bytes.
func (sp *SignedProposal) Add(sig Signature) error {
	if !sp.Proposal.SignerSet().Contains(sig.Signer) {
		return errors.Wrap(errors.ErrUnauthorized, "not a declared signer")
	}
	if sp.SignedBy(sig.Signer) {
		return errors.Wrap(errors.ErrDuplicate, "already signed")
	}
	raw, err := sp.Proposal.SignBytes()
	if err != nil {
		return err
	}
	if !crypto.VerifyCondition(sig.Signer, raw, sig.Sig) {
		return errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}
	sp.Signatures = append(sp.Signatures, sig)
	return nil
}

// SignedBy returns true if given condition already signed.
func (sp *SignedProposal) SignedBy(cond promissory.Condition) bool {
	for _, sig := range sp.Signatures {
		if sig.Signer.Equals(cond) {
			return true
		}
	}
	return false
}

// Complete returns true once every declared signer has signed. Collecting
// signatures is a full barrier, a quorum is never enough.
func (sp *SignedProposal) Complete() bool {
	for _, cond := range sp.Proposal.SignerSet() {
		if !sp.SignedBy(cond) {
			return false
		}
	}
	return true
}

// VerifySignatures checks that every declared signer has provided a valid
// signature over the proposal sign bytes.
func (sp *SignedProposal) VerifySignatures() error {
	raw, err := sp.Proposal.SignBytes()
	if err != nil {
		return err
	}
	for _, cond := range sp.Proposal.SignerSet() {
		var found *Signature
		for i := range sp.Signatures {
			if sp.Signatures[i].Signer.Equals(cond) {
				found = &sp.Signatures[i]
				break
			}
		}
		if found == nil {
			return errors.ErrUnauthorized.Newf("missing signature: %s", cond)
		}
		if !crypto.VerifyCondition(found.Signer, raw, found.Sig) {
			return errors.ErrUnauthorized.Newf("invalid signature: %s", cond)
		}
	}
	return nil
}
