package flow

import (
	"context"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
)

// abortNoticeTimeout bounds the courtesy abort message to counterparties.
const abortNoticeTimeout = 3 * time.Second

// State is a step of the initiator's protocol run.
type State int32

const (
	Building State = iota
	LocallyValidated
	Signed
	CollectingSignatures
	Finalizing
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case LocallyValidated:
		return "locally validated"
	case Signed:
		return "signed"
	case CollectingSignatures:
		return "collecting signatures"
	case Finalizing:
		return "finalizing"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	default:
		return "invalid"
	}
}

// Finalizer is the external collaborator that durably records a fully
// signed transition, or rejects it.
type Finalizer interface {
	Submit(ctx context.Context, sp *iou.SignedProposal) (uint64, error)
}

// Initiator drives one transition attempt from a built proposal to its
// finality outcome. An initiator is single use, one Run per instance.
type Initiator struct {
	key    crypto.Signer
	dialer Dialer
	fin    Finalizer
	logger log.Logger
	state  State
}

// NewInitiator returns an initiator ready to run a single proposal.
func NewInitiator(key crypto.Signer, dialer Dialer, fin Finalizer, logger log.Logger) *Initiator {
	return &Initiator{
		key:    key,
		dialer: dialer,
		fin:    fin,
		logger: logger.With("module", "flow", "role", "initiator"),
		state:  Building,
	}
}

// State returns the step the last Run ended in.
func (ini *Initiator) State() State {
	return ini.state
}

func (ini *Initiator) to(s State) {
	ini.state = s
	ini.logger.Debug("state change", "state", s.String())
}

// Run executes the commit protocol for given proposal. Side effects are
// strictly ordered: no signature is requested before local validation
// passes and no finality submission happens before every declared signer
// has signed. On success the notary position is returned and every
// counterparty is told the outcome.
func (ini *Initiator) Run(ctx context.Context, p *iou.Proposal) (uint64, error) {
	pos, err := ini.run(ctx, p)
	if err != nil {
		ini.to(Aborted)
		return 0, err
	}
	ini.to(Finalized)
	return pos, nil
}

func (ini *Initiator) run(ctx context.Context, p *iou.Proposal) (uint64, error) {
	// Fail fast: an invalid proposal must not reach the network.
	if err := iou.Validate(p); err != nil {
		return 0, err
	}
	ini.to(LocallyValidated)

	sp := &iou.SignedProposal{Proposal: p}
	if err := sp.Sign(ini.key); err != nil {
		return 0, err
	}
	ini.to(Signed)

	ini.to(CollectingSignatures)
	convs, err := ini.gather(ctx, sp)
	if err != nil {
		ini.abort(convs, err)
		return 0, err
	}
	if !sp.Complete() {
		err := errors.Wrap(errors.ErrState, "signature set incomplete")
		ini.abort(convs, err)
		return 0, err
	}

	ini.to(Finalizing)
	pos, err := ini.fin.Submit(ctx, sp)
	if err != nil {
		ini.abort(convs, err)
		return 0, err
	}

	// Report the outcome so every counterparty can record the new
	// revision on its side.
	for _, conv := range convs {
		if serr := conv.Send(ctx, FinalityMsg{Position: pos, Proposal: p}); serr != nil {
			ini.logger.Error("cannot report finality", "err", serr)
		}
		_ = conv.Close()
	}
	return pos, nil
}

type gatherResult struct {
	party promissory.Condition
	conv  Conversation
	sig   iou.Signature
	err   error
}

// gather collects a signature from every declared signer but the initiator
// itself. Counterparties are contacted concurrently and all of them must
// sign, a quorum is never enough.
func (ini *Initiator) gather(ctx context.Context, sp *iou.SignedProposal) ([]Conversation, error) {
	self := ini.key.PublicKey().Condition()
	var others []promissory.Condition
	for _, cond := range sp.Proposal.SignerSet() {
		if !cond.Equals(self) {
			others = append(others, cond)
		}
	}

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan gatherResult, len(others))
	for _, party := range others {
		go func(party promissory.Condition) {
			results <- ini.request(gctx, party, sp.Proposal)
		}(party)
	}

	var (
		convs []Conversation
		first error
	)
	for i := 0; i < len(others); i++ {
		res := <-results
		if res.conv != nil {
			convs = append(convs, res.conv)
		}
		if res.err != nil {
			// A rejection names the failed rule and beats any
			// secondary transport error as the reported cause.
			if first == nil || errors.ErrRejected.Is(res.err) && !errors.ErrRejected.Is(first) {
				first = res.err
				cancel()
			}
			continue
		}
		if err := sp.Add(res.sig); err != nil && first == nil {
			first = errors.Wrapf(err, "signature from %s", res.party)
			cancel()
		}
	}
	if first != nil {
		return convs, first
	}
	return convs, nil
}

// request runs one counterparty session up to the signature exchange. The
// conversation stays open so the finality outcome can be reported later.
func (ini *Initiator) request(ctx context.Context, party promissory.Condition, p *iou.Proposal) gatherResult {
	conv, err := ini.dialer.Dial(ctx, party)
	if err != nil {
		return gatherResult{party: party, err: errors.Wrapf(err, "dial %s", party)}
	}
	if err := conv.Send(ctx, ProposalMsg{Proposal: p}); err != nil {
		return gatherResult{party: party, conv: conv, err: errors.Wrapf(err, "send to %s", party)}
	}
	msg, err := conv.Receive(ctx)
	if err != nil {
		return gatherResult{party: party, conv: conv, err: errors.Wrapf(err, "receive from %s", party)}
	}
	switch m := msg.(type) {
	case SignatureMsg:
		return gatherResult{party: party, conv: conv, sig: m.Sig}
	case RejectMsg:
		return gatherResult{party: party, conv: conv,
			err: errors.Wrapf(errors.ErrRejected, "%s: %s", party, m.Reason)}
	default:
		return gatherResult{party: party, conv: conv,
			err: errors.Wrapf(errors.ErrNetwork, "unexpected message %T from %s", msg, party)}
	}
}

// abort tells every open counterparty the protocol died and closes the
// conversations. Best effort, the responders' own deadlines are the
// backstop.
func (ini *Initiator) abort(convs []Conversation, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), abortNoticeTimeout)
	defer cancel()
	for _, conv := range convs {
		_ = conv.Send(ctx, AbortMsg{Reason: cause.Error()})
		_ = conv.Close()
	}
}
