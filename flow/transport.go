package flow

import (
	"context"
	"sync"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
)

// Message is one protocol message. The set of messages is closed: a session
// carries proposals, signatures, rejections and finality reports, nothing
// else.
type Message interface {
	flowMessage()
}

// ProposalMsg opens a session: the initiator asks the receiving party to
// counter-sign the enclosed proposal.
type ProposalMsg struct {
	Proposal *iou.Proposal
}

// SignatureMsg is the responder's consent: its signature over the proposal
// sign bytes.
type SignatureMsg struct {
	Sig iou.Signature
}

// RejectMsg is the responder's refusal to sign, with the failed rule.
type RejectMsg struct {
	Reason string
}

// FinalityMsg reports a finalized transition back to a responder, with its
// position in the notary's total order.
type FinalityMsg struct {
	Position uint64
	Proposal *iou.Proposal
}

// AbortMsg tells a responder the protocol died before finality.
type AbortMsg struct {
	Reason string
}

func (ProposalMsg) flowMessage()  {}
func (SignatureMsg) flowMessage() {}
func (RejectMsg) flowMessage()    {}
func (FinalityMsg) flowMessage()  {}
func (AbortMsg) flowMessage()     {}

// Conversation is one reliable, ordered session with a single counterparty.
type Conversation interface {
	Send(ctx context.Context, msg Message) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// Dialer opens conversations with other parties.
type Dialer interface {
	Dial(ctx context.Context, party promissory.Condition) (Conversation, error)
}

// Network is an in process switchboard. Every party registers under its
// condition and receives incoming conversations on its listen channel.
type Network struct {
	mu      sync.Mutex
	inboxes map[string]chan Conversation
}

// NewNetwork returns a switchboard with no parties.
func NewNetwork() *Network {
	return &Network{
		inboxes: make(map[string]chan Conversation),
	}
}

// Listen registers a party and returns the channel its incoming
// conversations are delivered on. Registering the same party twice returns
// the same channel.
func (n *Network) Listen(party promissory.Condition) <-chan Conversation {
	n.mu.Lock()
	defer n.mu.Unlock()

	inbox, ok := n.inboxes[party.String()]
	if !ok {
		inbox = make(chan Conversation, 8)
		n.inboxes[party.String()] = inbox
	}
	return inbox
}

// Dial opens a conversation with a registered party. The remote end is
// delivered on the party's listen channel.
func (n *Network) Dial(ctx context.Context, party promissory.Condition) (Conversation, error) {
	n.mu.Lock()
	inbox, ok := n.inboxes[party.String()]
	n.mu.Unlock()
	if !ok {
		return nil, errors.Wrapf(errors.ErrNetwork, "unknown party: %s", party)
	}

	local, remote := newPipe()
	select {
	case inbox <- remote:
		return local, nil
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
	}
}

// pipe is one end of an in memory conversation. Channels are buffered so a
// final message can be sent and the conversation closed without waiting for
// the peer to read it.
type pipe struct {
	in   chan Message
	out  chan Message
	done chan struct{}
	once *sync.Once
}

func newPipe() (*pipe, *pipe) {
	a := make(chan Message, 4)
	b := make(chan Message, 4)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipe{in: a, out: b, done: done, once: once},
		&pipe{in: b, out: a, done: done, once: once}
}

func (p *pipe) Send(ctx context.Context, msg Message) error {
	select {
	case <-p.done:
		return errors.Wrap(errors.ErrNetwork, "conversation closed")
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return errors.Wrap(errors.ErrNetwork, "conversation closed")
	case <-ctx.Done():
		return errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
	}
}

func (p *pipe) Receive(ctx context.Context) (Message, error) {
	// A message delivered before the close must still be read.
	select {
	case msg := <-p.in:
		return msg, nil
	default:
	}
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.done:
		// The peer may send its final message and close right away,
		// both channels being ready at once must not drop the message.
		select {
		case msg := <-p.in:
			return msg, nil
		default:
		}
		return nil, errors.Wrap(errors.ErrNetwork, "conversation closed")
	case <-ctx.Done():
		return nil, errors.Wrap(errors.ErrTimeout, ctx.Err().Error())
	}
}

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
