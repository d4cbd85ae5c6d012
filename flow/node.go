package flow

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/cash"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/iou"
	"github.com/iov-one/promissory/vault"
)

// Node is one party of the network: its signing key, its own vault of
// records and its responder service. The payment asset ledger and the
// notary are shared external collaborators, every node talks to the same
// ones.
type Node struct {
	name   string
	key    *crypto.PrivateKey
	vault  *vault.Vault
	cash   *cash.Keeper
	net    *Network
	fin    Finalizer
	logger log.Logger
}

// NewNode creates a party, registers it on the network and returns it. The
// responder service is not running until Start is called.
func NewNode(name string, key *crypto.PrivateKey, net *Network, fin Finalizer, cashLedger *cash.Keeper, logger log.Logger) *Node {
	return &Node{
		name:   name,
		key:    key,
		vault:  vault.New(),
		cash:   cashLedger,
		net:    net,
		fin:    fin,
		logger: logger.With("party", name),
	}
}

// Condition returns the signature condition this party is addressed by.
func (n *Node) Condition() promissory.Condition {
	return n.key.PublicKey().Condition()
}

// Vault exposes this party's own record store.
func (n *Node) Vault() *vault.Vault {
	return n.vault
}

// Start runs the responder service until the context is cancelled. Every
// incoming conversation is served on its own goroutine.
func (n *Node) Start(ctx context.Context) {
	inbox := n.net.Listen(n.Condition())
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case conv := <-inbox:
				go func(conv Conversation) {
					r := NewResponder(n.key, n.vault, n.logger)
					if _, err := r.Serve(ctx, conv); err != nil {
						n.logger.Error("session failed", "err", err.Error())
					}
				}(conv)
			}
		}
	}()
}

// Issue creates a brand new record lending the face amount to the borrower
// and blocks until it is finalized.
func (n *Node) Issue(ctx context.Context, borrower promissory.Condition, face coin.Coin) (*iou.IOU, error) {
	p, err := iou.BuildIssue(n.Condition(), borrower, face)
	if err != nil {
		return nil, err
	}
	return n.commit(ctx, p)
}

// Transfer hands the record over to a new lender. Only the current lender
// may call this.
func (n *Node) Transfer(ctx context.Context, id iou.LinearID, newLender promissory.Condition) (*iou.IOU, error) {
	p, err := iou.BuildTransfer(n.vault, n.Condition(), id, newLender)
	if err != nil {
		return nil, err
	}
	return n.commit(ctx, p)
}

// Settle pays the given amount towards the record. Only the current
// borrower may call this. Settling the full outstanding amount terminates
// the record and returns a nil revision.
func (n *Node) Settle(ctx context.Context, id iou.LinearID, amount coin.Coin) (*iou.IOU, error) {
	p, err := iou.BuildSettle(n.vault, n.cash, n.Condition(), id, amount)
	if err != nil {
		return nil, err
	}
	return n.commit(ctx, p)
}

// commit drives the proposal through the initiator role and, once
// finalized, records the outcome on this party's side: the vault update
// and, for a settlement, the payment asset movements.
func (n *Node) commit(ctx context.Context, p *iou.Proposal) (*iou.IOU, error) {
	ini := NewInitiator(n.key, n.net, n.fin, n.logger)
	pos, err := ini.Run(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := n.vault.Apply(n.Condition(), p); err != nil {
		return nil, err
	}
	if p.Kind == iou.Settle {
		if err := n.cash.Apply(p.Input.Borrower, p.Payments); err != nil {
			return nil, err
		}
	}
	n.logger.Info("transition finalized",
		"kind", p.Kind.String(),
		"position", pos,
	)
	return p.Output, nil
}
