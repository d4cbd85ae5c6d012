package notary

import (
	"context"
	"testing"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
)

func testKey(name string) *crypto.PrivateKey {
	var seed [32]byte
	copy(seed[:], name)
	return crypto.PrivKeyEd25519FromSeed(seed)
}

func testCond(name string) promissory.Condition {
	return testKey(name).PublicKey().Condition()
}

func usd(whole int64) coin.Coin {
	return coin.NewCoin(whole, 0, "USD")
}

// signedIssue builds a fully signed issue transition between alice and bob.
func signedIssue(t *testing.T, face coin.Coin) *iou.SignedProposal {
	t.Helper()
	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), face)
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	return signAll(t, p, "alice", "bob")
}

func signAll(t *testing.T, p *iou.Proposal, names ...string) *iou.SignedProposal {
	t.Helper()
	sp := &iou.SignedProposal{Proposal: p}
	for _, name := range names {
		if err := sp.Sign(testKey(name)); err != nil {
			t.Fatalf("%s cannot sign: %+v", name, err)
		}
	}
	return sp
}

func TestSubmitIssue(t *testing.T) {
	n := New(log.NewNopLogger())
	sp := signedIssue(t, usd(100))

	pos, err := n.Submit(context.Background(), sp)
	if err != nil {
		t.Fatalf("cannot submit: %+v", err)
	}
	if pos != 1 {
		t.Fatalf("want position 1, got %d", pos)
	}

	// The same linear id cannot be issued twice.
	if _, err := n.Submit(context.Background(), sp); !errors.ErrDuplicate.Is(err) {
		t.Fatalf("want duplicate, got %+v", err)
	}
}

func TestSubmitRejectsInvalidProposal(t *testing.T) {
	n := New(log.NewNopLogger())

	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	p.Output.FaceAmount = usd(0)
	sp := &iou.SignedProposal{Proposal: p}

	if _, err := n.Submit(context.Background(), sp); !iou.ErrNonPositiveAmount.Is(err) {
		t.Fatalf("notary must re-validate, got %+v", err)
	}
}

func TestSubmitRejectsMissingSignature(t *testing.T) {
	n := New(log.NewNopLogger())

	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	sp := signAll(t, p, "alice")

	if _, err := n.Submit(context.Background(), sp); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("partial signatures must be rejected, got %+v", err)
	}
}

func TestSubmitDoubleSpend(t *testing.T) {
	n := New(log.NewNopLogger())

	issue := signedIssue(t, usd(100))
	if _, err := n.Submit(context.Background(), issue); err != nil {
		t.Fatalf("cannot submit issue: %+v", err)
	}
	rec := issue.Proposal.Output

	// Two settlements race to consume the same revision.
	buildSettle := func(amount coin.Coin) *iou.SignedProposal {
		var out *iou.IOU
		outstanding, err := rec.Outstanding()
		if err != nil {
			t.Fatalf("outstanding: %+v", err)
		}
		if amount.Compare(outstanding) != 0 {
			out = rec.Copy()
			paid, err := rec.PaidAmount.Add(amount)
			if err != nil {
				t.Fatalf("paid: %+v", err)
			}
			out.PaidAmount = paid
		}
		p := &iou.Proposal{
			Kind:     iou.Settle,
			Input:    rec.Copy(),
			Output:   out,
			Signers:  rec.Participants(),
			Payments: []promissory.Payment{{Recipient: rec.Lender, Amount: amount}},
		}
		return signAll(t, p, "alice", "bob")
	}

	first := buildSettle(usd(40))
	second := buildSettle(usd(30))

	if _, err := n.Submit(context.Background(), first); err != nil {
		t.Fatalf("first settlement must finalize: %+v", err)
	}
	if _, err := n.Submit(context.Background(), second); !errors.ErrDoubleSpend.Is(err) {
		t.Fatalf("want double spend, got %+v", err)
	}
	// Resubmitting the finalized transition is a double spend too, it
	// never silently succeeds twice.
	if _, err := n.Submit(context.Background(), first); !errors.ErrDoubleSpend.Is(err) {
		t.Fatalf("want double spend on replay, got %+v", err)
	}
}

func TestSubmitTerminatesLineage(t *testing.T) {
	n := New(log.NewNopLogger())

	issue := signedIssue(t, usd(100))
	if _, err := n.Submit(context.Background(), issue); err != nil {
		t.Fatalf("cannot submit issue: %+v", err)
	}
	rec := issue.Proposal.Output

	full := &iou.Proposal{
		Kind:     iou.Settle,
		Input:    rec.Copy(),
		Signers:  rec.Participants(),
		Payments: []promissory.Payment{{Recipient: rec.Lender, Amount: usd(100)}},
	}
	if _, err := n.Submit(context.Background(), signAll(t, full, "alice", "bob")); err != nil {
		t.Fatalf("full settlement must finalize: %+v", err)
	}

	// The terminated record has no unconsumed revision left.
	again := &iou.Proposal{
		Kind:     iou.Settle,
		Input:    rec.Copy(),
		Signers:  rec.Participants(),
		Payments: []promissory.Payment{{Recipient: rec.Lender, Amount: usd(100)}},
	}
	if _, err := n.Submit(context.Background(), signAll(t, again, "alice", "bob")); !errors.ErrDoubleSpend.Is(err) {
		t.Fatalf("want double spend, got %+v", err)
	}
}

func TestSubmitUnknownRecord(t *testing.T) {
	n := New(log.NewNopLogger())

	rec := &iou.IOU{
		LinearID:   iou.NewLinearID(),
		Lender:     testCond("alice"),
		Borrower:   testCond("bob"),
		FaceAmount: usd(100),
		PaidAmount: usd(0),
	}
	p := &iou.Proposal{
		Kind:     iou.Settle,
		Input:    rec,
		Signers:  rec.Participants(),
		Payments: []promissory.Payment{{Recipient: rec.Lender, Amount: usd(100)}},
	}
	if _, err := n.Submit(context.Background(), signAll(t, p, "alice", "bob")); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestSubmitCancelledContext(t *testing.T) {
	n := New(log.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := n.Submit(ctx, signedIssue(t, usd(100))); !errors.ErrTimeout.Is(err) {
		t.Fatalf("want timeout, got %+v", err)
	}
}

func TestPositionsAreTotallyOrdered(t *testing.T) {
	n := New(log.NewNopLogger())

	var last uint64
	for i := 0; i < 3; i++ {
		pos, err := n.Submit(context.Background(), signedIssue(t, usd(100)))
		if err != nil {
			t.Fatalf("cannot submit: %+v", err)
		}
		if pos <= last {
			t.Fatalf("positions must grow, got %d after %d", pos, last)
		}
		last = pos
	}
}
