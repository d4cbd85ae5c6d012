package flow

import (
	"context"
	"testing"
	"time"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/cash"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
	"github.com/iov-one/promissory/errors"
	"github.com/iov-one/promissory/iou"
	"github.com/iov-one/promissory/notary"
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

// network is a running test deployment: three parties, a shared notary and
// a shared payment asset ledger.
type network struct {
	net    *Network
	ledger *cash.Keeper
	alice  *Node
	bob    *Node
	carol  *Node
}

func newTestNetwork(t *testing.T, ctx context.Context) *network {
	t.Helper()
	logger := log.NewNopLogger()
	net := NewNetwork()
	fin := notary.New(logger)
	ledger := cash.NewKeeper()

	nw := &network{
		net:    net,
		ledger: ledger,
		alice:  NewNode("alice", testKey("alice"), net, fin, ledger, logger),
		bob:    NewNode("bob", testKey("bob"), net, fin, ledger, logger),
		carol:  NewNode("carol", testKey("carol"), net, fin, ledger, logger),
	}
	nw.alice.Start(ctx)
	nw.bob.Start(ctx)
	nw.carol.Start(ctx)
	return nw
}

// waitRevision polls a party's vault until it holds an unconsumed revision
// matching the predicate. Responders record finality asynchronously, so a
// test must wait for a vault to converge before reading it.
func waitRevision(t *testing.T, n *Node, id iou.LinearID, pred func(*iou.IOU) bool) *iou.IOU {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec, err := n.Vault().FindUnconsumed(id)
		switch {
		case err == nil && pred(rec):
			return rec
		case err != nil && !errors.ErrNotFound.Is(err):
			t.Fatalf("vault lookup: %+v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("vault never converged: id=%s", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitGone polls a party's vault until no unconsumed revision is left.
func waitGone(t *testing.T, n *Node, id iou.LinearID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := n.Vault().FindUnconsumed(id)
		if errors.ErrNotFound.Is(err) {
			return
		}
		if err != nil {
			t.Fatalf("vault lookup: %+v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("record never retired: id=%s", id)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func any(*iou.IOU) bool { return true }

func TestEndToEndLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	if err := nw.ledger.Deposit(nw.bob.Condition(), usd(150)); err != nil {
		t.Fatalf("cannot fund bob: %+v", err)
	}

	// Issue: alice lends 100 USD to bob.
	r0, err := nw.alice.Issue(ctx, nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot issue: %+v", err)
	}
	if !r0.PaidAmount.IsZero() {
		t.Fatalf("fresh record must be unpaid, got %s", r0.PaidAmount)
	}
	id := r0.LinearID
	waitRevision(t, nw.bob, id, any)

	// Transfer: alice hands the record over to carol.
	r1, err := nw.alice.Transfer(ctx, id, nw.carol.Condition())
	if err != nil {
		t.Fatalf("cannot transfer: %+v", err)
	}
	if !r1.Lender.Equals(nw.carol.Condition()) {
		t.Fatalf("lender must be carol, got %s", r1.Lender)
	}
	toCarol := func(rec *iou.IOU) bool { return rec.Lender.Equals(nw.carol.Condition()) }
	if got := waitRevision(t, nw.carol, id, toCarol); !got.Equals(r1) {
		t.Fatalf("carol holds a different revision: %s", got)
	}
	waitRevision(t, nw.bob, id, toCarol)
	// Alice is out of the deal.
	waitGone(t, nw.alice, id)

	// Settle: bob pays the full outstanding amount, the record dies.
	r2, err := nw.bob.Settle(ctx, id, usd(100))
	if err != nil {
		t.Fatalf("cannot settle: %+v", err)
	}
	if r2 != nil {
		t.Fatalf("full settlement must terminate the record, got %s", r2)
	}
	waitGone(t, nw.bob, id)
	waitGone(t, nw.carol, id)

	// The money moved.
	if got, err := nw.ledger.Balance(nw.bob.Condition(), "USD"); err != nil || got.Compare(usd(50)) != 0 {
		t.Fatalf("bob balance: %v %+v", got, err)
	}
	if got, err := nw.ledger.Balance(nw.carol.Condition(), "USD"); err != nil || got.Compare(usd(100)) != 0 {
		t.Fatalf("carol balance: %v %+v", got, err)
	}
}

func TestPartialSettlementBoundary(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	if err := nw.ledger.Deposit(nw.bob.Condition(), usd(100)); err != nil {
		t.Fatalf("cannot fund bob: %+v", err)
	}
	r0, err := nw.alice.Issue(ctx, nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot issue: %+v", err)
	}
	id := r0.LinearID
	waitRevision(t, nw.bob, id, any)

	// One unit short of the outstanding amount keeps the record alive.
	r1, err := nw.bob.Settle(ctx, id, usd(99))
	if err != nil {
		t.Fatalf("cannot settle: %+v", err)
	}
	if r1 == nil {
		t.Fatal("partial settlement must produce a revision")
	}
	if r1.PaidAmount.Compare(usd(99)) != 0 {
		t.Fatalf("want paid 99, got %s", r1.PaidAmount)
	}
	if !r1.FaceAmount.Equals(r0.FaceAmount) || !r1.Lender.Equals(r0.Lender) || !r1.Borrower.Equals(r0.Borrower) {
		t.Fatal("only the paid amount may change")
	}

	// The last unit terminates it.
	r2, err := nw.bob.Settle(ctx, id, usd(1))
	if err != nil {
		t.Fatalf("cannot settle remainder: %+v", err)
	}
	if r2 != nil {
		t.Fatalf("record must terminate, got %s", r2)
	}
}

func TestSettleInsufficientFunds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	r0, err := nw.alice.Issue(ctx, nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot issue: %+v", err)
	}

	waitRevision(t, nw.bob, r0.LinearID, any)

	// Bob has no money at all.
	if _, err := nw.bob.Settle(ctx, r0.LinearID, usd(100)); !errors.ErrInsufficientAmount.Is(err) {
		t.Fatalf("want insufficient amount, got %+v", err)
	}
}

func TestTransferNotAuthorized(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	r0, err := nw.alice.Issue(ctx, nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot issue: %+v", err)
	}

	waitRevision(t, nw.bob, r0.LinearID, any)

	// Bob holds the record but is not its lender.
	if _, err := nw.bob.Transfer(ctx, r0.LinearID, nw.carol.Condition()); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}
}

func TestInitiatorAbortsOnInvalidProposal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	p, err := iou.BuildIssue(nw.alice.Condition(), nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	p.Output.FaceAmount = usd(0)

	ini := NewInitiator(testKey("alice"), nw.net, notary.New(log.NewNopLogger()), log.NewNopLogger())
	if _, err := ini.Run(ctx, p); !iou.ErrNonPositiveAmount.Is(err) {
		t.Fatalf("want validation failure, got %+v", err)
	}
	if ini.State() != Aborted {
		t.Fatalf("want aborted, got %s", ini.State())
	}
	// Fail fast: bob must never have been contacted. An invalid proposal
	// dies before any network interaction.
}

func TestCounterpartyRejection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := log.NewNopLogger()
	net := NewNetwork()
	fin := notary.New(logger)

	// A hostile bob refuses to sign anything.
	inbox := net.Listen(testCond("bob"))
	go func() {
		conv := <-inbox
		if _, err := conv.Receive(ctx); err != nil {
			return
		}
		_ = conv.Send(ctx, RejectMsg{Reason: "not today"})
	}()

	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	ini := NewInitiator(testKey("alice"), net, fin, logger)
	_, err = ini.Run(ctx, p)
	if !errors.ErrRejected.Is(err) {
		t.Fatalf("want rejection, got %+v", err)
	}
	if ini.State() != Aborted {
		t.Fatalf("want aborted, got %s", ini.State())
	}
}

func TestCollectingSignaturesTimesOut(t *testing.T) {
	logger := log.NewNopLogger()
	net := NewNetwork()
	fin := notary.New(logger)

	// Bob accepts the conversation but never answers.
	net.Listen(testCond("bob"))

	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ini := NewInitiator(testKey("alice"), net, fin, logger)
	if _, err := ini.Run(ctx, p); !errors.ErrTimeout.Is(err) {
		t.Fatalf("want timeout, got %+v", err)
	}
}

func TestDoubleSpendRetry(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nw := newTestNetwork(t, ctx)

	if err := nw.ledger.Deposit(nw.bob.Condition(), usd(200)); err != nil {
		t.Fatalf("cannot fund bob: %+v", err)
	}
	r0, err := nw.alice.Issue(ctx, nw.bob.Condition(), usd(100))
	if err != nil {
		t.Fatalf("cannot issue: %+v", err)
	}
	id := r0.LinearID
	waitRevision(t, nw.bob, id, any)

	// A settlement built against r0 that loses the race: another
	// settlement consumes r0 first.
	stale, err := iou.BuildSettle(nw.bob.Vault(), nw.ledger, nw.bob.Condition(), id, usd(30))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	if _, err := nw.bob.Settle(ctx, id, usd(40)); err != nil {
		t.Fatalf("cannot settle: %+v", err)
	}

	// Fully signed, so the stale proposal reaches the finality boundary
	// where the notary turns it away.
	sp := &iou.SignedProposal{Proposal: stale}
	if err := sp.Sign(testKey("bob")); err != nil {
		t.Fatalf("bob cannot sign: %+v", err)
	}
	if err := sp.Sign(testKey("alice")); err != nil {
		t.Fatalf("alice cannot sign: %+v", err)
	}
	if _, err := nw.bob.fin.Submit(ctx, sp); !errors.ErrDoubleSpend.Is(err) {
		t.Fatalf("want double spend, got %+v", err)
	}

	// Once the responder vault converged, running the whole protocol on
	// the stale proposal fails too: the counterparty holds a different
	// revision and refuses to sign.
	waitRevision(t, nw.alice, id, func(rec *iou.IOU) bool {
		return rec.PaidAmount.Compare(usd(40)) == 0
	})
	ini := NewInitiator(testKey("bob"), nw.net, nw.bob.fin, log.NewNopLogger())
	if _, err := ini.Run(ctx, stale); !errors.ErrRejected.Is(err) {
		t.Fatalf("want counterparty rejection, got %+v", err)
	}

	// Rebuilding against the new unconsumed revision succeeds.
	r1, err := nw.bob.Settle(ctx, id, usd(30))
	if err != nil {
		t.Fatalf("retry must succeed: %+v", err)
	}
	if r1.PaidAmount.Compare(usd(70)) != 0 {
		t.Fatalf("want paid 70, got %s", r1.PaidAmount)
	}
}

func TestValidationIsIndependent(t *testing.T) {
	// Both parties evaluating the same proposal reach the same verdict,
	// and a responder never relies on the initiator's claim.
	p, err := iou.BuildIssue(testCond("alice"), testCond("bob"), usd(100))
	if err != nil {
		t.Fatalf("cannot build: %+v", err)
	}
	for i := 0; i < 3; i++ {
		if err := iou.Validate(p); err != nil {
			t.Fatalf("run %d: %+v", i, err)
		}
	}
}
