package iou

import (
	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/errors"
)

// RecordLookup resolves the current unconsumed revision of a record. It is
// provided by the vault.
type RecordLookup interface {
	// FindUnconsumed returns the single unconsumed revision of the given
	// record or an ErrNotFound error.
	FindUnconsumed(id LinearID) (*IOU, error)
}

// CashKeeper provides balance lookup and spend generation for the payment
// asset. The payment asset's own transfer rules are not our business, only
// the produced payment outputs are.
type CashKeeper interface {
	// Balance returns the available holdings of the owner in the given
	// currency.
	Balance(owner promissory.Condition, ticker string) (coin.Coin, error)

	// GenerateSpend produces the payment outputs moving the amount from
	// one party to another, or an ErrInsufficientAmount error.
	GenerateSpend(from, to promissory.Condition, amount coin.Coin) ([]promissory.Payment, error)
}

// BuildIssue assembles an issue proposal for a brand new record. The fresh
// linear ID is generated here and stays with the record for its whole
// lifecycle.
func BuildIssue(lender, borrower promissory.Condition, face coin.Coin) (*Proposal, error) {
	out := &IOU{
		LinearID:   NewLinearID(),
		Lender:     lender,
		Borrower:   borrower,
		FaceAmount: face,
		PaidAmount: coin.Coin{Ticker: face.Ticker},
	}
	return &Proposal{
		Kind:    Issue,
		Output:  out,
		Signers: out.Participants(),
	}, nil
}

// BuildTransfer assembles a transfer proposal handing the record over to a
// new lender. Only the current lender may initiate a transfer, this is a
// protocol precondition. The contract rule is re-validated independently by
// every party anyway.
func BuildTransfer(records RecordLookup, caller promissory.Condition, id LinearID, newLender promissory.Condition) (*Proposal, error) {
	in, err := records.FindUnconsumed(id)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", id)
	}
	if !in.Lender.Equals(caller) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "only the current lender may transfer")
	}

	out := in.Copy()
	out.Lender = newLender

	return &Proposal{
		Kind:    Transfer,
		Input:   in.Copy(),
		Output:  out,
		Signers: promissory.UnionConditions(in.Participants(), out.Participants()),
	}, nil
}

// BuildSettle assembles a settlement proposal paying the given amount to the
// lender. Only the borrower may settle and the borrower's payment asset
// balance must cover the amount. Both are protocol preconditions checked
// before any transition is even attempted.
func BuildSettle(records RecordLookup, cash CashKeeper, caller promissory.Condition, id LinearID, amount coin.Coin) (*Proposal, error) {
	in, err := records.FindUnconsumed(id)
	if err != nil {
		return nil, errors.Wrapf(err, "record %s", id)
	}
	if !in.Borrower.Equals(caller) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "only the borrower may settle")
	}

	balance, err := cash.Balance(caller, amount.Ticker)
	if err != nil {
		return nil, errors.Wrap(err, "balance")
	}
	if !balance.IsPositive() || !balance.IsGTE(amount) {
		return nil, errors.Wrapf(errors.ErrInsufficientAmount,
			"balance %s, needed %s", balance, amount)
	}

	payments, err := cash.GenerateSpend(caller, in.Lender, amount)
	if err != nil {
		return nil, errors.Wrap(err, "generate spend")
	}

	outstanding, err := in.Outstanding()
	if err != nil {
		return nil, errors.Wrap(err, "outstanding")
	}

	// Full settlement produces no output, the record terminates.
	var out *IOU
	if amount.Compare(outstanding) != 0 {
		paid, err := in.PaidAmount.Add(amount)
		if err != nil {
			return nil, errors.Wrap(err, "paid amount")
		}
		out = in.Copy()
		out.PaidAmount = paid
	}

	return &Proposal{
		Kind:     Settle,
		Input:    in.Copy(),
		Output:   out,
		Signers:  in.Participants(),
		Payments: payments,
	}, nil
}
