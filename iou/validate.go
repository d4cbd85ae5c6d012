package iou

import (
	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/errors"
)

// Validate decides, given a proposed transition, whether it is legal. It is
// a pure function: no state is consulted beyond the proposal itself, so the
// initiator and every counterparty evaluating the same proposal reach the
// same verdict.
//
// Every rejection wraps one of the registered rule errors of this package
// so that the exact failed rule can be reported and tested for.
func Validate(p *Proposal) error {
	if p == nil {
		return errors.Wrap(errors.ErrEmpty, "no proposal")
	}
	switch p.Kind {
	case Issue:
		return validateIssue(p)
	case Transfer:
		return validateTransfer(p)
	case Settle:
		return validateSettle(p)
	default:
		return errors.ErrMsg.Newf("unknown transition kind: %d", p.Kind)
	}
}

func validateIssue(p *Proposal) error {
	if p.Input != nil {
		return errors.Wrap(ErrIssueInput, "issue consumes nothing")
	}
	if p.Output == nil {
		return errors.Wrap(ErrOutputCount, "issue must produce a record")
	}
	out := p.Output

	if !out.FaceAmount.IsPositive() {
		return errors.Wrapf(ErrNonPositiveAmount, "face amount: %s", out.FaceAmount)
	}
	if out.Lender.Equals(out.Borrower) {
		return errors.Wrapf(ErrSameParty, "lender: %s", out.Lender)
	}
	if err := out.Validate(); err != nil {
		return errors.Wrap(err, "invalid output")
	}
	if !out.PaidAmount.IsZero() {
		return errors.Wrap(errors.ErrModel, "issued record must start unpaid")
	}

	want := out.Participants()
	if !want.Equals(p.SignerSet()) {
		return errors.Wrap(ErrSignerSet, "both lender and borrower, and only they, must sign")
	}
	return nil
}

func validateTransfer(p *Proposal) error {
	if p.Input == nil {
		return errors.Wrap(ErrInputCount, "transfer must consume a record")
	}
	if p.Output == nil {
		return errors.Wrap(ErrOutputCount, "transfer must produce a record")
	}
	in, out := p.Input, p.Output

	if err := in.Validate(); err != nil {
		return errors.Wrap(err, "invalid input")
	}
	if err := out.Validate(); err != nil {
		return errors.Wrap(err, "invalid output")
	}

	// Everything but the lender must stay untouched.
	switch {
	case !out.LinearID.Equals(in.LinearID):
		return errors.Wrap(ErrIllegalChange, "linear id")
	case !out.Borrower.Equals(in.Borrower):
		return errors.Wrap(ErrIllegalChange, "borrower")
	case !out.FaceAmount.Equals(in.FaceAmount):
		return errors.Wrap(ErrIllegalChange, "face amount")
	case !out.PaidAmount.Equals(in.PaidAmount):
		return errors.Wrap(ErrIllegalChange, "paid amount")
	}
	if out.Lender.Equals(in.Lender) {
		return errors.Wrapf(ErrLenderUnchanged, "lender: %s", in.Lender)
	}

	want := promissory.UnionConditions(in.Participants(), out.Participants())
	if !want.Equals(p.SignerSet()) {
		return errors.Wrap(ErrSignerSet, "borrower, old lender and new lender only must sign")
	}
	return nil
}

func validateSettle(p *Proposal) error {
	if p.Input == nil {
		return errors.Wrap(ErrInputCount, "exactly one input IOU required")
	}
	in := p.Input
	if err := in.Validate(); err != nil {
		return errors.Wrap(err, "invalid input")
	}

	if len(p.Payments) == 0 {
		return errors.Wrap(ErrNoPayment, "settlement moves no cash")
	}
	for i, pay := range p.Payments {
		if err := pay.Validate(); err != nil {
			return errors.Wrapf(err, "payment %d", i)
		}
	}

	var paysLender bool
	for _, pay := range p.Payments {
		if pay.Recipient.Equals(in.Lender) {
			paysLender = true
			break
		}
	}
	if !paysLender {
		return errors.Wrapf(ErrPaymentRecipient, "lender: %s", in.Lender)
	}

	// The settled amount is the sum of every lender addressed payment in
	// the whole transition, not only those tied to this settlement. The
	// rule is defined transaction wide on purpose.
	settled, err := promissory.SumPaymentsTo(p.Payments, in.Lender, in.FaceAmount.Ticker)
	if err != nil {
		return err
	}

	outstanding, err := in.Outstanding()
	if err != nil {
		return errors.Wrap(err, "outstanding")
	}
	if settled.Compare(outstanding) > 0 {
		return errors.Wrapf(ErrOversettled, "outstanding %s, settling %s", outstanding, settled)
	}

	if settled.Compare(outstanding) == 0 {
		// Full settlement terminates the record lifecycle.
		if p.Output != nil {
			return errors.Wrap(ErrUnexpectedOutput, "record is terminated")
		}
	} else {
		if p.Output == nil {
			return errors.Wrap(ErrOutputCount, "partial settlement must produce a record")
		}
		out := p.Output
		if err := out.Validate(); err != nil {
			return errors.Wrap(err, "invalid output")
		}
		switch {
		case !out.LinearID.Equals(in.LinearID):
			return errors.Wrap(ErrPaidChange, "linear id")
		case !out.Lender.Equals(in.Lender):
			return errors.Wrap(ErrPaidChange, "lender")
		case !out.Borrower.Equals(in.Borrower):
			return errors.Wrap(ErrPaidChange, "borrower")
		case !out.FaceAmount.Equals(in.FaceAmount):
			return errors.Wrap(ErrPaidChange, "face amount")
		}
		wantPaid, err := in.PaidAmount.Add(settled)
		if err != nil {
			return errors.Wrap(err, "paid amount")
		}
		if !out.PaidAmount.Equals(wantPaid) {
			return errors.Wrapf(ErrPaidChange, "want paid %s, got %s", wantPaid, out.PaidAmount)
		}
	}

	if !in.Participants().Equals(p.SignerSet()) {
		return errors.Wrap(ErrSignerSet, "lender and borrower, and only they, must sign")
	}
	return nil
}
