package iou

import (
	"github.com/iov-one/promissory/errors"
)

// Every rejection of the validation engine is a distinct registered error.
// Counterparties report which exact rule failed and callers test for it with
// the Is method, so these must never be collapsed into a generic failure.
var (
	// ErrIssueInput is returned when an issue transition declares a
	// consumed input.
	ErrIssueInput = errors.Register(1000, "no inputs allowed on issue")

	// ErrInputCount is returned when a transition does not consume
	// exactly one prior revision.
	ErrInputCount = errors.Register(1001, "exactly one input required")

	// ErrOutputCount is returned when a transition does not produce
	// exactly one new revision.
	ErrOutputCount = errors.Register(1002, "exactly one output required")

	// ErrUnexpectedOutput is returned when a fully settling transition
	// produces a new revision even though the record lifecycle ends.
	ErrUnexpectedOutput = errors.Register(1003, "must have no output, fully settled")

	// ErrNonPositiveAmount is returned when an issued face amount is not
	// strictly positive.
	ErrNonPositiveAmount = errors.Register(1004, "amount must be positive")

	// ErrSameParty is returned when lender and borrower are the same
	// identity.
	ErrSameParty = errors.Register(1005, "lender and borrower must differ")

	// ErrSignerSet is returned when the declared signer set is not
	// exactly the set the transition kind requires.
	ErrSignerSet = errors.Register(1006, "signer set mismatch")

	// ErrIllegalChange is returned when a transfer modifies any field
	// other than the lender.
	ErrIllegalChange = errors.Register(1007, "only lender may change")

	// ErrLenderUnchanged is returned when a transfer keeps the lender.
	ErrLenderUnchanged = errors.Register(1008, "lender must actually change")

	// ErrNoPayment is returned when a settlement carries no payment
	// outputs.
	ErrNoPayment = errors.Register(1009, "no payment provided")

	// ErrPaymentRecipient is returned when no payment output is addressed
	// to the lender.
	ErrPaymentRecipient = errors.Register(1010, "payment must be made to the lender")

	// ErrOversettled is returned when the settled amount exceeds the
	// outstanding amount.
	ErrOversettled = errors.Register(1011, "cannot settle more than outstanding")

	// ErrPaidChange is returned when a partial settlement output differs
	// from the input in any field other than the paid amount, or the paid
	// amount does not grow by exactly the settled amount.
	ErrPaidChange = errors.Register(1012, "only paid amount may change")
)
