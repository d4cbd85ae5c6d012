package iou

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/errors"
)

// LinearIDLength is the byte size of a linear identifier.
const LinearIDLength = 16

// LinearID is the stable handle tracking one obligation's lineage across all
// of its revisions. It never changes between the issue and the final
// settlement of a record.
type LinearID []byte

// NewLinearID returns a fresh random linear identifier.
func NewLinearID() LinearID {
	id := make(LinearID, LinearIDLength)
	if _, err := rand.Read(id); err != nil {
		panic(err)
	}
	return id
}

// Equals checks if two identifiers are the same
func (id LinearID) Equals(o LinearID) bool {
	if len(id) != len(o) {
		return false
	}
	for i := range id {
		if id[i] != o[i] {
			return false
		}
	}
	return true
}

// Validate returns an error if the identifier is not the valid size
func (id LinearID) Validate() error {
	if len(id) != LinearIDLength {
		return errors.ErrInput.Newf("linear id: %X", []byte(id))
	}
	return nil
}

func (id LinearID) String() string {
	if len(id) == 0 {
		return "(nil)"
	}
	return hex.EncodeToString(id)
}

// IOU is a single revision of a debt obligation. Revisions are immutable, a
// transition consumes the current one and produces the next one.
type IOU struct {
	LinearID   LinearID             `json:"linear_id"`
	Lender     promissory.Condition `json:"lender"`
	Borrower   promissory.Condition `json:"borrower"`
	FaceAmount coin.Coin            `json:"face_amount"`
	PaidAmount coin.Coin            `json:"paid_amount"`
}

// Validate ensures the record upholds its invariants: well formed parties,
// both amounts in the same currency and 0 <= paid <= face.
func (i *IOU) Validate() error {
	var errs error

	errs = errors.AppendField(errs, "LinearID", i.LinearID.Validate())
	errs = errors.AppendField(errs, "Lender", i.Lender.Validate())
	errs = errors.AppendField(errs, "Borrower", i.Borrower.Validate())
	errs = errors.AppendField(errs, "FaceAmount", i.FaceAmount.Validate())
	errs = errors.AppendField(errs, "PaidAmount", i.PaidAmount.Validate())

	if i.Lender.Equals(i.Borrower) {
		errs = errors.Append(errs,
			errors.Field("Borrower", errors.ErrModel, "same as the lender"))
	}
	if !i.FaceAmount.SameType(i.PaidAmount) {
		errs = errors.Append(errs,
			errors.Field("PaidAmount", errors.ErrCurrency, "different than the face amount currency"))
	} else {
		if !i.PaidAmount.IsNonNegative() {
			errs = errors.Append(errs,
				errors.Field("PaidAmount", errors.ErrModel, "negative"))
		}
		if !i.FaceAmount.IsGTE(i.PaidAmount) {
			errs = errors.Append(errs,
				errors.Field("PaidAmount", errors.ErrModel, "greater than the face amount"))
		}
	}
	return errs
}

// Participants returns the parties bound by this record. They are the
// required signers of every transition but a transfer, which additionally
// needs the incoming lender.
func (i *IOU) Participants() promissory.ConditionSet {
	return promissory.UnionConditions([]promissory.Condition{i.Lender, i.Borrower})
}

// Outstanding returns the amount that remains to be paid.
func (i *IOU) Outstanding() (coin.Coin, error) {
	return i.FaceAmount.Subtract(i.PaidAmount)
}

// Equals returns true if both revisions are identical in every field.
func (i *IOU) Equals(o *IOU) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.LinearID.Equals(o.LinearID) &&
		i.Lender.Equals(o.Lender) &&
		i.Borrower.Equals(o.Borrower) &&
		i.FaceAmount.Equals(o.FaceAmount) &&
		i.PaidAmount.Equals(o.PaidAmount)
}

// Copy returns a deep copy of this revision that can be modified without
// affecting the original.
func (i *IOU) Copy() *IOU {
	if i == nil {
		return nil
	}
	return &IOU{
		LinearID:   append(LinearID(nil), i.LinearID...),
		Lender:     append(promissory.Condition(nil), i.Lender...),
		Borrower:   append(promissory.Condition(nil), i.Borrower...),
		FaceAmount: i.FaceAmount,
		PaidAmount: i.PaidAmount,
	}
}

func (i *IOU) String() string {
	if i == nil {
		return "(nil)"
	}
	return "iou " + i.LinearID.String() +
		" face " + i.FaceAmount.String() +
		" paid " + i.PaidAmount.String()
}
