package iou

import (
	"testing"

	"github.com/iov-one/promissory/errors"
)

func TestIOUValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(i *IOU)
		wantErr *errors.Error
	}{
		"valid record": {
			mutate: nil,
		},
		"short linear id": {
			mutate:  func(i *IOU) { i.LinearID = LinearID{1, 2, 3} },
			wantErr: errors.ErrInput,
		},
		"lender is the borrower": {
			mutate:  func(i *IOU) { i.Borrower = i.Lender },
			wantErr: errors.ErrModel,
		},
		"currencies differ": {
			mutate:  func(i *IOU) { i.PaidAmount.Ticker = "EUR" },
			wantErr: errors.ErrCurrency,
		},
		"negative paid": {
			mutate:  func(i *IOU) { i.PaidAmount = usd(-1) },
			wantErr: errors.ErrModel,
		},
		"paid above the face amount": {
			mutate:  func(i *IOU) { i.PaidAmount = usd(101) },
			wantErr: errors.ErrModel,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			rec := testIOU("alice", "bob", usd(100), usd(0))
			if tc.mutate != nil {
				tc.mutate(rec)
			}
			err := rec.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("want valid, got %+v", err)
				}
			} else if !tc.wantErr.Is(err) {
				t.Fatalf("want %q, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestIOUOutstanding(t *testing.T) {
	rec := testIOU("alice", "bob", usd(100), usd(40))
	out, err := rec.Outstanding()
	if err != nil {
		t.Fatalf("cannot compute: %+v", err)
	}
	if !out.Equals(usd(60)) {
		t.Fatalf("want 60 USD, got %v", out)
	}
}

func TestIOUParticipants(t *testing.T) {
	rec := testIOU("alice", "bob", usd(100), usd(0))
	parts := rec.Participants()
	if len(parts) != 2 {
		t.Fatalf("want 2 participants, got %d", len(parts))
	}
	if !parts.Contains(testCond("alice")) || !parts.Contains(testCond("bob")) {
		t.Fatalf("unexpected participants: %v", parts)
	}
}

func TestIOUCopyIsIndependent(t *testing.T) {
	rec := testIOU("alice", "bob", usd(100), usd(0))
	cpy := rec.Copy()
	cpy.PaidAmount = usd(40)
	cpy.LinearID[0] = 0xff

	if !rec.PaidAmount.IsZero() {
		t.Fatal("copy mutation leaked into the original amount")
	}
	if rec.LinearID[0] == 0xff {
		t.Fatal("copy mutation leaked into the original id")
	}
}

func TestIOUEquals(t *testing.T) {
	a := testIOU("alice", "bob", usd(100), usd(0))
	b := a.Copy()
	if !a.Equals(b) {
		t.Fatal("copies must be equal")
	}
	b.PaidAmount = usd(1)
	if a.Equals(b) {
		t.Fatal("different paid amounts must not be equal")
	}
	if a.Equals(nil) {
		t.Fatal("value must not equal nil")
	}
	var nilA, nilB *IOU
	if !nilA.Equals(nilB) {
		t.Fatal("two nils are equal")
	}
}
