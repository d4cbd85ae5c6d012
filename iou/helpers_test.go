package iou

import (
	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
)

// testKey returns a deterministic signing key for a named test party.
func testKey(name string) *crypto.PrivateKey {
	var seed [32]byte
	copy(seed[:], name)
	return crypto.PrivKeyEd25519FromSeed(seed)
}

// testCond returns the signer condition of a named test party.
func testCond(name string) promissory.Condition {
	return testKey(name).PublicKey().Condition()
}

// testID returns a deterministic linear identifier.
func testID(fill byte) LinearID {
	id := make(LinearID, LinearIDLength)
	for i := range id {
		id[i] = fill
	}
	return id
}

// testIOU returns a valid record held between the named parties.
func testIOU(lender, borrower string, face, paid coin.Coin) *IOU {
	return &IOU{
		LinearID:   testID(1),
		Lender:     testCond(lender),
		Borrower:   testCond(borrower),
		FaceAmount: face,
		PaidAmount: paid,
	}
}

func usd(whole int64) coin.Coin {
	return coin.NewCoin(whole, 0, "USD")
}

func conds(names ...string) []promissory.Condition {
	var cs []promissory.Condition
	for _, n := range names {
		cs = append(cs, testCond(n))
	}
	return cs
}

func payTo(name string, amount coin.Coin) promissory.Payment {
	return promissory.Payment{Recipient: testCond(name), Amount: amount}
}
