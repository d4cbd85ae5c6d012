package ioutest

import (
	"github.com/iov-one/promissory"
	"github.com/iov-one/promissory/coin"
	"github.com/iov-one/promissory/crypto"
)

// NewKey returns a fresh random signing key.
func NewKey() crypto.Signer {
	return crypto.GenPrivKeyEd25519()
}

// NewCondition returns the condition of a fresh random key.
func NewCondition() promissory.Condition {
	return NewKey().PublicKey().Condition()
}

// KeyNamed returns a key derived from the name alone. The same name always
// yields the same key, so fixtures can refer to parties by name.
func KeyNamed(name string) *crypto.PrivateKey {
	var seed [32]byte
	copy(seed[:], name)
	return crypto.PrivKeyEd25519FromSeed(seed)
}

// CondNamed returns the condition of the key derived from the name.
func CondNamed(name string) promissory.Condition {
	return KeyNamed(name).PublicKey().Condition()
}

// USD is shorthand for an amount of whole dollars.
func USD(whole int64) coin.Coin {
	return coin.NewCoin(whole, 0, "USD")
}
