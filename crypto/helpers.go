package crypto

import (
	"github.com/iov-one/promissory"
)

// ExtensionName is used for the conditions we derive from signing keys
const ExtensionName = "sigs"

// PubKey represents a crypto public key we use
type PubKey interface {
	Verify(message []byte, sig []byte) bool
	Condition() promissory.Condition
}

// Signer is the functionality we use from a private key
// No serializing to support hardware devices as well.
type Signer interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() *PublicKey
}

// VerifyCondition checks a signature over message against the public key
// bound into the condition. Only "sigs/ed25519" conditions can hold.
func VerifyCondition(cond promissory.Condition, message []byte, sig []byte) bool {
	ext, typ, data, err := cond.Parse()
	if err != nil {
		return false
	}
	if ext != ExtensionName || typ != "ed25519" {
		return false
	}
	pub := PublicKey{Ed25519: data}
	return pub.Verify(message, sig)
}
