package crypto

import (
	"golang.org/x/crypto/ed25519"

	"github.com/iov-one/promissory"
)

var _ PubKey = (*PublicKey)(nil)

// PublicKey wraps a raw ed25519 public key.
type PublicKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// Verify verifies the signature was created with this message and public key
func (p *PublicKey) Verify(message []byte, sig []byte) bool {
	if len(p.Ed25519) != ed25519.PublicKeySize {
		return false
	}
	publicKey := ed25519.PublicKey(p.Ed25519)
	return ed25519.Verify(publicKey, message, sig)
}

// Condition encodes the public key into a permission
func (p *PublicKey) Condition() promissory.Condition {
	return promissory.NewCondition(ExtensionName, "ed25519", p.Ed25519)
}

// Address is a shortcut for Condition().Address()
func (p *PublicKey) Address() promissory.Address {
	return p.Condition().Address()
}

var _ Signer = (*PrivateKey)(nil)

// PrivateKey wraps a raw ed25519 private key.
type PrivateKey struct {
	Ed25519 []byte `json:"ed25519"`
}

// Sign returns a matching signature for this private key
func (p *PrivateKey) Sign(message []byte) ([]byte, error) {
	privateKey := ed25519.PrivateKey(p.Ed25519)
	return ed25519.Sign(privateKey, message), nil
}

// PublicKey returns the corresponding PublicKey
func (p *PrivateKey) PublicKey() *PublicKey {
	privateKey := ed25519.PrivateKey(p.Ed25519)
	pub := privateKey.Public().(ed25519.PublicKey)
	return &PublicKey{Ed25519: pub}
}

// GenPrivKeyEd25519 returns a random new private key
func GenPrivKeyEd25519() *PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &PrivateKey{Ed25519: priv}
}

// PrivKeyEd25519FromSeed will deterministically generate a private key from
// a given seed. Use if you have a strong source of external randomness,
// or for deterministic keys in test cases.
func PrivKeyEd25519FromSeed(seed [32]byte) *PrivateKey {
	priv := ed25519.NewKeyFromSeed(seed[:])
	return &PrivateKey{Ed25519: priv}
}
