package iou

import (
	"crypto/sha256"

	"github.com/iov-one/promissory/errors"
)

// Marshal returns the deterministic binary representation of this revision.
func (i *IOU) Marshal() ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(i)
	if err != nil {
		return nil, errors.Wrap(err, "marshal iou")
	}
	return raw, nil
}

// Unmarshal resets this revision to the value encoded in raw.
func (i *IOU) Unmarshal(raw []byte) error {
	if err := cdc.UnmarshalBinaryBare(raw, i); err != nil {
		return errors.Wrap(err, "unmarshal iou")
	}
	return nil
}

// Digest returns a collision free fingerprint of this revision. Two
// revisions carry the same digest iff they are equal in every field, which
// is what the finality layer keys its consumed set by.
func (i *IOU) Digest() ([]byte, error) {
	raw, err := i.Marshal()
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(raw)
	return h[:], nil
}
