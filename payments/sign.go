package payments

import (
	"crypto"
	"crypto/rand"
	"errors"
	"fmt"
)

// ErrUnavailableHash is returned when the requested digest algorithm is not
// linked into the binary.
var ErrUnavailableHash = errors.New("digest algorithm not available")

// Sign computes the canonical signable form of the request and stores a
// signature over it made with the given signer and digest algorithm. Any
// previous signature value is replaced.
//
// The signer's key must correspond to the public key of the leaf
// certificate carried in the request's PKI data, or verification will fail
// on the receiving side.
func Sign(req *Request, signer crypto.Signer, hash crypto.Hash) error {
	if !hash.Available() {
		return fmt.Errorf("%w: %v", ErrUnavailableHash, hash)
	}

	h := hash.New()
	h.Write(req.SignableForm())

	sig, err := signer.Sign(rand.Reader, h.Sum(nil), hash)
	if err != nil {
		return fmt.Errorf("signing payment request: %w", err)
	}
	req.Signature = sig
	return nil
}
