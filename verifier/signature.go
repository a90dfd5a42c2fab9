package verifier

import (
	"crypto/ecdsa"
	"crypto/rsa"

	"github.com/georgepadayatti/payreq/payments"
)

// VerifySignature checks the request signature over the canonical signable
// form (the envelope re-serialized with the signature field cleared) under
// the validated chain's leaf public key.
//
// Every failure mode reports the uniform ErrBadSignature: distinguishing a
// wrong key from malformed signature bytes would leak information and is
// deliberately avoided.
func (v *Verifier) VerifySignature(req *payments.Request, chain *ValidatedChain) error {
	hash, ok := chain.Algorithm.Hash()
	if !ok || !hash.Available() {
		return ErrBadSignature
	}

	h := hash.New()
	h.Write(req.SignableForm())
	digest := h.Sum(nil)

	switch pub := chain.Leaf.PublicKey.(type) {
	case *rsa.PublicKey:
		if rsa.VerifyPKCS1v15(pub, hash, digest, req.Signature) != nil {
			return ErrBadSignature
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, req.Signature) {
			return ErrBadSignature
		}
	default:
		return ErrBadSignature
	}
	return nil
}
