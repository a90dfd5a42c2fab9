package verifier

import (
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
)

// PKIAlgorithm is the closed set of PKI mechanisms a payment request can
// declare. It is resolved once from the pki_type string at the start of
// validation and never re-matched afterwards.
type PKIAlgorithm int

const (
	// PKIUnknown represents an unrecognized pki_type value.
	PKIUnknown PKIAlgorithm = iota
	// PKINone represents pki_type "none": no authentication requested.
	PKINone
	// PKIX509SHA256 represents pki_type "x509+sha256".
	PKIX509SHA256
	// PKIX509SHA1 represents pki_type "x509+sha1". Kept for compatibility
	// with requests signed by legacy merchants.
	PKIX509SHA1
)

// ParsePKIType resolves a pki_type string to its algorithm variant.
func ParsePKIType(pkiType string) PKIAlgorithm {
	switch pkiType {
	case "x509+sha256":
		return PKIX509SHA256
	case "x509+sha1":
		return PKIX509SHA1
	case "none":
		return PKINone
	default:
		return PKIUnknown
	}
}

// Hash returns the digest algorithm for X.509 variants and false for
// variants that carry no digest.
func (a PKIAlgorithm) Hash() (crypto.Hash, bool) {
	switch a {
	case PKIX509SHA256:
		return crypto.SHA256, true
	case PKIX509SHA1:
		return crypto.SHA1, true
	default:
		return 0, false
	}
}

// String returns the wire representation of the algorithm.
func (a PKIAlgorithm) String() string {
	switch a {
	case PKINone:
		return "none"
	case PKIX509SHA256:
		return "x509+sha256"
	case PKIX509SHA1:
		return "x509+sha1"
	default:
		return "unknown"
	}
}
