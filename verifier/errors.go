// Package verifier authenticates signed payment requests: it validates the
// embedded X.509 certificate chain against caller-supplied trust roots,
// verifies the request signature over its canonical signable form, and
// resolves the merchant identity from the signing certificate.
// This file contains the error taxonomy for verification failures.
package verifier

import (
	"errors"
	"fmt"
	"time"
)

// Common errors
var (
	// ErrNoPKI is returned when the request declares pki_type "none"; an
	// unauthenticated request has no merchant identity to resolve.
	ErrNoPKI = errors.New("payment request declares no PKI mechanism")

	// ErrEmptyChain is returned when the PKI data decodes to zero
	// certificates.
	ErrEmptyChain = errors.New("empty certificate chain")

	// ErrBadSignature is returned for every signature verification failure.
	// Wrong key, corrupted signature bytes and malformed signature
	// structures are deliberately not distinguished.
	ErrBadSignature = errors.New("bad signature, invalid payment request")

	// ErrMissingCommonName is returned when the signing certificate has no
	// usable subject common name.
	ErrMissingCommonName = errors.New("bad certificate, missing common name")
)

// UnknownPKITypeError is returned for a pki_type value this verifier does
// not recognize.
type UnknownPKITypeError struct {
	PKIType string
}

func (e *UnknownPKITypeError) Error() string {
	return fmt.Sprintf("unknown pki_type %q", e.PKIType)
}

// CertificateExpiredError is returned when the validation time falls
// outside a chain certificate's validity window.
type CertificateExpiredError struct {
	Subject   string
	NotBefore time.Time
	NotAfter  time.Time
	At        time.Time
}

func (e *CertificateExpiredError) Error() string {
	if e.At.Before(e.NotBefore) {
		return fmt.Sprintf("certificate %q not valid until %s", e.Subject,
			e.NotBefore.Format("2006-01-02 15:04:05Z"))
	}
	return fmt.Sprintf("certificate %q expired %s", e.Subject,
		e.NotAfter.Format("2006-01-02 15:04:05Z"))
}

// CertificateRevokedError is returned when the revocation checker flags a
// chain certificate.
type CertificateRevokedError struct {
	Subject string
}

func (e *CertificateRevokedError) Error() string {
	return fmt.Sprintf("certificate %q is revoked", e.Subject)
}

// ChainValidationError is returned when trust-path building or verification
// fails and the self-signed root exception does not apply. Reason carries
// the underlying validator's message for diagnostics.
type ChainValidationError struct {
	Reason string
	Err    error
}

func (e *ChainValidationError) Error() string {
	return fmt.Sprintf("certificate chain validation failed: %s", e.Reason)
}

func (e *ChainValidationError) Unwrap() error {
	return e.Err
}

// NewChainValidationError wraps an underlying path validation failure.
func NewChainValidationError(err error) *ChainValidationError {
	return &ChainValidationError{Reason: err.Error(), Err: err}
}
