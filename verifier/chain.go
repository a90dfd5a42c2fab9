package verifier

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/georgepadayatti/payreq/payments"
)

// ValidatedChain is the outcome of successful chain validation: the signing
// certificate whose public key verifies the request signature, the digest
// algorithm the request declared, and any non-fatal warnings.
type ValidatedChain struct {
	// Leaf is the signing certificate (index 0 of the decoded chain).
	Leaf *x509.Certificate

	// Intermediates are the remaining chain certificates in root-closest
	// order, as handed to the trust-path verifier.
	Intermediates []*x509.Certificate

	// Algorithm is the PKI algorithm resolved from the request's pki_type.
	Algorithm PKIAlgorithm

	// SelfSignedRoot reports that the chain was accepted under the
	// self-signed root exception rather than via the trust store.
	SelfSignedRoot bool

	// Warnings contains non-fatal issues encountered during validation.
	Warnings []string
}

// ValidateChain validates the certificate chain embedded in the request.
//
// In order: the pki_type is resolved to a digest algorithm; the chain
// payload is decoded; every certificate is parsed, checked against its
// validity window and the revocation checker; and the leaf is verified
// against the trust roots with the remaining certificates as intermediates.
// Expiry and revocation are checked before path validation so they surface
// as their own error categories instead of a generic chain failure.
func (v *Verifier) ValidateChain(ctx context.Context, req *payments.Request) (*ValidatedChain, error) {
	algo := ParsePKIType(req.PKIType)
	switch algo {
	case PKINone:
		return nil, ErrNoPKI
	case PKIUnknown:
		return nil, &UnknownPKITypeError{PKIType: req.PKIType}
	}

	derCerts, err := payments.DecodeCertificates(req.PKIData)
	if err != nil {
		return nil, err
	}
	if len(derCerts) == 0 {
		return nil, ErrEmptyChain
	}

	now := v.now()

	certs := make([]*x509.Certificate, 0, len(derCerts))
	for i, der := range derCerts {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, &ChainValidationError{
				Reason: fmt.Sprintf("cannot parse certificate %d: %v", i, err),
				Err:    err,
			}
		}
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			return nil, &CertificateExpiredError{
				Subject:   cert.Subject.CommonName,
				NotBefore: cert.NotBefore,
				NotAfter:  cert.NotAfter,
				At:        now,
			}
		}
		certs = append(certs, cert)
	}

	if v.Revocation != nil {
		for i, cert := range certs {
			// The chain neighbour acts as issuer; the terminal entry is its
			// own issuer.
			issuer := cert
			if i+1 < len(certs) {
				issuer = certs[i+1]
			}
			revoked, err := v.Revocation.IsRevoked(ctx, cert, issuer, now)
			if err != nil {
				return nil, &ChainValidationError{
					Reason: fmt.Sprintf("revocation check failed for certificate %d: %v", i, err),
					Err:    err,
				}
			}
			if revoked {
				return nil, &CertificateRevokedError{Subject: cert.Subject.CommonName}
			}
		}
	}

	leaf := certs[0]

	// Indices 1..N-1 reversed: root-closest order for the path builder.
	intermediates := make([]*x509.Certificate, 0, len(certs)-1)
	pool := x509.NewCertPool()
	for i := len(certs) - 1; i > 0; i-- {
		intermediates = append(intermediates, certs[i])
		pool.AddCert(certs[i])
	}

	validated := &ValidatedChain{
		Leaf:          leaf,
		Intermediates: intermediates,
		Algorithm:     algo,
	}

	opts := x509.VerifyOptions{
		Roots:         v.Roots,
		Intermediates: pool,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}
	if _, err := leaf.Verify(opts); err != nil {
		if !(v.AllowSelfSignedRoot && isSelfSignedRootError(err, leaf)) {
			return nil, NewChainValidationError(err)
		}
		validated.SelfSignedRoot = true
		validated.Warnings = append(validated.Warnings,
			"allowing self-signed root certificate")
	}

	return validated, nil
}

// isSelfSignedRootError reports whether the sole path validation failure is
// a self-signed certificate at chain depth zero. Both legs must hold: the
// platform validator rejected the chain for an unknown authority, and the
// leaf really is self-signed. An untrusted but CA-issued chain fails the
// second leg, so the exception cannot mask unrelated validation failures.
func isSelfSignedRootError(err error, leaf *x509.Certificate) bool {
	var unknownAuthority x509.UnknownAuthorityError
	if !errors.As(err, &unknownAuthority) {
		return false
	}
	return isSelfSigned(leaf)
}

// isSelfSigned reports whether the certificate's issuer is its own subject
// and its signature checks against its own public key.
func isSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}
