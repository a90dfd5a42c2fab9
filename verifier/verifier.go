package verifier

import (
	"context"
	"crypto/x509"
	"time"

	"github.com/georgepadayatti/payreq/payments"
)

// Verifier authenticates signed payment requests against a set of trusted
// root certificates.
//
// A Verifier is safe for concurrent use provided its fields are not
// mutated after construction; every call revalidates from the supplied
// bytes and keeps no state across calls.
type Verifier struct {
	// Roots is the caller-supplied trust store. It is only read during
	// path validation.
	Roots *x509.CertPool

	// AllowSelfSignedRoot accepts a chain whose sole validation failure is
	// a self-signed certificate at depth zero. Default false.
	AllowSelfSignedRoot bool

	// Revocation is consulted once per chain certificate when non-nil.
	Revocation RevocationChecker

	// Now supplies the validation time; time.Now when nil.
	Now func() time.Time
}

// New creates a Verifier trusting the given roots, with the self-signed
// root exception disabled and no revocation checking.
func New(roots *x509.CertPool) *Verifier {
	return &Verifier{Roots: roots}
}

func (v *Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// Authenticated is the successful outcome of request authentication.
type Authenticated struct {
	// Merchant is the subject common name of the signing certificate.
	Merchant string

	// Chain is the validated certificate chain.
	Chain *ValidatedChain
}

// Authenticate runs chain validation, signature verification and merchant
// identity resolution in sequence, short-circuiting on the first failure.
// Partial authentication is never reported as success.
func (v *Verifier) Authenticate(ctx context.Context, pr *payments.PaymentRequest) (*Authenticated, error) {
	chain, err := v.ValidateChain(ctx, pr.Request)
	if err != nil {
		return nil, err
	}
	if err := v.VerifySignature(pr.Request, chain); err != nil {
		return nil, err
	}
	merchant, err := MerchantName(chain)
	if err != nil {
		return nil, err
	}
	return &Authenticated{Merchant: merchant, Chain: chain}, nil
}

// AuthenticateBytes parses a raw payment request and authenticates it,
// returning the merchant name. Parse failures surface with their own error
// categories before any validation runs.
func (v *Verifier) AuthenticateBytes(ctx context.Context, data []byte) (string, error) {
	pr, err := payments.Parse(data)
	if err != nil {
		return "", err
	}
	auth, err := v.Authenticate(ctx, pr)
	if err != nil {
		return "", err
	}
	return auth.Merchant, nil
}
