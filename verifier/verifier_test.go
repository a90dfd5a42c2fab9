package verifier

import (
	"context"
	"crypto"
	"crypto/x509"
	"errors"
	"testing"
	"time"

	"github.com/georgepadayatti/payreq/payments"
)

func TestAuthenticateTrustedChain(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	v := New(chain.rootPool())
	auth, err := v.Authenticate(context.Background(), pr)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if auth.Merchant != "merchant.example.com" {
		t.Errorf("merchant = %q, want %q", auth.Merchant, "merchant.example.com")
	}
	if auth.Chain.SelfSignedRoot {
		t.Error("trusted chain reported as self-signed root")
	}
	if auth.Chain.Algorithm != PKIX509SHA256 {
		t.Errorf("algorithm = %v, want %v", auth.Chain.Algorithm, PKIX509SHA256)
	}
}

func TestAuthenticateSHA1(t *testing.T) {
	chain := generateChain(t, "legacy.example.com")
	pr := signedRequest(t, "x509+sha1",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA1)

	v := New(chain.rootPool())
	auth, err := v.Authenticate(context.Background(), pr)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if auth.Merchant != "legacy.example.com" {
		t.Errorf("merchant = %q, want %q", auth.Merchant, "legacy.example.com")
	}
}

func TestAuthenticateECDSALeaf(t *testing.T) {
	root := generateCert(t, certSpec{cn: "EC Root", isCA: true}, nil)
	leaf := generateCert(t, certSpec{cn: "ec.example.com", ecdsaKey: true}, root)
	pr := signedRequest(t, "x509+sha256", [][]byte{leaf.cert.Raw}, leaf.key, crypto.SHA256)

	pool := chainPool(root)
	v := New(pool)
	auth, err := v.Authenticate(context.Background(), pr)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if auth.Merchant != "ec.example.com" {
		t.Errorf("merchant = %q, want %q", auth.Merchant, "ec.example.com")
	}
}

func TestAuthenticateFlippedSignatureBit(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	pr.Request.Signature[len(pr.Request.Signature)/2] ^= 0x01

	v := New(chain.rootPool())
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateFlippedOutputScriptBit(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	// The signature covers the serialized details, outputs included.
	pr.Request.SerializedDetails[len(pr.Request.SerializedDetails)-1] ^= 0x01

	v := New(chain.rootPool())
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateFlippedPKITypeFails(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha1",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA1)

	// Upgrading the declared digest after signing must not verify.
	pr.Request.PKIType = "x509+sha256"

	v := New(chain.rootPool())
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateExpiredLeaf(t *testing.T) {
	root := generateCert(t, certSpec{cn: "Expired Root", isCA: true}, nil)
	leaf := generateCert(t, certSpec{
		cn:        "expired.example.com",
		notBefore: time.Now().Add(-48 * time.Hour),
		notAfter:  time.Now().Add(-24 * time.Hour),
	}, root)
	pr := signedRequest(t, "x509+sha256", [][]byte{leaf.cert.Raw}, leaf.key, crypto.SHA256)

	v := New(chainPool(root))
	_, err := v.Authenticate(context.Background(), pr)
	var expired *CertificateExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want CertificateExpiredError", err)
	}
	if expired.Subject != "expired.example.com" {
		t.Errorf("expired subject = %q", expired.Subject)
	}
}

func TestAuthenticateNotYetValidLeaf(t *testing.T) {
	root := generateCert(t, certSpec{cn: "Future Root", isCA: true}, nil)
	leaf := generateCert(t, certSpec{
		cn:        "future.example.com",
		notBefore: time.Now().Add(24 * time.Hour),
		notAfter:  time.Now().Add(48 * time.Hour),
	}, root)
	pr := signedRequest(t, "x509+sha256", [][]byte{leaf.cert.Raw}, leaf.key, crypto.SHA256)

	v := New(chainPool(root))
	_, err := v.Authenticate(context.Background(), pr)
	var expired *CertificateExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want CertificateExpiredError", err)
	}
}

func TestAuthenticateSelfSignedRoot(t *testing.T) {
	selfSigned := generateCert(t, certSpec{cn: "selfsigned.example.com"}, nil)
	pr := signedRequest(t, "x509+sha256", [][]byte{selfSigned.cert.Raw}, selfSigned.key, crypto.SHA256)

	// Empty trust store; the leaf is its own root.
	v := New(x509.NewCertPool())
	_, err := v.Authenticate(context.Background(), pr)
	var chainErr *ChainValidationError
	if !errors.As(err, &chainErr) {
		t.Fatalf("err = %v, want ChainValidationError with allow flag off", err)
	}

	v.AllowSelfSignedRoot = true
	auth, err := v.Authenticate(context.Background(), pr)
	if err != nil {
		t.Fatalf("Authenticate with allow flag failed: %v", err)
	}
	if auth.Merchant != "selfsigned.example.com" {
		t.Errorf("merchant = %q", auth.Merchant)
	}
	if !auth.Chain.SelfSignedRoot {
		t.Error("SelfSignedRoot not reported")
	}
	if len(auth.Chain.Warnings) == 0 {
		t.Error("expected a warning for the self-signed root")
	}
}

func TestSelfSignedExceptionDoesNotMaskUntrustedChain(t *testing.T) {
	// A CA-issued leaf whose root is simply untrusted must stay invalid
	// even with the allow flag set: the leaf is not self-signed.
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	v := New(x509.NewCertPool())
	v.AllowSelfSignedRoot = true
	_, err := v.Authenticate(context.Background(), pr)
	var chainErr *ChainValidationError
	if !errors.As(err, &chainErr) {
		t.Fatalf("err = %v, want ChainValidationError", err)
	}
}

func TestAuthenticateNoPKI(t *testing.T) {
	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           "none",
		SerializedDetails: testDetails().Marshal(),
	}
	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := New(nil)
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrNoPKI) {
		t.Errorf("err = %v, want ErrNoPKI", err)
	}

	// Outputs stay extractable regardless of the authentication outcome.
	if got := len(pr.Outputs()); got != 2 {
		t.Errorf("outputs = %d, want 2", got)
	}
}

func TestAuthenticateUnknownPKIType(t *testing.T) {
	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           "x509+md5",
		SerializedDetails: testDetails().Marshal(),
	}
	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := New(nil)
	_, err = v.Authenticate(context.Background(), pr)
	var unknown *UnknownPKITypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownPKITypeError", err)
	}
	if unknown.PKIType != "x509+md5" {
		t.Errorf("pki type = %q", unknown.PKIType)
	}
}

func TestAuthenticateEmptyChain(t *testing.T) {
	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           "x509+sha256",
		SerializedDetails: testDetails().Marshal(),
	}
	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := New(nil)
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrEmptyChain) {
		t.Errorf("err = %v, want ErrEmptyChain", err)
	}
}

func TestAuthenticateGarbageCertificate(t *testing.T) {
	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           "x509+sha256",
		PKIData:           payments.EncodeCertificates([][]byte{{0x30, 0x01, 0x02}}),
		SerializedDetails: testDetails().Marshal(),
	}
	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := New(nil)
	_, err = v.Authenticate(context.Background(), pr)
	var chainErr *ChainValidationError
	if !errors.As(err, &chainErr) {
		t.Errorf("err = %v, want ChainValidationError", err)
	}
}

func TestAuthenticateRevokedLeaf(t *testing.T) {
	chain := generateChain(t, "revoked.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	blacklist := NewBlacklist()
	blacklist.Add(chain.leaf.cert.Raw)

	v := New(chain.rootPool())
	v.Revocation = blacklist
	_, err := v.Authenticate(context.Background(), pr)
	var revoked *CertificateRevokedError
	if !errors.As(err, &revoked) {
		t.Fatalf("err = %v, want CertificateRevokedError", err)
	}
	if revoked.Subject != "revoked.example.com" {
		t.Errorf("revoked subject = %q", revoked.Subject)
	}
}

func TestAuthenticateMissingCommonName(t *testing.T) {
	root := generateCert(t, certSpec{cn: "CN Root", isCA: true}, nil)
	leaf := generateCert(t, certSpec{org: "Anonymous Merchant"}, root)
	pr := signedRequest(t, "x509+sha256", [][]byte{leaf.cert.Raw}, leaf.key, crypto.SHA256)

	v := New(chainPool(root))
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrMissingCommonName) {
		t.Errorf("err = %v, want ErrMissingCommonName", err)
	}
}

func TestAuthenticateWrongKey(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	// Signed with the intermediate's key instead of the leaf's.
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.intermediate.key, crypto.SHA256)

	v := New(chain.rootPool())
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateMissingSignature(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           "x509+sha256",
		PKIData:           chain.pkiData(),
		SerializedDetails: testDetails().Marshal(),
	}
	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	v := New(chain.rootPool())
	if _, err := v.Authenticate(context.Background(), pr); !errors.Is(err, ErrBadSignature) {
		t.Errorf("err = %v, want ErrBadSignature", err)
	}
}

func TestVerifierInjectedClock(t *testing.T) {
	chain := generateChain(t, "merchant.example.com")
	pr := signedRequest(t, "x509+sha256",
		[][]byte{chain.leaf.cert.Raw, chain.intermediate.cert.Raw},
		chain.leaf.key, crypto.SHA256)

	v := New(chain.rootPool())
	v.Now = func() time.Time { return time.Now().Add(72 * time.Hour) }
	_, err := v.Authenticate(context.Background(), pr)
	var expired *CertificateExpiredError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want CertificateExpiredError under future clock", err)
	}
}

func TestParsePKIType(t *testing.T) {
	cases := []struct {
		in   string
		want PKIAlgorithm
	}{
		{"x509+sha256", PKIX509SHA256},
		{"x509+sha1", PKIX509SHA1},
		{"none", PKINone},
		{"", PKIUnknown},
		{"x509+md5", PKIUnknown},
	}
	for _, tc := range cases {
		if got := ParsePKIType(tc.in); got != tc.want {
			t.Errorf("ParsePKIType(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if h, ok := PKIX509SHA256.Hash(); !ok || h != crypto.SHA256 {
		t.Errorf("PKIX509SHA256.Hash() = %v, %v", h, ok)
	}
	if _, ok := PKINone.Hash(); ok {
		t.Error("PKINone should carry no digest")
	}
}
