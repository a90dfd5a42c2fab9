// Package verifier tests.
// This file contains certificate and request fixtures shared by the tests.
package verifier

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/georgepadayatti/payreq/payments"
)

var testSerial int64 = 1

// certSpec describes a test certificate to generate.
type certSpec struct {
	cn         string
	org        string
	isCA       bool
	notBefore  time.Time
	notAfter   time.Time
	ocspServer string
	ecdsaKey   bool
}

// testCert holds a generated certificate and its key.
type testCert struct {
	cert *x509.Certificate
	key  crypto.Signer
}

// generateCert creates a certificate from the spec, signed by issuer (or
// self-signed when issuer is nil).
func generateCert(t *testing.T, spec certSpec, issuer *testCert) *testCert {
	t.Helper()

	var key crypto.Signer
	var err error
	if spec.ecdsaKey {
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	} else {
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	notBefore := spec.notBefore
	notAfter := spec.notAfter
	if notBefore.IsZero() {
		notBefore = time.Now().Add(-time.Hour)
	}
	if notAfter.IsZero() {
		notAfter = time.Now().Add(24 * time.Hour)
	}

	subject := pkix.Name{CommonName: spec.cn}
	if spec.org != "" {
		subject.Organization = []string{spec.org}
	}

	testSerial++
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(testSerial),
		Subject:               subject,
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  spec.isCA,
	}
	if spec.isCA {
		template.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}
	if spec.ocspServer != "" {
		template.OCSPServer = []string{spec.ocspServer}
	}

	signingCert := template
	signingKey := key
	if issuer != nil {
		signingCert = issuer.cert
		signingKey = issuer.key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, signingCert, key.Public(), signingKey)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}

	return &testCert{cert: cert, key: key}
}

// testChain is a root CA, an intermediate CA and a merchant leaf.
type testChain struct {
	root         *testCert
	intermediate *testCert
	leaf         *testCert
}

// generateChain creates root -> intermediate -> leaf with the given leaf CN.
func generateChain(t *testing.T, leafCN string) *testChain {
	t.Helper()

	root := generateCert(t, certSpec{cn: "Payments Test Root CA", isCA: true}, nil)
	intermediate := generateCert(t, certSpec{cn: "Payments Test Issuing CA", isCA: true}, root)
	leaf := generateCert(t, certSpec{cn: leafCN, org: "Test Merchant Inc"}, intermediate)
	return &testChain{root: root, intermediate: intermediate, leaf: leaf}
}

// rootPool returns a trust store containing only the chain's root.
func (c *testChain) rootPool() *x509.CertPool {
	return chainPool(c.root)
}

// chainPool builds a trust store from the given certificates.
func chainPool(certs ...*testCert) *x509.CertPool {
	pool := x509.NewCertPool()
	for _, tc := range certs {
		pool.AddCert(tc.cert)
	}
	return pool
}

// pkiData encodes [leaf, intermediate] as a certificate chain payload.
func (c *testChain) pkiData() []byte {
	return payments.EncodeCertificates([][]byte{c.leaf.cert.Raw, c.intermediate.cert.Raw})
}

// testDetails builds a details record with two outputs.
func testDetails() *payments.Details {
	return &payments.Details{
		Network: "main",
		Outputs: []payments.Output{
			{Amount: 10000, Script: []byte{0x76, 0xa9, 0x14, 0x01, 0x02, 0x03, 0x88, 0xac}},
			{Amount: 250, Script: []byte{0x6a, 0x04, 0xde, 0xad, 0xbe, 0xef}},
		},
		Time: uint64(time.Now().Unix()),
		Memo: "integration fixture",
	}
}

// signedRequest builds a signed payment request whose chain payload holds
// the given DER certificates, signed with the given key.
func signedRequest(t *testing.T, pkiType string, chainDER [][]byte, key crypto.Signer, hash crypto.Hash) *payments.PaymentRequest {
	t.Helper()

	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           pkiType,
		PKIData:           payments.EncodeCertificates(chainDER),
		SerializedDetails: testDetails().Marshal(),
	}
	if err := payments.Sign(req, key, hash); err != nil {
		t.Fatalf("failed to sign request: %v", err)
	}

	pr, err := payments.Parse(req.Marshal())
	if err != nil {
		t.Fatalf("failed to re-parse signed request: %v", err)
	}
	return pr
}
