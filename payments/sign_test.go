package payments

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"testing"
)

func TestSign(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	req := testRequest()
	req.Signature = nil

	if err := Sign(req, key, crypto.SHA256); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(req.Signature) == 0 {
		t.Fatal("no signature stored")
	}

	digest := sha256.Sum256(req.SignableForm())
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], req.Signature); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
}

func TestSignReplacesSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	req := testRequest()
	if err := Sign(req, key, crypto.SHA256); err != nil {
		t.Fatalf("first Sign failed: %v", err)
	}
	first := append([]byte(nil), req.Signature...)

	// The signable form clears the signature, so re-signing the same
	// request yields the same bytes for a deterministic scheme.
	if err := Sign(req, key, crypto.SHA256); err != nil {
		t.Fatalf("second Sign failed: %v", err)
	}
	if !bytes.Equal(first, req.Signature) {
		t.Error("re-signing the same request changed the signature")
	}
	digest := sha256.Sum256(req.SignableForm())
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], req.Signature); err != nil {
		t.Errorf("re-signed signature does not verify: %v", err)
	}
}

func TestSignUnavailableHash(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	req := testRequest()
	if err := Sign(req, key, crypto.Hash(0)); err == nil {
		t.Error("expected error for unavailable hash")
	}
}
