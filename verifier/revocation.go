package verifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ocsp"
)

// RevocationChecker is the capability the chain validator consults once per
// chain certificate. The issuer is the certificate's chain neighbour (the
// certificate itself for the terminal entry); implementations that do not
// need it, such as static blacklists, ignore it.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, cert, issuer *x509.Certificate, at time.Time) (bool, error)
}

// Blacklist is a static revocation checker backed by a set of SHA-256
// certificate fingerprints. It is safe for concurrent use once populated.
type Blacklist struct {
	fingerprints map[[sha256.Size]byte]struct{}
}

// NewBlacklist creates an empty blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{fingerprints: make(map[[sha256.Size]byte]struct{})}
}

// Add blacklists a certificate by its DER encoding.
func (b *Blacklist) Add(der []byte) {
	b.fingerprints[sha256.Sum256(der)] = struct{}{}
}

// AddFingerprint blacklists a certificate by its hex-encoded SHA-256
// fingerprint.
func (b *Blacklist) AddFingerprint(fp string) error {
	raw, err := hex.DecodeString(strings.ReplaceAll(strings.TrimSpace(fp), ":", ""))
	if err != nil {
		return fmt.Errorf("invalid fingerprint %q: %w", fp, err)
	}
	if len(raw) != sha256.Size {
		return fmt.Errorf("invalid fingerprint %q: expected %d bytes, got %d", fp, sha256.Size, len(raw))
	}
	var key [sha256.Size]byte
	copy(key[:], raw)
	b.fingerprints[key] = struct{}{}
	return nil
}

// Len returns the number of blacklisted fingerprints.
func (b *Blacklist) Len() int {
	return len(b.fingerprints)
}

// IsRevoked implements RevocationChecker.
func (b *Blacklist) IsRevoked(_ context.Context, cert, _ *x509.Certificate, _ time.Time) (bool, error) {
	_, ok := b.fingerprints[sha256.Sum256(cert.Raw)]
	return ok, nil
}

// LoadBlacklist loads a blacklist from a file of hex-encoded SHA-256
// fingerprints, one per line. Blank lines and lines starting with '#' are
// skipped.
func LoadBlacklist(filename string) (*Blacklist, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read blacklist file: %w", err)
	}

	b := NewBlacklist()
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := b.AddFingerprint(line); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// maxOCSPResponseSize bounds OCSP response bodies.
const maxOCSPResponseSize = 1 << 20

// OCSPChecker checks revocation status against the OCSP responder named in
// each certificate's AIA extension. Certificates without an OCSP responder
// URL are treated as not revoked (no information available).
type OCSPChecker struct {
	// Client is the HTTP client used for responder requests. A default
	// client with Timeout is used when nil.
	Client *http.Client

	// Timeout bounds each responder request when Client is nil.
	Timeout time.Duration
}

// NewOCSPChecker creates an OCSP checker with the given request timeout.
func NewOCSPChecker(timeout time.Duration) *OCSPChecker {
	return &OCSPChecker{Timeout: timeout}
}

func (c *OCSPChecker) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// IsRevoked implements RevocationChecker by querying the certificate's OCSP
// responder. A "revoked" status as of the query time reports true; "good"
// and "unknown" report false.
func (c *OCSPChecker) IsRevoked(ctx context.Context, cert, issuer *x509.Certificate, _ time.Time) (bool, error) {
	if len(cert.OCSPServer) == 0 {
		return false, nil
	}

	reqBytes, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build OCSP request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, cert.OCSPServer[0], bytes.NewReader(reqBytes))
	if err != nil {
		return false, fmt.Errorf("failed to build OCSP HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/ocsp-request")
	httpReq.Header.Set("Accept", "application/ocsp-response")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("OCSP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("OCSP responder returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOCSPResponseSize))
	if err != nil {
		return false, fmt.Errorf("failed to read OCSP response: %w", err)
	}

	ocspResp, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return false, fmt.Errorf("failed to parse OCSP response: %w", err)
	}

	return ocspResp.Status == ocsp.Revoked, nil
}
