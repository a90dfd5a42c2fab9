package cli

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/georgepadayatti/payreq/config"
	"github.com/georgepadayatti/payreq/keys"
	"github.com/georgepadayatti/payreq/payments"
	"github.com/georgepadayatti/payreq/verifier"
)

// VerifyOptions contains options for the verify command.
type VerifyOptions struct {
	ConfigFile      string
	TrustRootsFile  string
	AllowSelfSigned bool
	BlacklistFile   string
	OCSP            bool
	HTTPTimeout     time.Duration
	JSON            bool
	Verbose         bool
}

// VerifyCommand implements the 'verify' command.
func VerifyCommand(args []string) {
	verifyFlags := flag.NewFlagSet("verify", flag.ExitOnError)

	var opts VerifyOptions

	verifyFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	verifyFlags.StringVar(&opts.TrustRootsFile, "trust-roots", "", "File containing trusted root certificates (PEM or DER)")
	verifyFlags.BoolVar(&opts.AllowSelfSigned, "allow-self-signed-root", false, "Accept chains whose only failure is a self-signed certificate at depth zero (insecure)")
	verifyFlags.StringVar(&opts.BlacklistFile, "blacklist", "", "File of hex SHA-256 fingerprints of revoked certificates")
	verifyFlags.BoolVar(&opts.OCSP, "ocsp", false, "Check certificate revocation against OCSP responders")
	verifyFlags.DurationVar(&opts.HTTPTimeout, "http-timeout", 10*time.Second, "Timeout for OCSP responder requests")
	verifyFlags.BoolVar(&opts.JSON, "json", false, "Output results in JSON format")
	verifyFlags.BoolVar(&opts.Verbose, "verbose", false, "Show detailed validation information")

	verifyFlags.Usage = func() {
		fmt.Printf("Usage: %s verify [options] <request.bin>\n\n", os.Args[0])
		fmt.Println("Authenticate a signed payment request and print the merchant identity.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  request.bin  Serialized payment request to verify")
		fmt.Println("")
		fmt.Println("Options:")
		verifyFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s verify -trust-roots roots.pem request.bin\n", os.Args[0])
		fmt.Printf("  %s verify -config payreq.yaml -json request.bin\n", os.Args[0])
		fmt.Printf("  %s verify -trust-roots roots.pem -ocsp -http-timeout=30s request.bin\n", os.Args[0])
	}

	if err := verifyFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(verifyFlags.Args()) < 1 {
		verifyFlags.Usage()
		osExit(1)
	}

	inputPath := verifyFlags.Arg(0)

	result, err := verifyRequest(inputPath, &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			osExit(1)
		}
	} else {
		printVerifyResult(result, opts.Verbose)
	}

	if result.Status != "AUTHENTICATED" {
		osExit(1)
	}
}

// VerifyResult is the JSON-serializable verification result.
type VerifyResult struct {
	Status     string       `json:"status"`
	Merchant   string       `json:"merchant,omitempty"`
	PKIType    string       `json:"pki_type"`
	Network    string       `json:"network"`
	Memo       string       `json:"memo,omitempty"`
	PaymentURL string       `json:"payment_url,omitempty"`
	Expires    string       `json:"expires,omitempty"`
	Error      string       `json:"error,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Outputs    []OutputInfo `json:"outputs"`
}

// OutputInfo is one requested payment output.
type OutputInfo struct {
	Script string `json:"script"`
	Amount uint64 `json:"amount"`
}

// verifyRequest parses the request file, authenticates it, and assembles
// the result. A failed authentication is a reported outcome, not an error;
// errors are reserved for being unable to run at all.
func verifyRequest(inputPath string, opts *VerifyOptions) (*VerifyResult, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}

	pr, err := payments.Parse(data)
	if err != nil {
		return &VerifyResult{Status: "MALFORMED", Error: err.Error()}, nil
	}

	v, err := buildVerifier(opts)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		PKIType:    pr.Request.PKIType,
		Network:    pr.Details.Network,
		Memo:       pr.Details.Memo,
		PaymentURL: pr.Details.PaymentURL,
		Outputs:    outputInfos(pr),
	}
	if pr.Details.Expires != 0 {
		result.Expires = time.Unix(int64(pr.Details.Expires), 0).UTC().Format(time.RFC3339)
	}

	auth, err := v.Authenticate(context.Background(), pr)
	if err != nil {
		result.Status = "INVALID"
		result.Error = err.Error()
		return result, nil
	}

	result.Status = "AUTHENTICATED"
	result.Merchant = auth.Merchant
	result.Warnings = auth.Chain.Warnings
	return result, nil
}

// buildVerifier assembles a verifier from the config file and flags. Flags
// override config values.
func buildVerifier(opts *VerifyOptions) (*verifier.Verifier, error) {
	vc := &config.VerificationConfig{}
	if opts.ConfigFile != "" {
		appCfg, err := config.LoadConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if appCfg.Verification != nil {
			vc = appCfg.Verification
		}
	}

	if opts.TrustRootsFile != "" {
		vc.TrustAnchors = []string{opts.TrustRootsFile}
	}
	if opts.AllowSelfSigned {
		vc.AllowSelfSignedRoot = true
	}
	if opts.BlacklistFile != "" {
		vc.Revocation = &config.RevocationConfig{
			Mode:          config.RevocationModeBlacklist,
			BlacklistFile: opts.BlacklistFile,
		}
	}
	if opts.OCSP {
		vc.Revocation = &config.RevocationConfig{
			Mode:        config.RevocationModeOCSP,
			HTTPTimeout: opts.HTTPTimeout,
		}
	}

	if err := vc.Validate(); err != nil {
		return nil, err
	}

	roots := x509.NewCertPool()
	if len(vc.TrustAnchors) > 0 {
		pool, err := keys.NewCertPool(vc.TrustAnchors)
		if err != nil {
			return nil, err
		}
		roots = pool
	}
	return finishVerifier(verifier.New(roots), vc)
}

func finishVerifier(v *verifier.Verifier, vc *config.VerificationConfig) (*verifier.Verifier, error) {
	v.AllowSelfSignedRoot = vc.AllowSelfSignedRoot

	if vc.Revocation != nil {
		switch vc.Revocation.Mode {
		case config.RevocationModeBlacklist:
			blacklist, err := verifier.LoadBlacklist(vc.Revocation.BlacklistFile)
			if err != nil {
				return nil, err
			}
			v.Revocation = blacklist
		case config.RevocationModeOCSP:
			v.Revocation = verifier.NewOCSPChecker(vc.Revocation.HTTPTimeout)
		}
	}
	return v, nil
}

func outputInfos(pr *payments.PaymentRequest) []OutputInfo {
	infos := make([]OutputInfo, 0, len(pr.Outputs()))
	for _, out := range pr.Outputs() {
		infos = append(infos, OutputInfo{
			Script: hex.EncodeToString(out.Script),
			Amount: out.Amount,
		})
	}
	return infos
}

func printVerifyResult(result *VerifyResult, verbose bool) {
	fmt.Printf("Status:   %s\n", result.Status)
	if result.Merchant != "" {
		fmt.Printf("Merchant: %s\n", result.Merchant)
	}
	if result.Error != "" {
		fmt.Printf("Reason:   %s\n", result.Error)
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning:  %s\n", w)
	}
	if verbose {
		fmt.Printf("PKI type: %s\n", result.PKIType)
		fmt.Printf("Network:  %s\n", result.Network)
		if result.Memo != "" {
			fmt.Printf("Memo:     %s\n", result.Memo)
		}
		if result.PaymentURL != "" {
			fmt.Printf("Pay URL:  %s\n", result.PaymentURL)
		}
		if result.Expires != "" {
			fmt.Printf("Expires:  %s\n", result.Expires)
		}
	}
	fmt.Printf("Outputs:  %d\n", len(result.Outputs))
	for i, out := range result.Outputs {
		fmt.Printf("  %d: amount=%d script=%s\n", i, out.Amount, out.Script)
	}
}
