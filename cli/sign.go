package cli

import (
	"crypto"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/georgepadayatti/payreq/config"
	"github.com/georgepadayatti/payreq/keys"
	"github.com/georgepadayatti/payreq/payments"
)

// SignOptions contains options for the sign command.
type SignOptions struct {
	ConfigFile    string
	CertFile      string
	KeyFile       string
	PFXFile       string
	PFXPassphrase string
	PKIType       string
	Network       string
	Memo          string
	PaymentURL    string
	MerchantData  string
	Expires       time.Duration
	OutFile       string
}

// SignCommand implements the 'sign' command: it builds a payment request
// from the given outputs and metadata, embeds the merchant certificate
// chain, and signs the canonical form with the merchant key.
func SignCommand(args []string) {
	signFlags := flag.NewFlagSet("sign", flag.ExitOnError)

	var opts SignOptions

	signFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file with a signing section")
	signFlags.StringVar(&opts.CertFile, "cert", "", "Merchant certificate file (PEM or DER); extra certificates become the chain")
	signFlags.StringVar(&opts.KeyFile, "key", "", "Merchant private key file (PEM or DER)")
	signFlags.StringVar(&opts.PFXFile, "pfx", "", "Merchant PKCS#12 credential file")
	signFlags.StringVar(&opts.PFXPassphrase, "pfx-pass", "", "PKCS#12 passphrase")
	signFlags.StringVar(&opts.PKIType, "pki", "x509+sha256", "PKI type: x509+sha256 or x509+sha1")
	signFlags.StringVar(&opts.Network, "network", "main", "Payment network identifier")
	signFlags.StringVar(&opts.Memo, "memo", "", "Memo shown to the customer")
	signFlags.StringVar(&opts.PaymentURL, "payment-url", "", "Callback URL for the payment message")
	signFlags.StringVar(&opts.MerchantData, "merchant-data", "", "Opaque merchant data (hex)")
	signFlags.DurationVar(&opts.Expires, "expires", 0, "Request lifetime (0 for no expiry)")
	signFlags.StringVar(&opts.OutFile, "out", "", "Output file (stdout if empty)")

	signFlags.Usage = func() {
		fmt.Printf("Usage: %s sign [options] <script-hex:amount> [...]\n\n", os.Args[0])
		fmt.Println("Build and sign a payment request.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  script-hex:amount  One requested output: hex spend script and amount")
		fmt.Println("")
		fmt.Println("Options:")
		signFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s sign -cert merchant.pem -key merchant.key -memo \"Order 42\" -out request.bin 76a914...88ac:10000\n", os.Args[0])
		fmt.Printf("  %s sign -pfx merchant.p12 -pfx-pass secret -out request.bin 76a914...88ac:10000\n", os.Args[0])
	}

	if err := signFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(signFlags.Args()) < 1 {
		signFlags.Usage()
		osExit(1)
	}

	data, err := signRequest(signFlags.Args(), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}

	if opts.OutFile == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			osExit(1)
		}
		return
	}
	if err := os.WriteFile(opts.OutFile, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}
}

// signRequest builds and signs a request, returning its wire encoding.
func signRequest(outputArgs []string, opts *SignOptions) ([]byte, error) {
	cred, err := loadCredential(opts)
	if err != nil {
		return nil, err
	}

	var hash crypto.Hash
	switch opts.PKIType {
	case "x509+sha256":
		hash = crypto.SHA256
	case "x509+sha1":
		hash = crypto.SHA1
	default:
		return nil, fmt.Errorf("unsupported pki type %q", opts.PKIType)
	}

	details := &payments.Details{
		Network:    opts.Network,
		Time:       uint64(time.Now().Unix()),
		Memo:       opts.Memo,
		PaymentURL: opts.PaymentURL,
	}
	if opts.Expires > 0 {
		details.Expires = uint64(time.Now().Add(opts.Expires).Unix())
	}
	if opts.MerchantData != "" {
		md, err := hex.DecodeString(opts.MerchantData)
		if err != nil {
			return nil, fmt.Errorf("invalid merchant data: %w", err)
		}
		details.MerchantData = md
	}

	for _, arg := range outputArgs {
		out, err := parseOutputArg(arg)
		if err != nil {
			return nil, err
		}
		details.Outputs = append(details.Outputs, out)
	}

	req := &payments.Request{
		DetailsVersion:    1,
		PKIType:           opts.PKIType,
		PKIData:           payments.EncodeCertificates(cred.ChainDER()),
		SerializedDetails: details.Marshal(),
	}
	if err := payments.Sign(req, cred.PrivateKey, hash); err != nil {
		return nil, err
	}
	return req.Marshal(), nil
}

// loadCredential resolves the signing credential from flags or config.
func loadCredential(opts *SignOptions) (*keys.Credential, error) {
	sc := &config.SigningConfig{}
	if opts.ConfigFile != "" {
		appCfg, err := config.LoadConfig(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		if appCfg.Signing != nil {
			sc = appCfg.Signing
		}
	}
	if opts.CertFile != "" || opts.KeyFile != "" {
		sc = &config.SigningConfig{Type: "pemder", CertFile: opts.CertFile, KeyFile: opts.KeyFile}
	}
	if opts.PFXFile != "" {
		sc = &config.SigningConfig{Type: "pkcs12", PFXFile: opts.PFXFile, PFXPassphrase: opts.PFXPassphrase}
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	switch sc.Type {
	case "pemder":
		return keys.LoadCredential(sc.CertFile, sc.KeyFile)
	case "pkcs12":
		return keys.LoadCredentialPKCS12(sc.PFXFile, sc.PFXPassphrase)
	}
	return nil, fmt.Errorf("unknown credential type %q", sc.Type)
}

// parseOutputArg parses one "script-hex:amount" argument.
func parseOutputArg(arg string) (payments.Output, error) {
	idx := strings.LastIndex(arg, ":")
	if idx < 0 {
		return payments.Output{}, fmt.Errorf("invalid output %q: expected script-hex:amount", arg)
	}
	script, err := hex.DecodeString(arg[:idx])
	if err != nil {
		return payments.Output{}, fmt.Errorf("invalid output script in %q: %w", arg, err)
	}
	amount, err := strconv.ParseUint(arg[idx+1:], 10, 64)
	if err != nil {
		return payments.Output{}, fmt.Errorf("invalid output amount in %q: %w", arg, err)
	}
	return payments.Output{Script: script, Amount: amount}, nil
}
