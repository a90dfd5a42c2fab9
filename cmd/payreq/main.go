// Command payreq is a CLI tool for payment request verification and signing.
//
// Usage:
//
//	payreq <command> [options] <args>
//
// Commands:
//
//	verify   Authenticate a signed payment request
//	outputs  List the payment outputs a request asks for
//	sign     Build and sign a payment request
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Verify a payment request against a set of trusted roots
//	payreq verify -trust-roots roots.pem request.bin
//
//	# List outputs without authenticating
//	payreq outputs -json request.bin
package main

import (
	"os"

	"github.com/georgepadayatti/payreq/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/payreq
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Set version info
	cli.Version = version
	cli.BuildTime = buildTime

	// Run the CLI
	cli.Run(os.Args)
}
