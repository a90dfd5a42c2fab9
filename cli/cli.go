// Package cli provides the command-line interface for payment request
// verification, inspection and signing.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "verify":
		VerifyCommand(args)
	case "outputs":
		OutputsCommand(args)
	case "sign":
		SignCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("payreq - payment request verification tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  verify   Authenticate a signed payment request")
	fmt.Println("  outputs  List the payment outputs a request asks for")
	fmt.Println("  sign     Build and sign a payment request")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s verify -trust-roots roots.pem request.bin\n", os.Args[0])
	fmt.Printf("  %s outputs -json request.bin\n", os.Args[0])
	fmt.Printf("  %s sign -cert merchant.pem -key merchant.key -out request.bin 76a914...88ac:10000\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("payreq version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
