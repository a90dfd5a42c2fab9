package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/georgepadayatti/payreq/payments"
)

// OutputsCommand implements the 'outputs' command. It lists the payment
// outputs a request asks for without authenticating the request; output
// extraction is independent of certificate and signature validity.
func OutputsCommand(args []string) {
	outputsFlags := flag.NewFlagSet("outputs", flag.ExitOnError)

	jsonOut := outputsFlags.Bool("json", false, "Output results in JSON format")

	outputsFlags.Usage = func() {
		fmt.Printf("Usage: %s outputs [options] <request.bin>\n\n", os.Args[0])
		fmt.Println("List the payment outputs (script, amount) a request asks for.")
		fmt.Println("No authentication is performed.")
		fmt.Println("")
		fmt.Println("Options:")
		outputsFlags.PrintDefaults()
	}

	if err := outputsFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(outputsFlags.Args()) < 1 {
		outputsFlags.Usage()
		osExit(1)
	}

	data, err := os.ReadFile(outputsFlags.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read request file: %v\n", err)
		osExit(1)
	}

	pr, err := payments.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
	}

	infos := outputInfos(pr)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			osExit(1)
		}
		return
	}

	for i, out := range infos {
		fmt.Printf("%d: amount=%d script=%s\n", i, out.Amount, out.Script)
	}
}
