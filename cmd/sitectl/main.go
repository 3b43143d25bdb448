package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env for local runs; secrets usually arrive this way.
	godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "provision":
		if err := runProvision(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "sitectl provision: %v\n", err)
			os.Exit(1)
		}
	case "probe":
		if err := runProbe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "sitectl probe: %v\n", err)
			os.Exit(1)
		}
	case "reconcile":
		if err := runReconcile(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "sitectl reconcile: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "sitectl: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: sitectl <command> [flags]

Commands:
  provision   Bring the configured site into its desired state
  probe       Report whether the configured site exists
  reconcile   Apply desired configuration to an existing site

Run 'sitectl <command> --help' for command-specific flags.
`)
}
