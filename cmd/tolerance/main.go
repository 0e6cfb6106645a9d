// tolerance evaluates an organization's tolerance rules and records the
// exceptions and notifications they raise.
//
// Usage:
//
//	tolerance config init
//	tolerance import org.yaml
//	tolerance run --org org-acme
//	tolerance exceptions list --org org-acme
//	tolerance schedule
//	tolerance watch
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
