// Command eventformctl is the operator CLI: list events, print the composed
// message and export attendees straight from the configured store.
package main

import (
	"os"
)

// set via -ldflags at build time
var version = "dev"

func main() {
	if err := newRootCmd(defaultOpener).Execute(); err != nil {
		os.Exit(1)
	}
}
