// Command vigil runs the real-time security-event correlation engine.
package main

import (
	"fmt"
	"os"

	"vigil/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
