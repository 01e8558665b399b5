// Command zigpkg loads the zigpkg module and runs its operations.
//
//	zigpkg compute 40
//	zigpkg add 6 --foo
//	zigpkg --variant wasm info
//	zigpkg interactive
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, exitMessage(err))
		os.Exit(1)
	}
}

// overflowMessage is printed on overflow, matching the C example.
const overflowMessage = "Result overflowed"

func exitMessage(err error) string {
	if errors.Is(err, errOverflowed) {
		return overflowMessage
	}
	return "Error: " + err.Error()
}
