// Command pageblocks manages block pages from the command line.
//
// Configuration is read from the file given with --config, then from
// PAGEBLOCKS_* environment variables.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
