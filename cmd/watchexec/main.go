// Command watchexec watches a set of paths and runs a command whenever
// matching filesystem events occur, per spec §1-§9.
package main

import (
	"fmt"
	"os"

	"github.com/watchexec/corewatch/internal/config"
)

func main() {
	expanded, err := config.ExpandArgfiles(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, renderErr(err))
		os.Exit(1)
	}
	rootCmd.SetArgs(expanded)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
