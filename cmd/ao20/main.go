// Command ao20 runs and inspects a journaled token ledger.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ao20/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ao20: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
