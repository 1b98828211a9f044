package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/famtree/internal/client/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
