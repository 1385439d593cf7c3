// Command distill fits long text into a language model's token budget.
package main

import (
	"fmt"
	"os"

	"distill/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
