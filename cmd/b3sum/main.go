package main

import (
	"fmt"
	"os"

	"github.com/upalinski/blake3/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "b3sum: %v\n", err)
		os.Exit(1)
	}
}
