// Package main provides the entry point for the process-wiki CLI.
package main

import (
	"fmt"
	"os"

	"github.com/wikivault/process-wiki/cmd/process-wiki/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cmd.ExitCode(err))
}
