// Package main is stateflowctl, the stateflow admin CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "stateflowctl: %v\n", err)
		os.Exit(1)
	}
}
