package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Overridden at build time via -ldflags "-X main.version=...".
var version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ctestgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ctestgen %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	},
}
