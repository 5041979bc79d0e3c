package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "trusthive",
	Short: "TrustHive is the review platform's authentication core",
	Long: `The TrustHive server issues one-time login tokens, validates signed
plugin requests, manages dashboard sessions, and moderates reviews for
registered shops.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
