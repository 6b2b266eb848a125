// Package cmd provides the command-line interface of hybridsim.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hybridsim",
	Short: "Replay memory traces through a cache with a hybrid replacement policy.",
	Long: `hybridsim replays memory traces through a set-associative cache. ` +
		`Each set evicts by LRU until it has served more than 500 victim ` +
		`requests, and by RRPV after that.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
