// Package cmd provides the command-line interface of masim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "masim",
	Short: "masim replays timed memory access patterns.",
	Long: `masim replays timed, multi-threaded memory access workloads ` +
		`against named memory regions. A workload is a list of regions and ` +
		`a list of phases, each phase a weighted set of access patterns.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// A missing .env file is fine, the flag defaults apply.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().String("log.level", "info",
		"Only log messages with the given severity or above. "+
			"One of: debug, info, warn, error.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
