package cmd

import (
	"fmt"
	"runtime"

	"github.com/kozaktomas/attendai/internal/config"
	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("attendai %s (%s)\n", Version, runtime.Version())
		fmt.Printf("  Commit: %s\n", CommitSHA)
		fmt.Printf("  Built:  %s\n", BuildDate)
		fmt.Printf("  Default face model: %s (threshold %.2f)\n", config.DefaultModel, config.DefaultThreshold)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
