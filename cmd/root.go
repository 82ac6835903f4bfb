package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "attendai",
	Short: "Face-recognition attendance for schools",
	Long: `attendai marks school attendance from webcam frames.

Teachers enroll student faces, start a session for a class and period, and
every recognized student is marked present. Stopping the session marks the
enrolled students who were not seen as absent.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
