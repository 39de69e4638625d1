// Package main provides the entry point for the talent pipeline API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "ats",
	Short:        "Applicant tracking pipeline API",
	Long:         "ats serves the hiring pipeline API: jobs and stages, candidate transitions, scoring, interviews and recruiting analytics.",
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
