// Package main provides the plan_agent CLI: the HTTP API server plus operator commands
// for migrations, seeding and one-off plan generation.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "plan_agent",
	Short: "Training plan generation service",
	Long: `plan_agent assembles prompts from stored roles, rule sets, must-haves and return formats,
asks a generative backend for a running training plan and accepts the result only after it
passes schema and domain validation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.json (environment variables override file values)")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
