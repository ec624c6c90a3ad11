package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/training-planner/internal/config"
	"github.com/jonathan/training-planner/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an athlete",
	Long:  "Signs a JWT for the given athlete with JWT_SECRET so the HTTP API can be called from scripts.",
	RunE:  runToken,
}

var tokenAthlete string

func init() {
	tokenCmd.Flags().StringVar(&tokenAthlete, "athlete", "", "Athlete ID (required)")
	if err := tokenCmd.MarkFlagRequired("athlete"); err != nil {
		panic(fmt.Sprintf("failed to mark athlete flag as required: %v", err))
	}
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	athleteID, err := uuid.Parse(tokenAthlete)
	if err != nil {
		return fmt.Errorf("invalid --athlete: %w", err)
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtCfg).GenerateToken(athleteID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, token)
	return nil
}
