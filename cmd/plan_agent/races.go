package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/training-planner/internal/observability"
)

var racesCmd = &cobra.Command{
	Use:   "races [name]",
	Short: "Search the race catalog by name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRaces,
}

func init() {
	rootCmd.AddCommand(racesCmd)
}

func runRaces(_ *cobra.Command, args []string) error {
	ctx := context.Background()

	var query string
	if len(args) == 1 {
		query = args[0]
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	races, err := a.db.SearchRaces(ctx, query)
	if err != nil {
		return err
	}
	if len(races) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No races found")
		return nil
	}

	printer := observability.NewPrinter(os.Stdout)
	for i := range races {
		printer.PrintRace(&races[i])
		_, _ = fmt.Fprintf(os.Stdout, "ID: %s\n", races[i].ID)
	}
	return nil
}
