package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonathan/training-planner/internal/seed"
	"github.com/jonathan/training-planner/internal/types"
)

var (
	seedFile        string
	seedStrictRaces bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load artifacts and races from a YAML bundle",
	Long: `Seed creates every role, rule set, must-haves and return format in the bundle that does not
already exist by name, then upserts the bundle's races. Running it twice is harmless.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seeds/default.yaml", "Path to the seed bundle")
	seedCmd.Flags().BoolVar(&seedStrictRaces, "strict-races", false, "Reject races whose miles disagree with their race type")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	bundle, err := seed.Load(seedFile)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := seed.New(a.registry, a.db, a.logger).Apply(ctx, bundle, seed.Options{StrictRaces: seedStrictRaces})
	if err != nil {
		return fmt.Errorf("seeding %s failed: %w", seedFile, err)
	}

	printSeedReport(report)
	return nil
}

func printSeedReport(report *seed.Report) {
	kinds := make([]string, 0, len(report.Created))
	for kind := range report.Created {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		_, _ = fmt.Fprintf(os.Stdout, "created %-14s %d\n", kind, report.Created[types.ArtifactKind(kind)])
	}
	_, _ = fmt.Fprintf(os.Stdout, "skipped existing    %d\n", report.Skipped)
	_, _ = fmt.Fprintf(os.Stdout, "races upserted      %d\n", report.Races)
}
