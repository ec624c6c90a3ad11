package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/training-planner/internal/observability"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/jonathan/training-planner/internal/validation"
)

var validatePlanCmd = &cobra.Command{
	Use:   "validate-plan",
	Short: "Validate a raw plan document against a return format and must-haves",
	Long: `Runs the structural and semantic validation stages over a plan JSON file without
calling the backend or touching stored plans. Useful for checking hand-written plans or
replaying a rejected backend response.`,
	RunE: runValidatePlan,
}

var (
	vpFile         string
	vpReturnFormat string
	vpMustHaves    string
	vpRace         string
)

func init() {
	f := validatePlanCmd.Flags()
	f.StringVarP(&vpFile, "file", "f", "", "Path to the plan JSON (required)")
	f.StringVar(&vpReturnFormat, "return-format", "", "Return format ID (required)")
	f.StringVar(&vpMustHaves, "must-haves", "", "Must-haves ID (required)")
	f.StringVar(&vpRace, "race", "", "Race ID to check distance consistency against")

	for _, name := range []string{"file", "return-format", "must-haves"} {
		if err := validatePlanCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(validatePlanCmd)
}

func runValidatePlan(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	raw, err := os.ReadFile(vpFile)
	if err != nil {
		return fmt.Errorf("failed to read plan file: %w", err)
	}
	formatID, err := uuid.Parse(vpReturnFormat)
	if err != nil {
		return fmt.Errorf("invalid --return-format: %w", err)
	}
	mustHavesID, err := uuid.Parse(vpMustHaves)
	if err != nil {
		return fmt.Errorf("invalid --must-haves: %w", err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	format, err := a.registry.Get(ctx, types.KindReturnFormat, formatID)
	if err != nil {
		return err
	}
	mustHaves, err := a.registry.Get(ctx, types.KindMustHaves, mustHavesID)
	if err != nil {
		return err
	}

	in := validation.Input{
		Schema:        format.(*types.ReturnFormat).Schema,
		RequiredPaths: mustHaves.(*types.MustHaves).RequiredPaths,
	}

	printer := observability.NewPrinter(os.Stdout)
	if vpRace != "" {
		raceID, err := uuid.Parse(vpRace)
		if err != nil {
			return fmt.Errorf("invalid --race: %w", err)
		}
		race, err := a.db.GetRace(ctx, raceID)
		if err != nil {
			return err
		}
		if race == nil {
			return fmt.Errorf("race %s not found", raceID)
		}
		printer.PrintRace(race)
		in.Race = race
	}

	result, err := validation.Validate(raw, in)
	if err != nil {
		return err
	}

	printer.PrintNormalizations(normalizationLines(result.Normalizations))
	_, _ = fmt.Fprintf(os.Stdout, "Plan is valid: %d phases\n", len(result.Plan.Phases))
	return nil
}
