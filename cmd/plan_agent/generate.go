package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/training-planner/internal/events"
	"github.com/jonathan/training-planner/internal/observability"
	"github.com/jonathan/training-planner/internal/pipeline"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/jonathan/training-planner/internal/validation"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a training plan for one athlete",
	Long: `Resolves the four artifacts, assembles the prompt, calls the backend, validates the output
and persists the plan. --dry-run stops before persistence; --print-prompt stops before the
backend call and prints the assembled prompt.`,
	RunE: runGenerate,
}

var (
	genAthlete      string
	genRole         string
	genRuleSet      string
	genMustHaves    string
	genReturnFormat string
	genRace         string
	genGoalTime     string
	genStartDate    string
	genName         string
	genNotes        string
	genExisting     string
	genWeeks        int
	genPhaseWeeks   string
	genRunsPerWeek  int
	genDryRun       bool
	genPrintPrompt  bool
	genOut          string
	genVerbose      bool
)

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genAthlete, "athlete", "", "Athlete ID the plan belongs to (required)")
	f.StringVar(&genRole, "role", "", "Role ID (required)")
	f.StringVar(&genRuleSet, "rule-set", "", "Rule set ID (required)")
	f.StringVar(&genMustHaves, "must-haves", "", "Must-haves ID (required)")
	f.StringVar(&genReturnFormat, "return-format", "", "Return format ID (required)")
	f.StringVar(&genRace, "race", "", "Race ID (required)")
	f.StringVarP(&genGoalTime, "goal-time", "g", "", "Goal finish time, H:MM:SS or MM:SS (required)")
	f.StringVar(&genStartDate, "start-date", "", "First day of the plan, YYYY-MM-DD (default: derived from the race date)")
	f.StringVarP(&genName, "name", "n", "", "Plan name")
	f.StringVar(&genNotes, "notes", "", "Free-form notes for the coach")
	f.StringVar(&genExisting, "existing-plan", "", "Path to a partial plan JSON to keep")
	f.IntVar(&genWeeks, "weeks", 0, "Total weeks hint")
	f.StringVar(&genPhaseWeeks, "phase-weeks", "", "Weeks per phase hint, e.g. base=4,build=5,peak=3,taper=2")
	f.IntVar(&genRunsPerWeek, "runs-per-week", 0, "Runs per week hint")
	f.BoolVar(&genDryRun, "dry-run", false, "Validate and materialize without persisting")
	f.BoolVar(&genPrintPrompt, "print-prompt", false, "Print the assembled prompt and exit without calling the backend")
	f.StringVarP(&genOut, "out", "o", "", "Write the resulting plan JSON to this path")
	f.BoolVarP(&genVerbose, "verbose", "v", false, "Print each pipeline stage")

	for _, name := range []string{"athlete", "role", "rule-set", "must-haves", "return-format", "race", "goal-time"} {
		if err := generateCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	req, err := buildGenerateRequest()
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	printer := observability.NewPrinter(os.Stdout)

	if genPrintPrompt {
		generator, err := a.newGenerator(ctx, events.NopPublisher{}, false)
		if err != nil {
			return err
		}
		prompt, err := generator.Prompt(ctx, req)
		if err != nil {
			return err
		}
		titles := make([]string, 0, len(prompt.Blocks))
		for _, b := range prompt.Blocks {
			if b.Title != "" {
				titles = append(titles, b.Title)
			}
		}
		printer.PrintPrompt(titles, prompt.Fingerprint())
		_, _ = fmt.Fprint(os.Stdout, prompt.Text())
		return nil
	}

	var publisher events.Publisher = events.NopPublisher{}
	if !genDryRun {
		publisher = a.newPublisher()
	}
	generator, err := a.newGenerator(ctx, publisher, true)
	if err != nil {
		return err
	}

	if genVerbose {
		req.OnProgress = func(event pipeline.ProgressEvent) {
			_, _ = fmt.Fprintf(os.Stdout, "[%s] %s\n", event.Stage, event.Message)
		}
	}

	result, err := generator.Generate(ctx, req)
	if err != nil {
		return err
	}

	printer.PrintRace(result.Plan.Race)
	printer.PrintNormalizations(normalizationLines(result.Normalizations))
	printer.PrintTrainingPlan(result.Plan)
	if result.Persisted {
		_, _ = fmt.Fprintf(os.Stdout, "Saved plan %s\n", result.Plan.ID)
	} else {
		_, _ = fmt.Fprintln(os.Stdout, "Dry run: plan not saved")
	}

	if genOut != "" {
		data, err := json.MarshalIndent(result.Plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		if err := os.WriteFile(genOut, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", genOut, err)
		}
	}
	return nil
}

func buildGenerateRequest() (pipeline.Request, error) {
	ids := map[string]string{
		"athlete": genAthlete, "role": genRole, "rule-set": genRuleSet,
		"must-haves": genMustHaves, "return-format": genReturnFormat, "race": genRace,
	}
	parsed := make(map[string]uuid.UUID, len(ids))
	for flag, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("invalid --%s %q: %w", flag, raw, err)
		}
		parsed[flag] = id
	}

	skeleton, err := buildSkeleton(genWeeks, genPhaseWeeks, genRunsPerWeek)
	if err != nil {
		return pipeline.Request{}, err
	}

	body := types.GeneratePlanRequest{
		ArtifactRefs: types.ArtifactRefs{
			RoleID:         parsed["role"],
			RuleSetID:      parsed["rule-set"],
			MustHavesID:    parsed["must-haves"],
			ReturnFormatID: parsed["return-format"],
		},
		RaceID:    parsed["race"],
		GoalTime:  genGoalTime,
		StartDate: genStartDate,
		PlanName:  genName,
		Skeleton:  skeleton,
		Notes:     genNotes,
	}
	if genExisting != "" {
		data, err := os.ReadFile(genExisting)
		if err != nil {
			return pipeline.Request{}, fmt.Errorf("failed to read existing plan: %w", err)
		}
		if !json.Valid(data) {
			return pipeline.Request{}, fmt.Errorf("existing plan %s is not valid JSON", genExisting)
		}
		body.ExistingPlan = data
	}

	return pipeline.Request{
		GeneratePlanRequest: body,
		AthleteID:           parsed["athlete"],
		DryRun:              genDryRun,
	}, nil
}

// buildSkeleton returns nil when no structural hint was given.
func buildSkeleton(weeks int, phaseWeeks string, runsPerWeek int) (*types.PlanSkeleton, error) {
	phases, err := parsePhaseWeeks(phaseWeeks)
	if err != nil {
		return nil, err
	}
	if weeks == 0 && len(phases) == 0 && runsPerWeek == 0 {
		return nil, nil
	}
	return &types.PlanSkeleton{TotalWeeks: weeks, PhaseWeeks: phases, RunsPerWeek: runsPerWeek}, nil
}

// parsePhaseWeeks parses "base=4,build=5".
func parsePhaseWeeks(s string) (map[string]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil, fmt.Errorf("invalid --phase-weeks entry %q: want phase=weeks", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid --phase-weeks count in %q", part)
		}
		out[strings.TrimSpace(name)] = n
	}
	return out, nil
}

func normalizationLines(ns []validation.Normalization) []string {
	lines := make([]string, len(ns))
	for i, n := range ns {
		lines[i] = fmt.Sprintf("%s: %v → %v", n.Path, n.From, n.To)
	}
	return lines
}
