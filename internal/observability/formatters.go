// Package observability provides logging, metrics and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/training-planner/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	dateLayout     = "2006-01-02"
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	for _, line := range lines {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRace outputs the race a plan targets.
func (p *Printer) PrintRace(race *types.Race) {
	if race == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", race.Name))
	sb.WriteString(fmt.Sprintf("Type:     %s (%.1f mi)\n", race.RaceType, race.Miles))
	if !race.Date.IsZero() {
		sb.WriteString(fmt.Sprintf("Date:     %s\n", race.Date.Format(dateLayout)))
	}
	if race.Location != "" {
		sb.WriteString(fmt.Sprintf("Location: %s\n", race.Location))
	}

	p.printBox("RACE", sb.String())
}

// PrintPrompt outputs the section titles and fingerprint of an assembled prompt.
func (p *Printer) PrintPrompt(titles []string, fingerprint string) {
	if len(titles) == 0 {
		return
	}

	var sb strings.Builder
	for i, title := range titles {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, title))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Fingerprint: %s\n", shorten(fingerprint, 16)))

	p.printBox("ASSEMBLED PROMPT", sb.String())
}

// PrintNormalizations outputs the rewrites applied during validation.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintNormalizations(lines []string) {
	if len(lines) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO NORMALIZATIONS NEEDED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	count := min(len(lines), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", lines[i]))
	}
	if len(lines) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(lines)-maxItemsToShow))
	}

	p.printBox(fmt.Sprintf("NORMALIZATIONS (%d)", len(lines)), sb.String())
}

// PrintTrainingPlan outputs a phase by phase summary of a materialized plan.
func (p *Printer) PrintTrainingPlan(plan *types.TrainingPlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:       %s\n", plan.Name))
	sb.WriteString(fmt.Sprintf("Goal time:  %s\n", plan.GoalTime))
	sb.WriteString(fmt.Sprintf("Start date: %s\n", plan.StartDate.Format(dateLayout)))
	sb.WriteString(fmt.Sprintf("Weeks:      %d\n", plan.TotalWeeks))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", plan.Status))
	sb.WriteString("\n")

	for _, phase := range plan.Phases {
		runs := 0
		miles := 0.0
		for _, week := range phase.Weeks {
			runs += len(week.Runs)
			for _, run := range week.Runs {
				miles += run.Miles
			}
		}
		sb.WriteString(fmt.Sprintf("%-6s %2d wk  %3d runs  %6.1f mi\n", phase.Name, len(phase.Weeks), runs, miles))
		sb.WriteString(fmt.Sprintf("       [%s]\n", enabledRunTypes(phase.RunTypes)))
	}

	p.printBox("TRAINING PLAN", sb.String())
}

func enabledRunTypes(rt types.RunTypeSet) string {
	var enabled []string
	if rt.Easy {
		enabled = append(enabled, "easy")
	}
	if rt.Tempo {
		enabled = append(enabled, "tempo")
	}
	if rt.Intervals {
		enabled = append(enabled, "intervals")
	}
	if rt.LongRun {
		enabled = append(enabled, "longRun")
	}
	return strings.Join(enabled, " ")
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
