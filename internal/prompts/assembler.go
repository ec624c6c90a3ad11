package prompts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/training-planner/internal/policy"
	"github.com/jonathan/training-planner/internal/types"
)

const dateLayout = "2006-01-02"

// BlockKind labels a section of an assembled prompt
type BlockKind string

// Prompt blocks in assembly order
const (
	BlockPreamble     BlockKind = "preamble"
	BlockRole         BlockKind = "role"
	BlockRules        BlockKind = "rules"
	BlockMustHaves    BlockKind = "must_haves"
	BlockReturnFormat BlockKind = "return_format"
	BlockContext      BlockKind = "context"
	BlockInstructions BlockKind = "instructions"
)

// Block is one titled section of a prompt
type Block struct {
	Kind  BlockKind `json:"kind"`
	Title string    `json:"title,omitempty"`
	Body  string    `json:"body"`
}

// Prompt is an assembled generation request payload
type Prompt struct {
	Blocks []Block `json:"blocks"`
}

// Text renders the prompt as the single string sent to the backend
func (p *Prompt) Text() string {
	var sb strings.Builder
	for i, b := range p.Blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if b.Title != "" {
			sb.WriteString("## ")
			sb.WriteString(b.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(b.Body)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Fingerprint is the hex SHA-256 of Text
func (p *Prompt) Fingerprint() string {
	sum := sha256.Sum256([]byte(p.Text()))
	return hex.EncodeToString(sum[:])
}

// ArtifactSource looks up configuration artifacts. A missing artifact is (nil, nil).
type ArtifactSource interface {
	GetArtifact(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error)
}

// Selection is the resolved set of artifacts for one generation
type Selection struct {
	Role         *types.Role
	RuleSet      *types.RuleSet
	MustHaves    *types.MustHaves
	ReturnFormat *types.ReturnFormat
}

// Refs returns the ids of the selected artifacts
func (s *Selection) Refs() types.ArtifactRefs {
	var refs types.ArtifactRefs
	if s.Role != nil {
		refs.RoleID = s.Role.ID
	}
	if s.RuleSet != nil {
		refs.RuleSetID = s.RuleSet.ID
	}
	if s.MustHaves != nil {
		refs.MustHavesID = s.MustHaves.ID
	}
	if s.ReturnFormat != nil {
		refs.ReturnFormatID = s.ReturnFormat.ID
	}
	return refs
}

// Resolve fetches the four referenced artifacts concurrently.
func Resolve(ctx context.Context, src ArtifactSource, refs types.ArtifactRefs) (*Selection, error) {
	for _, kind := range types.ArtifactKinds {
		if refs.ID(kind) == uuid.Nil {
			return nil, &MissingArtifactError{Kind: kind}
		}
	}

	fetched := make([]types.Artifact, len(types.ArtifactKinds))
	g, gCtx := errgroup.WithContext(ctx)
	for i, kind := range types.ArtifactKinds {
		id := refs.ID(kind)
		g.Go(func() error {
			artifact, err := src.GetArtifact(gCtx, kind, id)
			if err != nil {
				return fmt.Errorf("failed to load %s %s: %w", kind, id, err)
			}
			if artifact == nil || artifact.Kind() != kind {
				return &MissingArtifactError{Kind: kind, ID: id}
			}
			fetched[i] = artifact
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Selection{
		Role:         fetched[0].(*types.Role),
		RuleSet:      fetched[1].(*types.RuleSet),
		MustHaves:    fetched[2].(*types.MustHaves),
		ReturnFormat: fetched[3].(*types.ReturnFormat),
	}, nil
}

// Assemble composes the prompt for a selection and context. Identical inputs always
// produce byte-identical output.
func Assemble(sel *Selection, gc types.GenerationContext) (*Prompt, error) {
	if err := checkSelection(sel); err != nil {
		return nil, err
	}

	fragments, err := loadFragments()
	if err != nil {
		return nil, err
	}

	schemaText, err := canonicalJSON(sel.ReturnFormat.Schema)
	if err != nil {
		return nil, &AssemblyError{Message: "return format schema is not valid JSON", Cause: err}
	}

	contextText, err := renderContext(gc)
	if err != nil {
		return nil, err
	}

	blocks := []Block{
		{Kind: BlockPreamble, Body: fragments["preamble"]},
		{Kind: BlockRole, Title: "Role: " + sel.Role.Title, Body: strings.TrimSpace(sel.Role.SystemInstructions)},
		{Kind: BlockRules, Title: "Rules: " + sel.RuleSet.Name, Body: renderRules(sel.RuleSet)},
		{Kind: BlockMustHaves, Title: "Required fields", Body: fragments["must-haves-intro"] + "\n" + renderPaths(sel.MustHaves.RequiredPaths)},
		{Kind: BlockReturnFormat, Title: "Return format: " + sel.ReturnFormat.Name, Body: fragments["return-format-intro"] + "\n" + schemaText},
		{Kind: BlockContext, Title: "Context", Body: fragments["context-intro"] + "\n" + contextText},
		{Kind: BlockInstructions, Title: "Output", Body: Format(fragments["output-instructions"], map[string]string{
			"Phases":   strings.Join(policy.CanonicalPhases(), ", "),
			"RunTypes": strings.Join(policy.CanonicalRunTypes(), ", "),
		})},
	}

	return &Prompt{Blocks: blocks}, nil
}

// fragmentKeys are the fixed fragments every prompt is built from
var fragmentKeys = []string{"preamble", "must-haves-intro", "return-format-intro", "context-intro", "output-instructions"}

func loadFragments() (map[string]string, error) {
	fragments := make(map[string]string, len(fragmentKeys))
	for _, key := range fragmentKeys {
		text, err := Get(generationFile, key)
		if err != nil {
			return nil, &AssemblyError{Message: "prompt fragments unavailable", Cause: err}
		}
		fragments[key] = text
	}
	return fragments, nil
}

func checkSelection(sel *Selection) error {
	switch {
	case sel == nil || sel.Role == nil:
		return &MissingArtifactError{Kind: types.KindRole}
	case sel.RuleSet == nil:
		return &MissingArtifactError{Kind: types.KindRuleSet}
	case sel.MustHaves == nil:
		return &MissingArtifactError{Kind: types.KindMustHaves}
	case sel.ReturnFormat == nil:
		return &MissingArtifactError{Kind: types.KindReturnFormat}
	}
	return nil
}

func renderRules(rs *types.RuleSet) string {
	var sb strings.Builder
	if d := strings.TrimSpace(rs.Description); d != "" {
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	for i, rule := range rs.Rules {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(rule)))
	}
	return sb.String()
}

// renderPaths lists must-have paths as a set: trimmed, deduplicated and sorted.
func renderPaths(paths []string) string {
	seen := make(map[string]bool, len(paths))
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	sort.Strings(unique)

	lines := make([]string, len(unique))
	for i, p := range unique {
		lines[i] = "- " + p
	}
	return strings.Join(lines, "\n")
}

func renderContext(gc types.GenerationContext) (string, error) {
	race := gc.Race
	lines := []string{
		"Race: " + race.Name,
		fmt.Sprintf("Race type: %s (%.1f miles)", race.RaceType, race.Miles),
	}
	if !race.Date.IsZero() {
		lines = append(lines, "Race date: "+race.Date.Format(dateLayout))
	}
	if race.Location != "" {
		lines = append(lines, "Location: "+race.Location)
	}
	lines = append(lines, "Goal time: "+gc.GoalTime)
	if !gc.StartDate.IsZero() {
		lines = append(lines, "Start date: "+gc.StartDate.Format(dateLayout))
	}
	if gc.PlanName != "" {
		lines = append(lines, "Plan name: "+gc.PlanName)
	}

	if sk := gc.Skeleton; sk != nil {
		if sk.TotalWeeks > 0 {
			lines = append(lines, fmt.Sprintf("Total weeks: %d", sk.TotalWeeks))
		}
		if len(sk.PhaseWeeks) > 0 {
			lines = append(lines, "Weeks per phase: "+renderPhaseWeeks(sk.PhaseWeeks))
		}
		if sk.RunsPerWeek > 0 {
			lines = append(lines, fmt.Sprintf("Runs per week: %d", sk.RunsPerWeek))
		}
	}

	if n := strings.TrimSpace(gc.Notes); n != "" {
		lines = append(lines, "Notes: "+n)
	}

	if len(bytes.TrimSpace(gc.ExistingPlan)) > 0 {
		existing, err := canonicalJSON(gc.ExistingPlan)
		if err != nil {
			return "", &AssemblyError{Message: "existing plan is not valid JSON", Cause: err}
		}
		lines = append(lines, "Existing partial plan (keep what it fixes):\n"+existing)
	}

	return strings.Join(lines, "\n"), nil
}

// renderPhaseWeeks lists canonical phases in order, then any other keys sorted.
func renderPhaseWeeks(pw map[string]int) string {
	var parts []string
	done := make(map[string]bool, len(pw))
	for _, phase := range policy.CanonicalPhases() {
		if weeks, ok := pw[phase]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", phase, weeks))
			done[phase] = true
		}
	}

	var rest []string
	for phase := range pw {
		if !done[phase] {
			rest = append(rest, phase)
		}
	}
	sort.Strings(rest)
	for _, phase := range rest {
		parts = append(parts, fmt.Sprintf("%s=%d", phase, pw[phase]))
	}
	return strings.Join(parts, ", ")
}

// canonicalJSON re-encodes a document with sorted object keys and two-space indentation.
func canonicalJSON(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
