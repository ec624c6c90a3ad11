// Package policy holds the pure domain rules for training plans: phase order, run-type
// vocabulary, per-phase run-type defaults and race distances.
package policy

import (
	"sort"

	"github.com/jonathan/training-planner/internal/types"
)

// Canonical phase names
const (
	PhaseBase  = "base"
	PhaseBuild = "build"
	PhasePeak  = "peak"
	PhaseTaper = "taper"
)

var canonicalPhases = [...]string{PhaseBase, PhaseBuild, PhasePeak, PhaseTaper}

var defaultRunTypes = map[string]types.RunTypeSet{
	PhaseBase:  {Easy: true, LongRun: true},
	PhaseBuild: {Easy: true, Tempo: true, Intervals: true, LongRun: true},
	PhasePeak:  {Easy: true, Tempo: true, Intervals: true, LongRun: true},
	PhaseTaper: {Easy: true, Tempo: true, LongRun: true},
}

// CanonicalPhases returns the phase names in their required order
func CanonicalPhases() []string {
	out := make([]string, len(canonicalPhases))
	copy(out, canonicalPhases[:])
	return out
}

// PhaseOrderValid reports whether seq is exactly base, build, peak, taper.
func PhaseOrderValid(seq []string) bool {
	if len(seq) != len(canonicalPhases) {
		return false
	}
	for i, name := range seq {
		if name != canonicalPhases[i] {
			return false
		}
	}
	return true
}

// PhaseIndex returns the position of a canonical phase name. Names are matched exactly.
func PhaseIndex(name string) (int, error) {
	for i, p := range canonicalPhases {
		if p == name {
			return i, nil
		}
	}
	return -1, &InvalidPhaseError{Name: name}
}

// SortPhases returns names ordered by PhaseIndex. Any unknown name fails the whole sort.
func SortPhases(names []string) ([]string, error) {
	return SortPhasesBy(names, func(s string) string { return s })
}

// SortPhasesBy stably orders items by the phase index of name(item).
func SortPhasesBy[T any](items []T, name func(T) string) ([]T, error) {
	idx := make([]int, len(items))
	for i, item := range items {
		n, err := PhaseIndex(name(item))
		if err != nil {
			return nil, err
		}
		idx[i] = n
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return idx[order[a]] < idx[order[b]] })

	out := make([]T, len(items))
	for i, o := range order {
		out[i] = items[o]
	}
	return out, nil
}

// DefaultRunTypesForPhase returns the run types a phase enables when generation output is silent.
func DefaultRunTypesForPhase(name string) (types.RunTypeSet, error) {
	set, ok := defaultRunTypes[name]
	if !ok {
		return types.RunTypeSet{}, &InvalidPhaseError{Name: name}
	}
	return set, nil
}
