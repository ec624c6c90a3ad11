package policy

import "fmt"

// InvalidPhaseError is returned for a phase name outside base/build/peak/taper
type InvalidPhaseError struct {
	Name string
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("invalid phase %q", e.Name)
}

// UnknownRaceTypeError is returned for a race type without a canonical distance
type UnknownRaceTypeError struct {
	RaceType string
}

func (e *UnknownRaceTypeError) Error() string {
	return fmt.Sprintf("unknown race type %q", e.RaceType)
}

// RaceDistanceMismatchError reports a race whose miles disagree with its type
type RaceDistanceMismatchError struct {
	RaceType string
	Miles    float64
	Expected float64
}

func (e *RaceDistanceMismatchError) Error() string {
	return fmt.Sprintf("race type %q implies %.1f miles, race records %.2f", e.RaceType, e.Expected, e.Miles)
}
