package policy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/training-planner/internal/types"
)

// MilesTolerance is the largest accepted gap between recorded and canonical race miles
const MilesTolerance = 0.05

// milesEpsilon absorbs float error so a gap of exactly MilesTolerance is accepted
const milesEpsilon = 1e-9

var raceMiles = map[string]float64{
	"marathon": 26.2,
	"half":     13.1,
	"10k":      6.2,
	"5k":       3.1,
	"10m":      10.0,
}

// RaceMilesForType returns the canonical distance of a race type (case-insensitive).
func RaceMilesForType(raceType string) (float64, error) {
	miles, ok := raceMiles[strings.ToLower(strings.TrimSpace(raceType))]
	if !ok {
		return 0, &UnknownRaceTypeError{RaceType: raceType}
	}
	return miles, nil
}

// CheckRaceDistance verifies that a race's recorded miles match its declared type.
func CheckRaceDistance(race types.Race) error {
	expected, err := RaceMilesForType(race.RaceType)
	if err != nil {
		return err
	}
	if math.Abs(race.Miles-expected) > MilesTolerance+milesEpsilon {
		return &RaceDistanceMismatchError{
			RaceType: race.RaceType,
			Miles:    race.Miles,
			Expected: expected,
		}
	}
	return nil
}

// ParseGoalTime parses "h:mm:ss" or "mm:ss" into a duration.
func ParseGoalTime(s string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid goal time %q: expected h:mm:ss or mm:ss", s)
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid goal time %q: %q is not a non-negative number", s, p)
		}
		// minutes and seconds after the leading field must be below 60
		if i > 0 && (n >= 60 || len(p) != 2) {
			return 0, fmt.Errorf("invalid goal time %q: %q must be two digits below 60", s, p)
		}
		values[i] = n
	}

	var d time.Duration
	if len(values) == 3 {
		d = time.Duration(values[0])*time.Hour + time.Duration(values[1])*time.Minute + time.Duration(values[2])*time.Second
	} else {
		d = time.Duration(values[0])*time.Minute + time.Duration(values[1])*time.Second
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid goal time %q: must be positive", s)
	}
	return d, nil
}
