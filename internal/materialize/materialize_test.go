package materialize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/training-planner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRaces struct {
	races map[uuid.UUID]*types.Race
	err   error
}

func (f *fakeRaces) GetRace(_ context.Context, id uuid.UUID) (*types.Race, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.races[id], nil
}

var raceID = uuid.MustParse("55555555-5555-5555-5555-555555555555")

func testRace() *types.Race {
	return &types.Race{
		ID:       raceID,
		Name:     "Riverfront Half",
		RaceType: "half",
		Miles:    13.1,
		Date:     time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC),
	}
}

func testPlan() *types.ValidatedPlan {
	return &types.ValidatedPlan{
		Phases: []types.Phase{
			{Name: "base", RunTypes: types.RunTypeSet{Easy: true, LongRun: true}, Weeks: []types.Week{
				{WeekNumber: 1, Focus: " aerobic ", Runs: []types.Run{{Type: "easy", Miles: 4}, {Type: "longRun", Miles: 8}}},
				{WeekNumber: 2, Runs: []types.Run{{Type: "easy", Miles: 5}}},
			}},
			{Name: "build", Weeks: []types.Week{{Runs: []types.Run{{Type: "tempo", DurationMinutes: 40}}}}},
			{Name: "peak", Weeks: []types.Week{{Runs: []types.Run{{Type: "intervals"}}}}},
			{Name: "taper", Weeks: []types.Week{{Runs: []types.Run{{Type: "easy", Description: "shakeout "}}}}},
		},
	}
}

func newMaterializer(races *fakeRaces) *Materializer {
	m := New(races)
	m.now = func() time.Time { return time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC) }
	return m
}

func TestMaterialize_Layout(t *testing.T) {
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{raceID: testRace()}})
	athlete := uuid.New()
	refs := types.ArtifactRefs{RoleID: uuid.New(), RuleSetID: uuid.New(), MustHavesID: uuid.New(), ReturnFormatID: uuid.New()}

	tp, err := m.Materialize(context.Background(), testPlan(), Input{
		AthleteID:         athlete,
		RaceID:            raceID,
		GoalTime:          "1:45:00",
		Artifacts:         refs,
		PromptFingerprint: "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, athlete, tp.AthleteID)
	assert.Equal(t, raceID, tp.RaceID)
	assert.Equal(t, "Riverfront Half Training Plan", tp.Name)
	assert.Equal(t, types.PlanStatusDraft, tp.Status)
	assert.Equal(t, 5, tp.TotalWeeks)
	assert.Equal(t, refs, tp.Artifacts)
	assert.Equal(t, "abc", tp.PromptFingerprint)
	// five weeks before race day
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), tp.StartDate)

	require.Len(t, tp.Phases, 4)
	assert.Equal(t, 1, tp.Phases[0].Ordinal)
	assert.Equal(t, 4, tp.Phases[3].Ordinal)
	assert.Equal(t, types.RunTypeSet{Easy: true, LongRun: true}, tp.Phases[0].RunTypes)

	var numbers []int
	for _, p := range tp.Phases {
		for _, w := range p.Weeks {
			numbers = append(numbers, w.WeekNumber)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers)

	base := tp.Phases[0]
	assert.Equal(t, 2, base.Weeks[1].Ordinal)
	assert.Equal(t, "aerobic", base.Weeks[0].Focus)
	assert.Equal(t, tp.StartDate.AddDate(0, 0, 7), base.Weeks[1].StartDate)
	assert.Equal(t, 2, base.Weeks[0].Runs[1].Ordinal)
	assert.Equal(t, "longRun", base.Weeks[0].Runs[1].Type)

	taper := tp.Phases[3].Weeks[0]
	assert.Equal(t, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), taper.StartDate)
	assert.Equal(t, "shakeout", taper.Runs[0].Description)
}

func TestMaterialize_Names(t *testing.T) {
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{raceID: testRace()}})

	plan := testPlan()
	plan.Name = "Sub 1:45 Block"
	tp, err := m.Materialize(context.Background(), plan, Input{RaceID: raceID})
	require.NoError(t, err)
	assert.Equal(t, "Sub 1:45 Block", tp.Name)

	tp, err = m.Materialize(context.Background(), plan, Input{RaceID: raceID, PlanName: "My Plan"})
	require.NoError(t, err)
	assert.Equal(t, "My Plan", tp.Name)
}

func TestMaterialize_ExplicitStartDate(t *testing.T) {
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{raceID: testRace()}})

	start := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	tp, err := m.Materialize(context.Background(), testPlan(), Input{RaceID: raceID, StartDate: start})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), tp.StartDate)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tp.Phases[3].Weeks[0].StartDate)
}

func TestMaterialize_RaceWithoutDate(t *testing.T) {
	race := testRace()
	race.Date = time.Time{}
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{raceID: race}})

	tp, err := m.Materialize(context.Background(), testPlan(), Input{RaceID: raceID})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), tp.StartDate)
}

func TestMaterialize_RaceNotFound(t *testing.T) {
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{}})

	tp, err := m.Materialize(context.Background(), testPlan(), Input{RaceID: raceID})
	assert.Nil(t, tp)
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonRaceNotFound, merr.Reason)
	assert.Equal(t, raceID, merr.RaceID)
}

func TestMaterialize_LookupFailure(t *testing.T) {
	cause := errors.New("connection reset")
	m := newMaterializer(&fakeRaces{err: cause})

	_, err := m.Materialize(context.Background(), testPlan(), Input{RaceID: raceID})
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonRaceLookup, merr.Reason)
	assert.ErrorIs(t, err, cause)
}

func TestMaterialize_EmptyPlan(t *testing.T) {
	m := newMaterializer(&fakeRaces{races: map[uuid.UUID]*types.Race{raceID: testRace()}})

	_, err := m.Materialize(context.Background(), &types.ValidatedPlan{Phases: []types.Phase{{Name: "base"}}}, Input{RaceID: raceID})
	var merr *MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, ReasonEmptyPlan, merr.Reason)
}
