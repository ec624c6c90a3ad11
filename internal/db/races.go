package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/training-planner/internal/types"
)

// RaceSearchLimit caps the number of races a search returns
const RaceSearchLimit = 20

var raceColumns = []string{"id", "name", "race_type", "miles", "race_date", "location"}

// SearchRaces finds races whose name contains query, case-insensitively, soonest first.
// An empty query lists upcoming and past races alike.
func (db *DB) SearchRaces(ctx context.Context, query string) ([]types.Race, error) {
	sql, args := buildRaceSearch(query, RaceSearchLimit)
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search races: %w", err)
	}
	defer rows.Close()

	races := []types.Race{}
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, *race)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search races: %w", err)
	}
	return races, nil
}

func buildRaceSearch(query string, limit int) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns...)
	sb.From("races")
	if q := strings.TrimSpace(query); q != "" {
		sb.Where(sb.ILike("name", "%"+escapeLike(q)+"%"))
	}
	sb.OrderBy("race_date ASC NULLS LAST", "name ASC")
	sb.Limit(limit)
	return sb.Build()
}

// escapeLike escapes the LIKE wildcards in a user-supplied substring
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// GetRace retrieves a race by ID. Returns nil, nil if not found.
func (db *DB) GetRace(ctx context.Context, id uuid.UUID) (*types.Race, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(raceColumns...)
	sb.From("races")
	sb.Where(sb.Equal("id", id))
	sql, args := sb.Build()

	race, err := scanRace(db.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get race %s: %w", id, err)
	}
	return race, nil
}

// UpsertRace stores a race keyed by name and date, updating the other facts of an
// existing entry. It assigns race.ID.
func (db *DB) UpsertRace(ctx context.Context, race *types.Race) error {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO races (name, race_type, miles, race_date, location)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name, race_date) DO UPDATE SET
		     race_type = EXCLUDED.race_type,
		     miles = EXCLUDED.miles,
		     location = EXCLUDED.location
		 RETURNING id`,
		race.Name, race.RaceType, race.Miles, nullDate(race.Date), race.Location,
	).Scan(&race.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert race %q: %w", race.Name, err)
	}
	return nil
}

func scanRace(row pgx.Row) (*types.Race, error) {
	var (
		race types.Race
		date *time.Time
	)
	if err := row.Scan(&race.ID, &race.Name, &race.RaceType, &race.Miles, &date, &race.Location); err != nil {
		return nil, err
	}
	if date != nil {
		race.Date = date.UTC()
	}
	return &race, nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
