package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/training-planner/internal/types"
)

// CreateArtifact stores a configuration artifact and assigns its ID and CreatedAt
func (db *DB) CreateArtifact(ctx context.Context, artifact types.Artifact) error {
	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", artifact.Kind(), err)
	}

	var (
		id        uuid.UUID
		createdAt time.Time
	)
	err = db.pool.QueryRow(ctx,
		`INSERT INTO artifacts (kind, name, body)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		artifact.Kind(), types.ArtifactName(artifact), body,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", artifact.Kind(), err)
	}

	types.SetIdentity(artifact, id, createdAt)
	return nil
}

// GetArtifact retrieves an artifact of the given kind. Returns nil, nil if not found.
func (db *DB) GetArtifact(ctx context.Context, kind types.ArtifactKind, id uuid.UUID) (types.Artifact, error) {
	var (
		body      []byte
		createdAt time.Time
	)
	err := db.pool.QueryRow(ctx,
		`SELECT body, created_at FROM artifacts WHERE kind = $1 AND id = $2`,
		kind, id,
	).Scan(&body, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	return decodeArtifact(kind, body, id, createdAt)
}

// GetArtifactByName retrieves the newest artifact of a kind with the given name.
// Returns nil, nil if not found.
func (db *DB) GetArtifactByName(ctx context.Context, kind types.ArtifactKind, name string) (types.Artifact, error) {
	var (
		id        uuid.UUID
		body      []byte
		createdAt time.Time
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, body, created_at FROM artifacts
		 WHERE kind = $1 AND name = $2
		 ORDER BY created_at DESC LIMIT 1`,
		kind, name,
	).Scan(&id, &body, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s %q: %w", kind, name, err)
	}
	return decodeArtifact(kind, body, id, createdAt)
}

// ListArtifacts retrieves artifacts of a kind, newest first
func (db *DB) ListArtifacts(ctx context.Context, kind types.ArtifactKind, limit int) ([]types.Artifact, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, body, created_at FROM artifacts
		 WHERE kind = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s artifacts: %w", kind, err)
	}
	defer rows.Close()

	artifacts := []types.Artifact{}
	for rows.Next() {
		var (
			id        uuid.UUID
			body      []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		artifact, err := decodeArtifact(kind, body, id, createdAt)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list %s artifacts: %w", kind, err)
	}
	return artifacts, nil
}

func decodeArtifact(kind types.ArtifactKind, body []byte, id uuid.UUID, createdAt time.Time) (types.Artifact, error) {
	artifact := types.NewArtifact(kind)
	if artifact == nil {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	if err := json.Unmarshal(body, artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}
	types.SetIdentity(artifact, id, createdAt)
	return artifact, nil
}
