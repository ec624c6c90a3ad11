package types

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the state of one generation attempt
type RunStatus string

// Generation run statuses
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun is the audit record of one pass through the generation pipeline
type GenerationRun struct {
	ID                uuid.UUID    `json:"id"`
	AthleteID         uuid.UUID    `json:"athlete_id"`
	RaceID            uuid.UUID    `json:"race_id"`
	Artifacts         ArtifactRefs `json:"artifacts"`
	PromptFingerprint string       `json:"prompt_fingerprint,omitempty"`
	Status            RunStatus    `json:"status"`
	FailedStage       string       `json:"failed_stage,omitempty"`
	Error             string       `json:"error,omitempty"`
	PlanID            *uuid.UUID   `json:"plan_id,omitempty"`
	DryRun            bool         `json:"dry_run"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        *time.Time   `json:"finished_at,omitempty"`
}
