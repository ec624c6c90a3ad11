// Package events publishes plan lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/training-planner/internal/types"
)

// TypePlanGenerated is the event type of a newly persisted plan
const TypePlanGenerated = "plan.generated"

// PlanGenerated announces a plan that passed validation and was stored
type PlanGenerated struct {
	Type              string             `json:"type"`
	PlanID            uuid.UUID          `json:"plan_id"`
	AthleteID         uuid.UUID          `json:"athlete_id"`
	RaceID            uuid.UUID          `json:"race_id"`
	Name              string             `json:"name"`
	GoalTime          string             `json:"goal_time"`
	StartDate         string             `json:"start_date"`
	TotalWeeks        int                `json:"total_weeks"`
	Artifacts         types.ArtifactRefs `json:"artifacts"`
	PromptFingerprint string             `json:"prompt_fingerprint"`
	Timestamp         time.Time          `json:"timestamp"`
}

// NewPlanGenerated builds the event for a stored plan
func NewPlanGenerated(plan *types.TrainingPlan) *PlanGenerated {
	return &PlanGenerated{
		Type:              TypePlanGenerated,
		PlanID:            plan.ID,
		AthleteID:         plan.AthleteID,
		RaceID:            plan.RaceID,
		Name:              plan.Name,
		GoalTime:          plan.GoalTime,
		StartDate:         plan.StartDate.Format("2006-01-02"),
		TotalWeeks:        plan.TotalWeeks,
		Artifacts:         plan.Artifacts,
		PromptFingerprint: plan.PromptFingerprint,
	}
}

// Publisher sends plan events
type Publisher interface {
	PublishPlanGenerated(ctx context.Context, evt *PlanGenerated) error
	Close() error
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

// PublishPlanGenerated implements Publisher
func (NopPublisher) PublishPlanGenerated(context.Context, *PlanGenerated) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
