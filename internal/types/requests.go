package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GeneratePlanRequest is the body of a plan generation request
type GeneratePlanRequest struct {
	ArtifactRefs
	RaceID       uuid.UUID       `json:"race_id" validate:"required"`
	GoalTime     string          `json:"goal_time" validate:"required"`
	StartDate    string          `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PlanName     string          `json:"plan_name,omitempty" validate:"max=200"`
	Skeleton     *PlanSkeleton   `json:"skeleton,omitempty"`
	ExistingPlan json.RawMessage `json:"existing_plan,omitempty"`
	Notes        string          `json:"notes,omitempty" validate:"max=2000"`
}

// UpdatePlanStatusRequest changes the lifecycle status of a plan
type UpdatePlanStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft active completed archived"`
}

// Validate validates the GeneratePlanRequest using the validator.
func (r *GeneratePlanRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdatePlanStatusRequest using the validator.
func (r *UpdatePlanStatusRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ValidateArtifact validates the struct tags of a configuration artifact.
func ValidateArtifact(a Artifact) error {
	validate := validator.New()
	return validate.Struct(a)
}
