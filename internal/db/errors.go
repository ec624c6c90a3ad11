package db

import (
	"fmt"

	"github.com/jonathan/training-planner/internal/types"
)

// InvalidTransitionError is returned when a plan status change is not allowed
type InvalidTransitionError struct {
	From types.PlanStatus
	To   types.PlanStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move plan from %s to %s", e.From, e.To)
}
