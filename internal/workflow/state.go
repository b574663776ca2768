// internal/workflow/state.go
package workflow

import (
	stderrors "callcenter-workers/internal/common/errors"
	"callcenter-workers/internal/models"
)

// transitions is the full lifecycle table. A status absent from the map is
// terminal.
var transitions = map[models.ItemStatus][]models.ItemStatus{
	models.StatusPendingAssessment: {
		models.StatusAwaitingApproval,
		models.StatusAutoApproved,
	},
	models.StatusAwaitingApproval: {
		models.StatusExecuting,
		models.StatusAwaitingExecutionWindow,
		models.StatusClosedRejected,
	},
	models.StatusAutoApproved: {
		models.StatusExecuting,
	},
	models.StatusAwaitingExecutionWindow: {
		models.StatusExecuting,
	},
	models.StatusExecuting: {
		models.StatusCompleted,
		models.StatusFailed,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to models.ItemStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an INVALID_STATUS_TRANSITION error for an illegal
// step, nil otherwise.
func CheckTransition(from, to models.ItemStatus) error {
	if !CanTransition(from, to) {
		return stderrors.NewInvalidTransitionError(string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status models.ItemStatus) bool {
	return len(transitions[status]) == 0
}
