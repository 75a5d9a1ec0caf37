package lifecycle

import (
	"fmt"

	apperrors "github.com/aawaaz/ticket-server/internal/errors"
	"github.com/aawaaz/ticket-server/internal/models"
)

// Policy carries the product decisions that are configurable per deployment.
type Policy struct {
	// StrictResolved makes resolved terminal. When false an admin may move a
	// resolved ticket back to open or in_progress.
	StrictResolved bool
	// EditOnlyWhileOpen restricts owner edits to tickets still in open.
	EditOnlyWhileOpen bool
}

// DefaultPolicy is strict on both counts.
func DefaultPolicy() Policy {
	return Policy{StrictResolved: true, EditOnlyWhileOpen: true}
}

var forwardTransitions = map[models.Status][]models.Status{
	models.StatusOpen:       {models.StatusInProgress, models.StatusResolved},
	models.StatusInProgress: {models.StatusResolved},
	models.StatusResolved:   {},
}

var reopenTransitions = []models.Status{models.StatusOpen, models.StatusInProgress}

// CanTransition reports whether from -> to is a legal status change under p.
// Staying in the same status is not a transition and returns false.
func (p Policy) CanTransition(from, to models.Status) bool {
	if !from.IsValid() || !to.IsValid() || from == to {
		return false
	}
	for _, allowed := range forwardTransitions[from] {
		if allowed == to {
			return true
		}
	}
	if from == models.StatusResolved && !p.StrictResolved {
		for _, allowed := range reopenTransitions {
			if allowed == to {
				return true
			}
		}
	}
	return false
}

// CheckTransition is CanTransition returning a field-scoped ValidationError.
func (p Policy) CheckTransition(from, to models.Status) error {
	if !to.IsValid() {
		return apperrors.NewValidationError("status", fmt.Sprintf("invalid status %q", to))
	}
	if !p.CanTransition(from, to) {
		return apperrors.NewValidationError("status",
			fmt.Sprintf("cannot move a ticket from %s to %s", from, to))
	}
	return nil
}
