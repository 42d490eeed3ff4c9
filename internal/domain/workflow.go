package domain

import (
	"strings"

	"github.com/ayo6706/fcy-position/internal/apperrors"
)

// workflowTransitions is the maker-checker state machine shared by balance
// entries and transactions. Admin overrides are not transitions.
var workflowTransitions = map[string]map[string]struct{}{
	StatusDraft: {
		StatusSubmitted: {},
	},
	StatusSubmitted: {
		StatusAuthorized: {},
		StatusRejected:   {},
	},
	StatusRejected: {
		StatusDraft: {},
	},
	StatusAuthorized: {},
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// CanTransition reports whether current -> next is an allowed workflow move.
func CanTransition(current, next string) bool {
	nextStates, ok := workflowTransitions[normalizeStatus(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeStatus(next)]
	return ok
}

// CheckTransition returns a *apperrors.TransitionError when current -> next is not allowed.
func CheckTransition(entity, id, current, next string) error {
	if CanTransition(current, next) {
		return nil
	}
	return &apperrors.TransitionError{Entity: entity, ID: id, From: current, To: next}
}

// Editable reports whether a record in status can be changed without override privilege.
func Editable(status string) bool {
	s := normalizeStatus(status)
	return s == StatusDraft || s == StatusSubmitted
}

// CanAuthorize reports whether role carries authorizer privilege.
func CanAuthorize(role string) bool {
	r := normalizeStatus(role)
	return r == RoleAuthorizer || r == RoleAdmin
}

// CanOverride reports whether role may edit or delete authorized records.
func CanOverride(role string) bool {
	return normalizeStatus(role) == RoleAdmin
}

// InitialStatus is the status of a newly created record. Actors with
// authorizer privilege skip ahead to authorized.
func InitialStatus(role string) string {
	if CanAuthorize(role) {
		return StatusAuthorized
	}
	return StatusDraft
}
