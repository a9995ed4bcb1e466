package services

import (
	"errors"
	"fmt"

	"github.com/camden-git/requestsysbackend/models"
)

var (
	// ErrForbidden indicates the acting user's effective policy does not
	// grant the capability needed for the attempted operation.
	ErrForbidden = errors.New("effective policy does not permit this action")

	// ErrQuotaExceeded indicates the user already has as many
	// outstanding (pending or approved) requests as their policy allows.
	ErrQuotaExceeded = errors.New("request quota exceeded")

	// ErrIllegalTransition indicates the attempted lifecycle transition
	// is not in the legal transition table, or a concurrent transition
	// already moved the request out of its expected state.
	ErrIllegalTransition = errors.New("illegal request state transition")

	// ErrRoleMissing indicates neither the user's assigned role nor a
	// default role could be loaded. This is a configuration fault;
	// callers should treat it as fatal rather than fail open.
	ErrRoleMissing = errors.New("user role missing and no default role configured")

	// ErrUnavailable indicates the store kept failing transiently after
	// the bounded number of retries.
	ErrUnavailable = errors.New("store temporarily unavailable")
)

// DuplicateRequestError is returned when the user already has an active
// (non-rejected) request for the same catalog item. It carries the
// existing request's identity so the caller can redirect to it instead
// of silently dropping the submission.
type DuplicateRequestError struct {
	ExistingID uint
	Status     models.RequestStatus
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("an active request for this item already exists (id=%d, status=%s)", e.ExistingID, e.Status)
}

// isPolicyDecision reports whether err is a deliberate admission or
// lifecycle decision rather than a transient store fault. Policy
// decisions are never retried.
func isPolicyDecision(err error) bool {
	var dup *DuplicateRequestError
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrRoleMissing) ||
		errors.As(err, &dup)
}
