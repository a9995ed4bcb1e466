package services

import (
	"fmt"
	"time"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
)

// legalTransitions maps each stored status to the states it may move to
// and the permission an actor needs to perform the move. Deletion is
// handled separately; there is no path back to pending.
var legalTransitions = map[models.RequestStatus]map[models.RequestStatus]string{
	models.StatusPending: {
		models.StatusApproved: permissions.AdminApproveRequests,
		models.StatusRejected: permissions.AdminApproveRequests,
	},
	models.StatusApproved: {
		models.StatusAvailable: permissions.AdminMarkAvailable,
	},
}

// LifecycleService is the only mutator of existing requests. It
// re-resolves the acting user's policy on every call and guards each
// transition against concurrent writers.
type LifecycleService struct {
	Policy   *PolicyService
	Requests repository.RequestRepository
	Notifier Notifier
}

func NewLifecycleService(policy *PolicyService, requests repository.RequestRepository, notifier Notifier) *LifecycleService {
	return &LifecycleService{Policy: policy, Requests: requests, Notifier: notifier}
}

// Transition moves a request to the target status on behalf of the
// actor. Transitions outside the legal table fail with
// ErrIllegalTransition; listed transitions fail with ErrForbidden when
// the actor's policy lacks the required permission. A transition that
// loses a race against a concurrent one also fails with
// ErrIllegalTransition rather than overwriting it.
func (s *LifecycleService) Transition(requestID, actorID uint, target models.RequestStatus) (*models.MediaRequest, error) {
	request, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	required, ok := legalTransitions[request.Status][target]
	if !ok {
		return nil, fmt.Errorf("cannot move request %d from %s to %s: %w",
			requestID, request.Status, target, ErrIllegalTransition)
	}

	policy, err := s.Policy.ResolvePolicy(actorID)
	if err != nil {
		return nil, err
	}
	if !policy.Has(required) {
		return nil, fmt.Errorf("transition to %s requires %s: %w", target, required, ErrForbidden)
	}

	var approvedBy *uint
	if target == models.StatusApproved {
		actor := actorID
		approvedBy = &actor
	}

	changed, err := s.updateWithRetry(requestID, request.Status, target, approvedBy)
	if err != nil {
		return nil, err
	}
	if !changed {
		// a concurrent transition won the race
		return nil, fmt.Errorf("request %d is no longer %s: %w", requestID, request.Status, ErrIllegalTransition)
	}

	updated, err := s.Requests.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		switch target {
		case models.StatusApproved:
			s.Notifier.NotifyRequestEvent(EventRequestApproved, updated)
		case models.StatusRejected:
			s.Notifier.NotifyRequestEvent(EventRequestRejected, updated)
		case models.StatusAvailable:
			s.Notifier.NotifyRequestEvent(EventRequestAvailable, updated)
		}
	}
	return updated, nil
}

func (s *LifecycleService) updateWithRetry(id uint, from, to models.RequestStatus, approvedBy *uint) (bool, error) {
	var changed bool
	var lastErr error
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		changed, lastErr = s.Requests.UpdateStatus(id, from, to, approvedBy, time.Now())
		if lastErr == nil {
			return changed, nil
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return false, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Delete removes a request on behalf of the actor, who must either own
// it or hold admin.delete_requests.
func (s *LifecycleService) Delete(requestID, actorID uint) error {
	request, err := s.Requests.GetByID(requestID)
	if err != nil {
		return err
	}

	if request.OwnerUserID != actorID {
		policy, err := s.Policy.ResolvePolicy(actorID)
		if err != nil {
			return err
		}
		if !policy.Has(permissions.AdminDeleteRequests) {
			return fmt.Errorf("deleting another user's request requires %s: %w",
				permissions.AdminDeleteRequests, ErrForbidden)
		}
	}

	if err := s.Requests.Delete(requestID); err != nil {
		return err
	}

	if s.Notifier != nil {
		s.Notifier.NotifyRequestEvent(EventRequestDeleted, request)
	}
	return nil
}
