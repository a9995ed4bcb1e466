package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
)

// Notifier receives request lifecycle events after they are committed.
// The realtime hub implements it; a nil notifier disables broadcasting.
type Notifier interface {
	NotifyRequestEvent(eventType string, request *models.MediaRequest)
}

// Event types emitted to the notifier.
const (
	EventRequestCreated   = "request.created"
	EventRequestApproved  = "request.approved"
	EventRequestRejected  = "request.rejected"
	EventRequestAvailable = "request.available"
	EventRequestDeleted   = "request.deleted"
)

const maxStoreAttempts = 3

// AdmissionService decides whether a newly submitted request is
// admitted, auto-approved or rejected. The capability, duplicate and
// quota checks plus the insert run under a per-user lock and a single
// store transaction, so concurrent submissions cannot slip past a stale
// quota count or duplicate check.
type AdmissionService struct {
	Policy   *PolicyService
	Requests repository.RequestRepository
	Notifier Notifier

	mu        sync.Mutex
	userLocks map[uint]*sync.Mutex
}

func NewAdmissionService(policy *PolicyService, requests repository.RequestRepository, notifier Notifier) *AdmissionService {
	return &AdmissionService{
		Policy:    policy,
		Requests:  requests,
		Notifier:  notifier,
		userLocks: make(map[uint]*sync.Mutex),
	}
}

// userLock returns the advisory admission lock for a user.
func (s *AdmissionService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// CreateRequest admits a new media request for the user, or fails with
// ErrForbidden, *DuplicateRequestError, ErrQuotaExceeded or
// ErrUnavailable. When the user's policy auto-approves the media kind,
// the request is stored already approved with a nil approver; no
// observer ever sees it pending.
func (s *AdmissionService) CreateRequest(userID uint, item models.CatalogItem) (*models.MediaRequest, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	policy, err := s.Policy.ResolvePolicy(userID)
	if err != nil {
		return nil, err
	}

	if err := checkCapability(&policy, item); err != nil {
		return nil, err
	}

	var request *models.MediaRequest
	var lastErr error
	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		request, lastErr = s.admit(userID, &policy, item)
		if lastErr == nil || isPolicyDecision(lastErr) {
			break
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	if lastErr != nil {
		if isPolicyDecision(lastErr) {
			return nil, lastErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}

	if s.Notifier != nil {
		if request.Status == models.StatusApproved {
			s.Notifier.NotifyRequestEvent(EventRequestApproved, request)
		} else {
			s.Notifier.NotifyRequestEvent(EventRequestCreated, request)
		}
	}
	return request, nil
}

// admit runs the duplicate check, quota check and insert as one store
// transaction.
func (s *AdmissionService) admit(userID uint, policy *permissions.EffectivePolicy, item models.CatalogItem) (*models.MediaRequest, error) {
	var created *models.MediaRequest
	err := s.Requests.Transaction(func(tx repository.RequestRepository) error {
		existing, err := tx.FindActive(userID, item.CatalogID, item.Kind)
		if err != nil {
			return err
		}
		if existing != nil {
			return &DuplicateRequestError{ExistingID: existing.ID, Status: existing.Status}
		}

		if policy.MaxRequests != nil {
			outstanding, err := tx.CountOutstanding(userID)
			if err != nil {
				return err
			}
			if outstanding >= int64(*policy.MaxRequests) {
				return ErrQuotaExceeded
			}
		}

		request := &models.MediaRequest{
			OwnerUserID: userID,
			CatalogID:   item.CatalogID,
			Kind:        item.Kind,
			Is4K:        item.Is4K,
			Title:       item.Title,
			PosterPath:  item.PosterPath,
			Overview:    item.Overview,
			ReleaseDate: item.ReleaseDate,
			Status:      models.StatusPending,
		}
		if policy.AutoApproves(item.Kind) {
			now := time.Now()
			request.Status = models.StatusApproved
			request.ApprovedAt = &now
			// ApprovedByUserID stays nil: automatic approval
		}
		if err := tx.Create(request); err != nil {
			return err
		}
		created = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func checkCapability(policy *permissions.EffectivePolicy, item models.CatalogItem) error {
	switch item.Kind {
	case models.KindMovie:
		if !policy.Has(permissions.RequestMovies) {
			return fmt.Errorf("requesting movies: %w", ErrForbidden)
		}
	case models.KindTV:
		if !policy.Has(permissions.RequestTV) {
			return fmt.Errorf("requesting series: %w", ErrForbidden)
		}
	default:
		return fmt.Errorf("unknown media kind %q: %w", item.Kind, ErrForbidden)
	}
	if item.Is4K && !policy.Has(permissions.Request4K) {
		return fmt.Errorf("requesting 4k content: %w", ErrForbidden)
	}
	return nil
}
