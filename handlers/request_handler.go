package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
	"github.com/go-chi/chi/v5"
)

type RequestHandler struct {
	Admission   *services.AdmissionService
	Lifecycle   *services.LifecycleService
	Policy      *services.PolicyService
	RequestRepo repository.RequestRepository
}

func NewRequestHandler(admission *services.AdmissionService, lifecycle *services.LifecycleService, policy *services.PolicyService, requestRepo repository.RequestRepository) *RequestHandler {
	return &RequestHandler{Admission: admission, Lifecycle: lifecycle, Policy: policy, RequestRepo: requestRepo}
}

// RequestResponseDTO is the API shape of a media request. OwnerUserID is
// zeroed for viewers without the see-requester-identity permission.
type RequestResponseDTO struct {
	ID          uint                 `json:"id"`
	OwnerUserID uint                 `json:"owner_user_id,omitempty"`
	CatalogID   string               `json:"catalog_id"`
	Kind        models.MediaKind     `json:"kind"`
	Is4K        bool                 `json:"is_4k"`
	Title       string               `json:"title"`
	PosterPath  string               `json:"poster_path,omitempty"`
	Overview    string               `json:"overview,omitempty"`
	ReleaseDate string               `json:"release_date,omitempty"`
	Status      models.RequestStatus `json:"status"`
	ApprovedAt  *string              `json:"approved_at,omitempty"`
	ApprovedBy  *uint                `json:"approved_by_user_id,omitempty"`
	CreatedAt   string               `json:"created_at"`
}

func toRequestResponseDTO(request *models.MediaRequest, includeOwner bool) RequestResponseDTO {
	dto := RequestResponseDTO{
		ID:          request.ID,
		CatalogID:   request.CatalogID,
		Kind:        request.Kind,
		Is4K:        request.Is4K,
		Title:       request.Title,
		PosterPath:  request.PosterPath,
		Overview:    request.Overview,
		ReleaseDate: request.ReleaseDate,
		Status:      request.Status,
		ApprovedBy:  request.ApprovedByUserID,
		CreatedAt:   request.CreatedAt.Format(http.TimeFormat),
	}
	if includeOwner {
		dto.OwnerUserID = request.OwnerUserID
	}
	if request.ApprovedAt != nil {
		formatted := request.ApprovedAt.Format(http.TimeFormat)
		dto.ApprovedAt = &formatted
	}
	return dto
}

type CreateRequestPayload struct {
	CatalogID   string           `json:"catalog_id"`
	Kind        models.MediaKind `json:"kind"`
	Is4K        bool             `json:"is_4k"`
	Title       string           `json:"title"`
	PosterPath  string           `json:"poster_path"`
	Overview    string           `json:"overview"`
	ReleaseDate string           `json:"release_date"`
}

// CreateRequest submits a new media request for the authenticated user.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	var payload CreateRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	if payload.CatalogID == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "catalog_id is required")
		return
	}
	if payload.Kind != models.KindMovie && payload.Kind != models.KindTV {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "kind must be 'movie' or 'tv'")
		return
	}

	request, err := h.Admission.CreateRequest(user.ID, models.CatalogItem{
		CatalogID:   payload.CatalogID,
		Kind:        payload.Kind,
		Is4K:        payload.Is4K,
		Title:       payload.Title,
		PosterPath:  payload.PosterPath,
		Overview:    payload.Overview,
		ReleaseDate: payload.ReleaseDate,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toRequestResponseDTO(request, true))
}

// ListRequests lists requests visible to the authenticated user. Users
// without request.view_others only see their own; requester identity is
// withheld without request.see_requester_identity.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	policy, err := h.Policy.ResolveFor(user)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	filter := repository.RequestFilter{}
	query := r.URL.Query()

	if raw := query.Get("owner_id"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_filter", "Invalid owner_id filter")
			return
		}
		owner := uint(parsed)
		filter.OwnerUserID = &owner
	}
	if raw := query.Get("status"); raw != "" {
		status := models.RequestStatus(raw)
		filter.Status = &status
	}
	if raw := query.Get("kind"); raw != "" {
		kind := models.MediaKind(raw)
		filter.Kind = &kind
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Offset = parsed
		}
	}

	if !policy.Has(permissions.RequestViewOthers) {
		// scope the listing to the caller's own requests
		owner := user.ID
		filter.OwnerUserID = &owner
	}

	requests, err := h.RequestRepo.List(filter)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	includeOwner := policy.Has(permissions.RequestSeeRequesterIdentity)
	dtos := make([]RequestResponseDTO, len(requests))
	for i := range requests {
		// users always see their own identity on their own requests
		dtos[i] = toRequestResponseDTO(&requests[i], includeOwner || requests[i].OwnerUserID == user.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dtos)
}

// GetRequest returns a single request, subject to the same visibility
// rules as ListRequests.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	requestID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	request, err := h.RequestRepo.GetByID(requestID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	policy, err := h.Policy.ResolveFor(user)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if request.OwnerUserID != user.ID && !policy.Has(permissions.RequestViewOthers) {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "Requires permission 'request.view_others'")
		return
	}

	includeOwner := request.OwnerUserID == user.ID || policy.Has(permissions.RequestSeeRequesterIdentity)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRequestResponseDTO(request, includeOwner))
}

// ApproveRequest moves a pending request to approved.
func (h *RequestHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusApproved)
}

// RejectRequest moves a pending request to rejected.
func (h *RequestHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusRejected)
}

// MarkAvailable confirms an approved request has been fulfilled.
func (h *RequestHandler) MarkAvailable(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, models.StatusAvailable)
}

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, target models.RequestStatus) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	requestID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	request, err := h.Lifecycle.Transition(requestID, user.ID, target)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRequestResponseDTO(request, true))
}

// DeleteRequest removes a request; the owner may always delete their
// own, admins need admin.delete_requests for others'.
func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	requestID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	if err := h.Lifecycle.Delete(requestID, user.ID); err != nil {
		WriteServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseRequestID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "requestID")
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid request ID format")
		return 0, false
	}
	return uint(parsed), true
}
