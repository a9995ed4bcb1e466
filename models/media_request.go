package models

import "time"

// RequestStatus is the lifecycle state of a media request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusAvailable RequestStatus = "available"
	StatusRejected  RequestStatus = "rejected"
)

// IsTerminal reports whether no further lifecycle transition (other
// than deletion) is possible from this status.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusAvailable || s == StatusRejected
}

// MediaKind distinguishes the two requestable catalog types.
type MediaKind string

const (
	KindMovie MediaKind = "movie"
	KindTV    MediaKind = "tv"
)

// MediaRequest is a user's request for a catalog item. Display metadata
// is denormalized at creation time so the core never re-queries the
// catalog service to render a request.
type MediaRequest struct {
	ID          uint `json:"id" gorm:"primaryKey"`
	OwnerUserID uint `json:"owner_user_id" gorm:"index:idx_owner_catalog;not null"`
	Owner       User `json:"-" gorm:"foreignKey:OwnerUserID"`

	CatalogID string    `json:"catalog_id" gorm:"index:idx_owner_catalog;not null"`
	Kind      MediaKind `json:"kind" gorm:"index:idx_owner_catalog;not null"`
	Is4K      bool      `json:"is_4k"`

	// Display metadata captured from the catalog lookup at creation time.
	Title       string `json:"title"`
	PosterPath  string `json:"poster_path"`
	Overview    string `json:"overview"`
	ReleaseDate string `json:"release_date"`

	Status RequestStatus `json:"status" gorm:"index;not null;default:pending"`

	// ApprovedByUserID stays nil for auto-approved requests so manual
	// and automatic approvals remain distinguishable.
	ApprovedAt       *time.Time `json:"approved_at"`
	ApprovedByUserID *uint      `json:"approved_by_user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // doubles as the terminal timestamp for retention
}

// CatalogItem is the descriptor the catalog collaborator supplies when a
// request is submitted. The core treats everything but Kind and Is4K as
// opaque display data.
type CatalogItem struct {
	CatalogID   string    `json:"catalog_id"`
	Kind        MediaKind `json:"kind"`
	Is4K        bool      `json:"is_4k"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path"`
	Overview    string    `json:"overview"`
	ReleaseDate string    `json:"release_date"`
}
