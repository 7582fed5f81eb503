package models

import (
	"time"
)

// CanonicalPlayer is the single source-of-truth identity for one real athlete,
// independent of any data source. Rows are never physically deleted; archival
// is soft because external id mappings keep referencing the player.
type CanonicalPlayer struct {
	ID            string     `json:"id" db:"id"`
	CanonicalName string     `json:"canonical_name" db:"canonical_name"`
	FirstName     string     `json:"first_name" db:"first_name"`
	LastName      string     `json:"last_name" db:"last_name"`
	Position      string     `json:"position" db:"position"`
	Team          string     `json:"team" db:"team"`
	Fingerprint   string     `json:"fingerprint" db:"fingerprint"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// IsArchived returns true if the player has been soft-archived
func (p *CanonicalPlayer) IsArchived() bool {
	return p.ArchivedAt != nil
}

// CreatePlayerRequest is the request for creating a canonical player.
// Creation is idempotent per (name, position, team) fingerprint.
type CreatePlayerRequest struct {
	CanonicalName string `json:"canonical_name" validate:"required"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Position      string `json:"position"`
	Team          string `json:"team"`
}

// UpdatePlayerRequest updates current-observation attributes. The canonical
// name is part of the player's identity and changes only through review.
type UpdatePlayerRequest struct {
	CanonicalName *string `json:"canonical_name,omitempty"`
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Position      *string `json:"position,omitempty"`
	Team          *string `json:"team,omitempty"`
}

// MergePlayersRequest merges a duplicate player into a surviving one.
// Merging is always explicit and logged; the engine never merges on its own.
type MergePlayersRequest struct {
	DuplicateID string `json:"duplicate_id" validate:"required"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

// PlayerListResponse is the response for listing canonical players
type PlayerListResponse struct {
	Items      []CanonicalPlayer `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
