package models

import (
	"time"
)

// ExternalIDMapping binds one provider identifier to a canonical player.
// A (source_name, external_id) pair maps to at most one player, so lookups
// through it are authoritative and skip name matching entirely.
type ExternalIDMapping struct {
	ID           string    `json:"id" db:"id"`
	PlayerID     string    `json:"player_id" db:"player_id"`
	SourceName   string    `json:"source_name" db:"source_name"`
	ExternalID   string    `json:"external_id" db:"external_id"`
	ExternalName string    `json:"external_name" db:"external_name"`
	Confidence   float64   `json:"confidence" db:"confidence"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UpsertExternalIDRequest registers a provider identifier for a player.
// Re-registering the same pair for the same player is a no-op; for a
// different player it is rejected as a conflict.
type UpsertExternalIDRequest struct {
	PlayerID     string  `json:"player_id" validate:"required"`
	SourceName   string  `json:"source_name" validate:"required"`
	ExternalID   string  `json:"external_id" validate:"required"`
	ExternalName string  `json:"external_name"`
	Confidence   float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// Alias records one observed spelling of a player's name. The alias text is
// stored in normalized form so lookups hit regardless of the raw formatting
// a provider used.
type Alias struct {
	ID         string    `json:"id" db:"id"`
	PlayerID   string    `json:"player_id" db:"player_id"`
	AliasName  string    `json:"alias_name" db:"alias_name"`
	SourceName string    `json:"source_name" db:"source_name"`
	Confidence float64   `json:"confidence" db:"confidence"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreateAliasRequest adds an alias spelling for a player
type CreateAliasRequest struct {
	PlayerID   string  `json:"player_id" validate:"required"`
	AliasName  string  `json:"alias_name" validate:"required"`
	SourceName string  `json:"source_name" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// AliasHit is one candidate produced by an alias lookup, carrying the
// recorded confidence so callers can rank multiple hits.
type AliasHit struct {
	Player     CanonicalPlayer `json:"player"`
	Confidence float64         `json:"confidence"`
}

// ExternalIDListResponse is the response for listing a player's mappings.
type ExternalIDListResponse struct {
	Items      []ExternalIDMapping `json:"items"`
	TotalCount int                 `json:"total_count"`
}

// AliasListResponse is the response for listing a player's aliases.
type AliasListResponse struct {
	Items      []Alias `json:"items"`
	TotalCount int     `json:"total_count"`
}
