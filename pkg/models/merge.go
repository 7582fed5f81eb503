package models

import (
	"time"
)

// MergeResult summarizes one merge of a duplicate player into a survivor.
// External id mappings are repointed wholesale; aliases the survivor already
// holds are skipped instead of duplicated.
type MergeResult struct {
	SurvivorID       string `json:"survivor_id"`
	DuplicateID      string `json:"duplicate_id"`
	MovedExternalIDs int    `json:"moved_external_ids"`
	MovedAliases     int    `json:"moved_aliases"`
	SkippedAliases   int    `json:"skipped_aliases"`
}

// MergeAuditLog records merge operations for audit trail. Merges repoint
// live mappings, so every one is attributable after the fact.
type MergeAuditLog struct {
	ID               string    `json:"id" db:"id"`
	SurvivorID       string    `json:"survivor_id" db:"survivor_id"`
	DuplicateID      string    `json:"duplicate_id" db:"duplicate_id"`
	Reason           string    `json:"reason" db:"reason"`
	MovedExternalIDs int       `json:"moved_external_ids" db:"moved_external_ids"`
	MovedAliases     int       `json:"moved_aliases" db:"moved_aliases"`
	PerformedBy      *string   `json:"performed_by,omitempty" db:"performed_by"`
	PerformedAt      time.Time `json:"performed_at" db:"performed_at"`
}
