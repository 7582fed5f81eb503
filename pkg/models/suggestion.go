package models

import (
	"time"
)

// SuggestionStatus tracks an alias suggestion through review
type SuggestionStatus string

const (
	// SuggestionStatusPending means the suggestion awaits human review
	SuggestionStatusPending SuggestionStatus = "pending"
	// SuggestionStatusApproved means a reviewer accepted the suggestion and an alias was written
	SuggestionStatusApproved SuggestionStatus = "approved"
	// SuggestionStatusRejected means a reviewer dismissed the suggestion
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// AliasSuggestion is a near-miss pairing queued for human review. Suggestions
// never influence resolution until approved, at which point they become
// aliases at full confidence.
type AliasSuggestion struct {
	ID            string           `json:"id" db:"id"`
	PlayerID      string           `json:"player_id" db:"player_id"`
	UnmatchedName string           `json:"unmatched_name" db:"unmatched_name"`
	SourceName    string           `json:"source_name" db:"source_name"`
	Similarity    float64          `json:"similarity" db:"similarity"`
	Status        SuggestionStatus `json:"status" db:"status"`
	ReviewedBy    *string          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt    *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// ReviewSuggestionRequest approves or rejects a pending suggestion
type ReviewSuggestionRequest struct {
	ReviewedBy string `json:"reviewed_by"`
	Reason     string `json:"reason"`
}

// SuggestionListResponse is the response for listing alias suggestions
type SuggestionListResponse struct {
	Items      []AliasSuggestion `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
}
