package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// EventType defines the type of event
type EventType string

const (
	// EventTypeSlateResolved is emitted after a slate finishes resolution
	EventTypeSlateResolved EventType = "slate.resolved"
	// EventTypeAliasCreated is emitted when a reviewer adds or approves an alias
	EventTypeAliasCreated EventType = "alias.created"
	// EventTypePlayerMerged is emitted when two player records are merged
	EventTypePlayerMerged EventType = "player.merged"
	// EventTypeMappingConflict is emitted when an external id write is refused
	EventTypeMappingConflict EventType = "mapping.conflict"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// SlateResolvedEvent summarizes one slate resolution run. Consumers that
// project lineups or salaries key off the match rate to decide whether the
// slate is usable.
type SlateResolvedEvent struct {
	BaseEvent
	SourceName string               `json:"source_name"`
	Summary    models.ReportSummary `json:"summary"`
}

// AliasCreatedEvent is emitted when an alias enters the crosswalk through
// review (manual create or suggestion approval).
type AliasCreatedEvent struct {
	BaseEvent
	PlayerID   string  `json:"player_id"`
	AliasName  string  `json:"alias_name"`
	SourceName string  `json:"source_name"`
	Confidence float64 `json:"confidence"`
}

// PlayerMergedEvent is emitted after a duplicate player is folded into its
// survivor.
type PlayerMergedEvent struct {
	BaseEvent
	SurvivorID       string `json:"survivor_id"`
	DuplicateID      string `json:"duplicate_id"`
	MovedExternalIDs int    `json:"moved_external_ids"`
	MovedAliases     int    `json:"moved_aliases"`
	Reason           string `json:"reason,omitempty"`
}

// MappingConflictEvent is emitted when an external id write is refused
// because the key already maps to a different player.
type MappingConflictEvent struct {
	BaseEvent
	SourceName         string  `json:"source_name"`
	ExternalID         string  `json:"external_id"`
	ExistingPlayerID   string  `json:"existing_player_id"`
	AttemptedPlayerID  string  `json:"attempted_player_id"`
	ExistingConfidence float64 `json:"existing_confidence"`
	NewConfidence      float64 `json:"new_confidence"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
