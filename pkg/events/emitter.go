// Package events publishes resolution lifecycle events so downstream
// consumers (projection builders, lineup tooling) can react without polling.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/kafka"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes crosswalk events. A nil Emitter or one without a
// producer is disabled and every emit is a no-op, so callers never have to
// guard on whether Kafka is configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// Enabled reports whether events will actually be published.
func (e *Emitter) Enabled() bool {
	return e != nil && e.producer != nil
}

// EmitSlateResolved emits a summary event for a finished slate.
func (e *Emitter) EmitSlateResolved(ctx context.Context, sourceName string, summary models.ReportSummary) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSlateResolved")
	defer span.End()

	event := &SlateResolvedEvent{
		BaseEvent:  NewBaseEvent(EventTypeSlateResolved),
		SourceName: sourceName,
		Summary:    summary,
	}

	if err := e.producer.Publish(ctx, string(event.EventType), sourceName, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_name": sourceName,
		}).Error("Failed to emit slate resolved event")
		return err
	}
	return nil
}

// EmitAliasCreated emits an event for a reviewed alias write.
func (e *Emitter) EmitAliasCreated(ctx context.Context, alias *models.Alias) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitAliasCreated")
	defer span.End()

	event := &AliasCreatedEvent{
		BaseEvent:  NewBaseEvent(EventTypeAliasCreated),
		PlayerID:   alias.PlayerID,
		AliasName:  alias.AliasName,
		SourceName: alias.SourceName,
		Confidence: alias.Confidence,
	}

	if err := e.producer.Publish(ctx, string(event.EventType), alias.PlayerID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"player_id":  alias.PlayerID,
			"alias_name": alias.AliasName,
		}).Error("Failed to emit alias created event")
		return err
	}
	return nil
}

// EmitPlayerMerged emits an event for a completed merge.
func (e *Emitter) EmitPlayerMerged(ctx context.Context, result *models.MergeResult, reason string) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPlayerMerged")
	defer span.End()

	event := &PlayerMergedEvent{
		BaseEvent:        NewBaseEvent(EventTypePlayerMerged),
		SurvivorID:       result.SurvivorID,
		DuplicateID:      result.DuplicateID,
		MovedExternalIDs: result.MovedExternalIDs,
		MovedAliases:     result.MovedAliases,
		Reason:           reason,
	}

	if err := e.producer.Publish(ctx, string(event.EventType), result.SurvivorID, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"survivor_id":  result.SurvivorID,
			"duplicate_id": result.DuplicateID,
		}).Error("Failed to emit player merged event")
		return err
	}
	return nil
}

// EmitMappingConflict emits an event for a refused external id write.
func (e *Emitter) EmitMappingConflict(ctx context.Context, conflict *crosswalk.ConflictError) error {
	if !e.Enabled() {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMappingConflict")
	defer span.End()

	event := &MappingConflictEvent{
		BaseEvent:          NewBaseEvent(EventTypeMappingConflict),
		SourceName:         conflict.SourceName,
		ExternalID:         conflict.ExternalID,
		ExistingPlayerID:   conflict.ExistingPlayerID,
		AttemptedPlayerID:  conflict.AttemptedPlayerID,
		ExistingConfidence: conflict.ExistingConfidence,
		NewConfidence:      conflict.AttemptedConfidence,
	}

	key := conflict.SourceName + ":" + conflict.ExternalID
	if err := e.producer.Publish(ctx, string(event.EventType), key, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source_name": conflict.SourceName,
			"external_id": conflict.ExternalID,
		}).Error("Failed to emit mapping conflict event")
		return err
	}
	return nil
}
