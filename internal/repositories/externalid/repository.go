package externalid

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/uruley/4HorsemenDFS/pkg/database"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

const mappingColumns = "id, player_id, source_name, external_id, external_name, confidence, created_at, updated_at"

// Repository handles external id mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new external id mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertResult contains the result of an upsert operation. When Conflicted
// is set the write was refused and Existing holds the untouched row.
type UpsertResult struct {
	Mapping    *models.ExternalIDMapping
	Inserted   bool
	Conflicted bool
	Existing   *models.ExternalIDMapping
}

// GetBySourceID retrieves a mapping by (source_name, external_id).
// Returns nil, nil when no mapping exists.
func (r *Repository) GetBySourceID(ctx context.Context, sourceName, externalID string) (*models.ExternalIDMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "externalid.Repository.GetBySourceID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(mappingColumns)
	sb.From("external_ids")
	sb.Where(
		sb.Equal("source_name", sourceName),
		sb.Equal("external_id", externalID),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var mapping models.ExternalIDMapping
	if err := r.db.GetContext(ctx, &mapping, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": sourceName, "external_id": externalID}).Error("Failed to get external id mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get external id mapping")
	}
	return &mapping, nil
}

// GetPlayerBySourceID resolves (source_name, external_id) straight to the
// canonical player in one query. Returns nil, nil on a crosswalk miss.
// Archived players still resolve; the mapping outlives archival.
func (r *Repository) GetPlayerBySourceID(ctx context.Context, sourceName, externalID string) (*models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "externalid.Repository.GetPlayerBySourceID")
	defer span.End()

	query := `
		SELECT p.id, p.canonical_name, p.first_name, p.last_name, p.position, p.team, p.fingerprint, p.created_at, p.updated_at, p.archived_at
		FROM external_ids m
		JOIN players p ON p.id = m.player_id
		WHERE m.source_name = $1 AND m.external_id = $2
	`

	var player models.CanonicalPlayer
	if err := r.db.GetContext(ctx, &player, query, sourceName, externalID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": sourceName, "external_id": externalID}).Error("Failed to resolve player by external id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve player by external id")
	}
	return &player, nil
}

// ListByPlayer returns every mapping pointing at a player, newest first.
func (r *Repository) ListByPlayer(ctx context.Context, playerID string) ([]models.ExternalIDMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "externalid.Repository.ListByPlayer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(mappingColumns)
	sb.From("external_ids")
	sb.Where(sb.Equal("player_id", playerID))
	sb.OrderBy("source_name ASC", "updated_at DESC")

	query, args := sb.Build()
	var mappings []models.ExternalIDMapping
	if err := r.db.SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": playerID}).Error("Failed to list external id mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list external id mappings")
	}
	return mappings, nil
}

// Upsert writes a (source_name, external_id) -> player mapping in one
// conditional statement. The update only fires when the key already points at
// the same player, or at a different player with strictly lower confidence;
// otherwise no row comes back and the existing mapping is reported as a
// conflict, untouched.
func (r *Repository) Upsert(ctx context.Context, req models.UpsertExternalIDRequest) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "externalid.Repository.Upsert")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"player_id":   req.PlayerID,
		"source_name": req.SourceName,
		"external_id": req.ExternalID,
	})

	now := time.Now().UTC()
	query := `
		INSERT INTO external_ids (id, player_id, source_name, external_id, external_name, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_name, external_id)
		DO UPDATE SET
			player_id = EXCLUDED.player_id,
			external_name = EXCLUDED.external_name,
			confidence = EXCLUDED.confidence,
			updated_at = EXCLUDED.updated_at
		WHERE external_ids.player_id = EXCLUDED.player_id
		   OR external_ids.confidence < EXCLUDED.confidence
		RETURNING ` + mappingColumns + `, (xmax = 0) AS inserted
	`

	var result struct {
		models.ExternalIDMapping
		Inserted bool `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &result, query,
		uuid.New().String(), req.PlayerID, req.SourceName, req.ExternalID, req.ExternalName, req.Confidence, now, now,
	)
	if err == nil {
		if result.Inserted {
			log.Info("Created external id mapping")
		}
		return &UpsertResult{Mapping: &result.ExternalIDMapping, Inserted: result.Inserted}, nil
	}
	if err.Error() != "sql: no rows in result set" {
		log.WithError(err).Error("Failed to upsert external id mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert external id mapping")
	}

	// The guarded update refused the write. Surface the winning row.
	existing, err := r.GetBySourceID(ctx, req.SourceName, req.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// The row vanished between the refused write and the read.
		log.Error("External id mapping disappeared during conflict check")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert external id mapping")
	}

	log.WithFields(map[string]any{
		"existing_player_id":  existing.PlayerID,
		"existing_confidence": existing.Confidence,
	}).Warn("Refused external id write for lower-confidence player change")
	return &UpsertResult{Conflicted: true, Existing: existing}, nil
}

// Delete removes a mapping by id, scoped to a player.
func (r *Repository) Delete(ctx context.Context, playerID, mappingID string) error {
	ctx, span := tracing.StartSpan(ctx, "externalid.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("external_ids")
	sb.Where(
		sb.Equal("id", mappingID),
		sb.Equal("player_id", playerID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": mappingID, "player_id": playerID}).Error("Failed to delete external id mapping")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete external id mapping")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "external id mapping %s not found", mappingID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": mappingID}).Info("Deleted external id mapping")
	return nil
}
