package alias

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

const aliasColumns = "id, player_id, alias_name, source_name, confidence, created_at, updated_at"

// Repository handles alias persistence. Alias names arrive already
// normalized; the crosswalk store normalizes before calling down.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alias repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertResult contains the result of an upsert operation
type UpsertResult struct {
	Alias    *models.Alias
	Inserted bool
}

type hitRow struct {
	Confidence    float64    `db:"confidence"`
	ID            string     `db:"id"`
	CanonicalName string     `db:"canonical_name"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Position      string     `db:"position"`
	Team          string     `db:"team"`
	Fingerprint   string     `db:"fingerprint"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	ArchivedAt    *time.Time `db:"archived_at"`
}

// FindHits returns every player holding the alias for the source, ordered
// confidence desc. Archived players are out of the matchable pool and are
// excluded here. Several different players can legitimately hold the same
// alias; the caller disambiguates among them.
func (r *Repository) FindHits(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.FindHits")
	defer span.End()

	query := `
		SELECT a.confidence, p.id, p.canonical_name, p.first_name, p.last_name, p.position, p.team, p.fingerprint, p.created_at, p.updated_at, p.archived_at
		FROM aliases a
		JOIN players p ON p.id = a.player_id
		WHERE a.source_name = $1 AND a.alias_name = $2 AND p.archived_at IS NULL
		ORDER BY a.confidence DESC, p.id ASC
	`

	var rows []hitRow
	if err := r.db.SelectContext(ctx, &rows, query, sourceName, normalizedName); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_name": sourceName, "alias_name": normalizedName}).Error("Failed to find alias hits")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find alias hits")
	}

	hits := make([]models.AliasHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, models.AliasHit{
			Player: models.CanonicalPlayer{
				ID:            row.ID,
				CanonicalName: row.CanonicalName,
				FirstName:     row.FirstName,
				LastName:      row.LastName,
				Position:      row.Position,
				Team:          row.Team,
				Fingerprint:   row.Fingerprint,
				CreatedAt:     row.CreatedAt,
				UpdatedAt:     row.UpdatedAt,
				ArchivedAt:    row.ArchivedAt,
			},
			Confidence: row.Confidence,
		})
	}
	return hits, nil
}

// ListByPlayer returns every alias recorded for a player.
func (r *Repository) ListByPlayer(ctx context.Context, playerID string) ([]models.Alias, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.ListByPlayer")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(aliasColumns)
	sb.From("aliases")
	sb.Where(sb.Equal("player_id", playerID))
	sb.OrderBy("source_name ASC", "confidence DESC", "alias_name ASC")

	query, args := sb.Build()
	var aliases []models.Alias
	if err := r.db.SelectContext(ctx, &aliases, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": playerID}).Error("Failed to list aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list aliases")
	}
	return aliases, nil
}

// Upsert writes an alias row. Re-adding an identical (player, alias, source)
// triple is a no-op apart from confidence, which only ratchets upward.
func (r *Repository) Upsert(ctx context.Context, req models.CreateAliasRequest) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO aliases (id, player_id, alias_name, source_name, confidence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (player_id, alias_name, source_name)
		DO UPDATE SET
			confidence = GREATEST(aliases.confidence, EXCLUDED.confidence),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + aliasColumns + `, (xmax = 0) AS inserted
	`

	var result struct {
		models.Alias
		Inserted bool `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &result, query,
		uuid.New().String(), req.PlayerID, req.AliasName, req.SourceName, req.Confidence, now, now,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": req.PlayerID, "alias_name": req.AliasName, "source_name": req.SourceName}).Error("Failed to upsert alias")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert alias")
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"id": result.ID, "player_id": req.PlayerID, "alias_name": req.AliasName, "source_name": req.SourceName}).Info("Created alias")
	}
	return &UpsertResult{Alias: &result.Alias, Inserted: result.Inserted}, nil
}

// Delete removes an alias by id, scoped to a player.
func (r *Repository) Delete(ctx context.Context, playerID, aliasID string) error {
	ctx, span := tracing.StartSpan(ctx, "alias.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("aliases")
	sb.Where(
		sb.Equal("id", aliasID),
		sb.Equal("player_id", playerID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": aliasID, "player_id": playerID}).Error("Failed to delete alias")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete alias")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "alias %s not found", aliasID)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": aliasID}).Info("Deleted alias")
	return nil
}
