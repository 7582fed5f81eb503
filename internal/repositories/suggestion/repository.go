package suggestion

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

const suggestionColumns = "id, player_id, unmatched_name, source_name, similarity, status, reviewed_by, reviewed_at, created_at, updated_at"

// Repository handles alias suggestion persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new alias suggestion repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert records a suggestion. Re-suggesting the same pairing keeps one row
// and remembers the best similarity seen, but a reviewed suggestion is
// final: approved or rejected rows are never flipped back to pending.
func (r *Repository) Upsert(ctx context.Context, playerID, unmatchedName, sourceName string, similarity float64) (*models.AliasSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	query := `
		INSERT INTO suggestions (id, player_id, unmatched_name, source_name, similarity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $6)
		ON CONFLICT (player_id, unmatched_name, source_name)
		DO UPDATE SET
			similarity = GREATEST(suggestions.similarity, EXCLUDED.similarity),
			updated_at = EXCLUDED.updated_at
		WHERE suggestions.status = 'pending'
		RETURNING ` + suggestionColumns + `
	`

	var suggestion models.AliasSuggestion
	err := r.db.GetContext(ctx, &suggestion, query,
		uuid.New().String(), playerID, unmatchedName, sourceName, similarity, now,
	)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			// Already reviewed; leave the decision alone.
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": playerID, "unmatched_name": unmatchedName, "source_name": sourceName}).Error("Failed to upsert suggestion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert suggestion")
	}
	return &suggestion, nil
}

// Get retrieves a suggestion by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.AliasSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(suggestionColumns)
	sb.From("suggestions")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var suggestion models.AliasSuggestion
	if err := r.db.GetContext(ctx, &suggestion, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "suggestion %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get suggestion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get suggestion")
	}
	return &suggestion, nil
}

// List retrieves suggestions filtered by status and optionally source,
// best similarity first.
func (r *Repository) List(ctx context.Context, status models.SuggestionStatus, sourceName *string, page, pageSize int) (*models.SuggestionListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("suggestions")
	countWhere := []string{countSb.Equal("status", string(status))}
	if sourceName != nil && *sourceName != "" {
		countWhere = append(countWhere, countSb.Equal("source_name", *sourceName))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status}).Error("Failed to count suggestions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count suggestions")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(suggestionColumns)
	sb.From("suggestions")
	where := []string{sb.Equal("status", string(status))}
	if sourceName != nil && *sourceName != "" {
		where = append(where, sb.Equal("source_name", *sourceName))
	}
	sb.Where(where...)
	sb.OrderBy("similarity DESC", "created_at ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var suggestions []models.AliasSuggestion
	if err := r.db.SelectContext(ctx, &suggestions, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"status": status}).Error("Failed to list suggestions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list suggestions")
	}

	return &models.SuggestionListResponse{
		Items:      suggestions,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// Review finalizes a pending suggestion. Reviewing a suggestion twice is a
// conflict, not an overwrite.
func (r *Repository) Review(ctx context.Context, id string, status models.SuggestionStatus, reviewedBy string) (*models.AliasSuggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "suggestion.Repository.Review")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE suggestions
		SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + suggestionColumns + `
	`

	var reviewedByArg *string
	if reviewedBy != "" {
		reviewedByArg = &reviewedBy
	}

	var suggestion models.AliasSuggestion
	err := r.db.GetContext(ctx, &suggestion, query, id, string(status), reviewedByArg, now)
	if err == nil {
		r.logger.WithContext(ctx).WithFields(map[string]any{"id": id, "status": status}).Info("Reviewed suggestion")
		return &suggestion, nil
	}
	if err.Error() != "sql: no rows in result set" {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id, "status": status}).Error("Failed to review suggestion")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to review suggestion")
	}

	// Either missing or already reviewed; Get distinguishes the two.
	existing, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, httperror.NewHTTPErrorf(http.StatusConflict, "suggestion %s was already %s", id, existing.Status)
}
