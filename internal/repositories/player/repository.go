package player

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/uruley/4HorsemenDFS/pkg/database"
	"github.com/uruley/4HorsemenDFS/pkg/fingerprint"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
)

const playerColumns = "id, canonical_name, first_name, last_name, position, team, fingerprint, created_at, updated_at, archived_at"

// Repository handles canonical player persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new canonical player repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpsertResult contains the result of an upsert operation
type UpsertResult struct {
	Player *models.CanonicalPlayer
	IsNew  bool
}

// Create inserts a new canonical player. The fingerprint over
// (name, position, team) is unique; a second create for the same identity
// fails with a conflict instead of silently producing a duplicate row.
func (r *Repository) Create(ctx context.Context, req models.CreatePlayerRequest) (*models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	player := models.CanonicalPlayer{
		ID:            uuid.New().String(),
		CanonicalName: req.CanonicalName,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Position:      normalizers.NormalizePosition(req.Position),
		Team:          normalizers.NormalizeTeam(req.Team),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	player.Fingerprint = fingerprint.Player(player.CanonicalName, player.Position, player.Team)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("players")
	sb.Cols("id", "canonical_name", "first_name", "last_name", "position", "team", "fingerprint", "created_at", "updated_at")
	sb.Values(player.ID, player.CanonicalName, player.FirstName, player.LastName, player.Position, player.Team, player.Fingerprint, player.CreatedAt, player.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "player %q (%s, %s) already exists", player.CanonicalName, player.Position, player.Team)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_name": req.CanonicalName}).Error("Failed to create player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create player")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": player.ID, "canonical_name": player.CanonicalName}).Info("Created player")
	return &player, nil
}

// Upsert creates the player if its fingerprint is new and returns the
// existing row otherwise. Used by bootstrap seeding, which must be safe to
// re-run against a populated store.
func (r *Repository) Upsert(ctx context.Context, req models.CreatePlayerRequest) (*UpsertResult, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	position := normalizers.NormalizePosition(req.Position)
	team := normalizers.NormalizeTeam(req.Team)
	fp := fingerprint.Player(req.CanonicalName, position, team)

	query := `
		INSERT INTO players (id, canonical_name, first_name, last_name, position, team, fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fingerprint)
		DO UPDATE SET updated_at = EXCLUDED.updated_at
		RETURNING ` + playerColumns + `, (xmax = 0) AS inserted
	`

	var result struct {
		models.CanonicalPlayer
		Inserted bool `db:"inserted"`
	}
	err := r.db.GetContext(ctx, &result, query,
		uuid.New().String(), req.CanonicalName, req.FirstName, req.LastName, position, team, fp, now, now,
	)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"canonical_name": req.CanonicalName, "fingerprint": fp}).Error("Failed to upsert player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert player")
	}

	if result.Inserted {
		r.logger.WithContext(ctx).WithFields(map[string]any{"id": result.ID, "canonical_name": result.CanonicalName}).Info("Created player")
	}
	return &UpsertResult{Player: &result.CanonicalPlayer, IsNew: result.Inserted}, nil
}

// Get retrieves a player by ID. Archived players are returned; callers that
// only want the matchable pool use AllActive.
func (r *Repository) Get(ctx context.Context, id string) (*models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns)
	sb.From("players")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var player models.CanonicalPlayer
	if err := r.db.GetContext(ctx, &player, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "player %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to get player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get player")
	}
	return &player, nil
}

// List retrieves players with optional filtering and pagination. Search is a
// case-insensitive substring match on the canonical name.
func (r *Repository) List(ctx context.Context, search, team, position *string, includeArchived bool, page, pageSize int) (*models.PlayerListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	buildWhere := func(sb *sqlbuilder.SelectBuilder) []string {
		var where []string
		if !includeArchived {
			where = append(where, sb.IsNull("archived_at"))
		}
		if search != nil && *search != "" {
			where = append(where, sb.ILike("canonical_name", "%"+*search+"%"))
		}
		if team != nil && *team != "" {
			where = append(where, sb.Equal("team", normalizers.NormalizeTeam(*team)))
		}
		if position != nil && *position != "" {
			where = append(where, sb.Equal("position", normalizers.NormalizePosition(*position)))
		}
		return where
	}

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("players")
	if where := buildWhere(countSb); len(where) > 0 {
		countSb.Where(where...)
	}

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to count players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count players")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns)
	sb.From("players")
	if where := buildWhere(sb); len(where) > 0 {
		sb.Where(where...)
	}
	sb.OrderBy("canonical_name ASC", "id ASC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var players []models.CanonicalPlayer
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"page": page, "page_size": pageSize}).Error("Failed to list players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list players")
	}

	return &models.PlayerListResponse{
		Items:      players,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	}, nil
}

// AllActive returns every non-archived player. This is the candidate pool
// for full fuzzy scans, so it is deliberately unpaginated.
func (r *Repository) AllActive(ctx context.Context) ([]models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.AllActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns)
	sb.From("players")
	sb.Where(sb.IsNull("archived_at"))
	sb.OrderBy("canonical_name ASC", "id ASC")

	query, args := sb.Build()
	var players []models.CanonicalPlayer
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to load active players")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load players")
	}
	return players, nil
}

// FindByTeam returns non-archived players on the given team. The team value
// must already be in canonical form; callers fold provider variants first.
func (r *Repository) FindByTeam(ctx context.Context, team string) ([]models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.FindByTeam")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(playerColumns)
	sb.From("players")
	sb.Where(
		sb.Equal("team", team),
		sb.IsNull("archived_at"),
	)
	sb.OrderBy("canonical_name ASC", "id ASC")

	query, args := sb.Build()
	var players []models.CanonicalPlayer
	if err := r.db.SelectContext(ctx, &players, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"team": team}).Error("Failed to find players by team")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find players")
	}
	return players, nil
}

// Update applies a partial update. When the name, position or team changes
// the identity fingerprint is recomputed from the merged row.
func (r *Repository) Update(ctx context.Context, id string, req models.UpdatePlayerRequest) (*models.CanonicalPlayer, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Update")
	defer span.End()

	player, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CanonicalName != nil {
		player.CanonicalName = *req.CanonicalName
	}
	if req.FirstName != nil {
		player.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		player.LastName = *req.LastName
	}
	if req.Position != nil {
		player.Position = normalizers.NormalizePosition(*req.Position)
	}
	if req.Team != nil {
		player.Team = normalizers.NormalizeTeam(*req.Team)
	}
	player.Fingerprint = fingerprint.Player(player.CanonicalName, player.Position, player.Team)
	player.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("players")
	sb.Set(
		sb.Assign("canonical_name", player.CanonicalName),
		sb.Assign("first_name", player.FirstName),
		sb.Assign("last_name", player.LastName),
		sb.Assign("position", player.Position),
		sb.Assign("team", player.Team),
		sb.Assign("fingerprint", player.Fingerprint),
		sb.Assign("updated_at", player.UpdatedAt),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, httperror.NewHTTPErrorf(http.StatusConflict, "another player already has identity %q (%s, %s)", player.CanonicalName, player.Position, player.Team)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to update player")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update player")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Updated player")
	return player, nil
}

// Archive soft-archives a player. The row and every crosswalk mapping that
// references it survive; the player just leaves the matchable pool.
func (r *Repository) Archive(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Archive")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("players")
	sb.Set(
		sb.Assign("archived_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("archived_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("Failed to archive player")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive player")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "player %s not found or already archived", id)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Archived player")
	return nil
}

// Merge repoints every external id mapping and alias from the duplicate
// player onto the survivor, records the duplicate's canonical name as a
// survivor alias, archives the duplicate and writes an audit row, all in a
// single transaction. Aliases the survivor already holds are skipped; their
// confidence is raised if the duplicate knew the alias with more confidence.
func (r *Repository) Merge(ctx context.Context, survivorID, duplicateID, reason string, performedBy *string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.Merge")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"survivor_id":  survivorID,
		"duplicate_id": duplicateID,
	})

	if survivorID == duplicateID {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "cannot merge a player into itself")
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	var survivor models.CanonicalPlayer
	if err := tx.GetContext(ctx, &survivor, "SELECT "+playerColumns+" FROM players WHERE id = $1 FOR UPDATE", survivorID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "player %s not found", survivorID)
		}
		log.WithError(err).Error("Failed to lock survivor for merge")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}
	if survivor.IsArchived() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "player %s is archived and cannot survive a merge", survivorID)
	}

	var duplicate models.CanonicalPlayer
	if err := tx.GetContext(ctx, &duplicate, "SELECT "+playerColumns+" FROM players WHERE id = $1 FOR UPDATE", duplicateID); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "player %s not found", duplicateID)
		}
		log.WithError(err).Error("Failed to lock duplicate for merge")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}

	now := time.Now().UTC()

	// Aliases the survivor already holds cannot move without violating the
	// (player_id, alias_name, source_name) uniqueness. Fold their confidence
	// into the survivor's rows, then drop them from the duplicate.
	raiseQuery := `
		UPDATE aliases s
		SET confidence = GREATEST(s.confidence, d.confidence), updated_at = $3
		FROM aliases d
		WHERE s.player_id = $1 AND d.player_id = $2
		  AND s.alias_name = d.alias_name AND s.source_name = d.source_name
	`
	if _, err := tx.ExecContext(ctx, raiseQuery, survivorID, duplicateID, now); err != nil {
		log.WithError(err).Error("Failed to fold duplicate alias confidences into survivor")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}

	dropQuery := `
		DELETE FROM aliases d
		USING aliases s
		WHERE d.player_id = $2 AND s.player_id = $1
		  AND s.alias_name = d.alias_name AND s.source_name = d.source_name
	`
	dropResult, err := tx.ExecContext(ctx, dropQuery, survivorID, duplicateID)
	if err != nil {
		log.WithError(err).Error("Failed to drop colliding duplicate aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}
	skippedAliases, _ := dropResult.RowsAffected()

	moveAliasResult, err := tx.ExecContext(ctx, "UPDATE aliases SET player_id = $1, updated_at = $3 WHERE player_id = $2", survivorID, duplicateID, now)
	if err != nil {
		log.WithError(err).Error("Failed to move duplicate aliases")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}
	movedAliases, _ := moveAliasResult.RowsAffected()

	moveExternalResult, err := tx.ExecContext(ctx, "UPDATE external_ids SET player_id = $1, updated_at = $3 WHERE player_id = $2", survivorID, duplicateID, now)
	if err != nil {
		log.WithError(err).Error("Failed to move duplicate external ids")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}
	movedExternalIDs, _ := moveExternalResult.RowsAffected()

	// The duplicate's canonical name keeps resolving to the survivor.
	duplicateNormalized := normalizers.NormalizeName(duplicate.CanonicalName)
	if duplicateNormalized != "" {
		aliasQuery := `
			INSERT INTO aliases (id, player_id, alias_name, source_name, confidence, created_at, updated_at)
			VALUES ($1, $2, $3, 'merge', 1.0, $4, $4)
			ON CONFLICT (player_id, alias_name, source_name)
			DO UPDATE SET confidence = GREATEST(aliases.confidence, EXCLUDED.confidence), updated_at = EXCLUDED.updated_at
		`
		if _, err := tx.ExecContext(ctx, aliasQuery, uuid.New().String(), survivorID, duplicateNormalized, now); err != nil {
			log.WithError(err).Error("Failed to record duplicate name as survivor alias")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
		}
	}

	archiveResult, err := tx.ExecContext(ctx, "UPDATE players SET archived_at = $2, updated_at = $2 WHERE id = $1 AND archived_at IS NULL", duplicateID, now)
	if err != nil {
		log.WithError(err).Error("Failed to archive duplicate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}
	if rows, _ := archiveResult.RowsAffected(); rows == 0 && !duplicate.IsArchived() {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to archive duplicate")
	}

	auditQuery := `
		INSERT INTO merge_audit_log (id, survivor_id, duplicate_id, reason, moved_external_ids, moved_aliases, performed_by, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, auditQuery, uuid.New().String(), survivorID, duplicateID, reason, movedExternalIDs, movedAliases, performedBy, now); err != nil {
		log.WithError(err).Error("Failed to write merge audit row")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}

	if err := tx.Commit(ctx); err != nil {
		log.WithError(err).Error("Failed to commit merge")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to merge players")
	}

	log.WithFields(map[string]any{
		"moved_external_ids": movedExternalIDs,
		"moved_aliases":      movedAliases,
		"skipped_aliases":    skippedAliases,
	}).Info("Merged players")

	return &models.MergeResult{
		SurvivorID:       survivorID,
		DuplicateID:      duplicateID,
		MovedExternalIDs: int(movedExternalIDs),
		MovedAliases:     int(movedAliases),
		SkippedAliases:   int(skippedAliases),
	}, nil
}

// MergeHistory returns audit rows where the player was the survivor or the
// duplicate, newest first.
func (r *Repository) MergeHistory(ctx context.Context, playerID string) ([]models.MergeAuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "player.Repository.MergeHistory")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "survivor_id", "duplicate_id", "reason", "moved_external_ids", "moved_aliases", "performed_by", "performed_at")
	sb.From("merge_audit_log")
	sb.Where(sb.Or(
		sb.Equal("survivor_id", playerID),
		sb.Equal("duplicate_id", playerID),
	))
	sb.OrderBy("performed_at DESC")

	query, args := sb.Build()
	var logs []models.MergeAuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"player_id": playerID}).Error("Failed to load merge history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to load merge history")
	}
	return logs, nil
}
