package players

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/internal/repositories/player"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/graph"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// Register registers player routes
func Register(g *echo.Group) {
	g.GET("", ListPlayers)
	g.POST("", CreatePlayer)
	g.GET("/:id", GetPlayer)
	g.PUT("/:id", UpdatePlayer)
	g.DELETE("/:id", ArchivePlayer)
	g.POST("/:id/merge", MergePlayers)
	g.GET("/:id/merges", GetMergeHistory)
}

// ListPlayers lists players with optional search and filters
func ListPlayers(c echo.Context) error {
	ctx := c.Request().Context()

	page, pageSize := 1, 50
	var includeArchived bool
	// Bad paging input falls back to the defaults rather than failing the list.
	_ = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("page_size", &pageSize).
		Bool("include_archived", &includeArchived).
		BindError()

	var search, team, position *string
	if q := c.QueryParam("q"); q != "" {
		search = &q
	}
	if t := c.QueryParam("team"); t != "" {
		team = &t
	}
	if p := c.QueryParam("position"); p != "" {
		position = &p
	}

	ctx, repo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	players, err := repo.List(ctx, search, team, position, includeArchived, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, players)
}

// GetPlayer gets a canonical player by ID
func GetPlayer(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	found, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, found)
}

// CreatePlayer creates a new canonical player
func CreatePlayer(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.CreatePlayerRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdatePlayer updates a canonical player's attributes
func UpdatePlayer(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	req, err := utils.BindRequest[models.UpdatePlayerRequest](c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, id, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// ArchivePlayer soft-archives a player. The player drops out of the matchable
// pool; existing external id mappings keep resolving.
func ArchivePlayer(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, store, err := ectoinject.GetContext[crosswalk.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := store.ArchivePlayer(ctx, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// MergePlayers merges a duplicate player into the player in the path. External
// ids and aliases move to the survivor in one transaction and the merge is
// written to the audit log.
func MergePlayers(c echo.Context) error {
	ctx := c.Request().Context()
	survivorID := c.Param("id")

	req, err := utils.BindRequest[models.MergePlayersRequest](c)
	if err != nil {
		return err
	}
	if req.DuplicateID == survivorID {
		return httperror.NewHTTPError(http.StatusBadRequest, "a player cannot be merged into itself")
	}

	ctx, store, err := ectoinject.GetContext[crosswalk.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var performedBy *string
	if req.PerformedBy != "" {
		performedBy = &req.PerformedBy
	}

	result, err := store.Merge(ctx, survivorID, req.DuplicateID, req.Reason, performedBy)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"survivor_id":  survivorID,
			"duplicate_id": req.DuplicateID,
		}).Info("Merged players")
	}

	// The merge itself is committed; event and graph propagation log their
	// own failures.
	if ctx2, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		_ = emitter.EmitPlayerMerged(ctx2, result, req.Reason)
	}
	if ctx2, projector, err := ectoinject.GetContext[*graph.Projector](ctx); err == nil && projector.Enabled() {
		reprojectSurvivor(ctx2, projector, survivorID, req.DuplicateID)
	}

	return c.JSON(http.StatusOK, result)
}

// reprojectSurvivor drops the duplicate's node and rebuilds the survivor's
// identity subgraph from the store. Projection failures are logged by the
// projector and never surface to the caller.
func reprojectSurvivor(ctx context.Context, projector *graph.Projector, survivorID, duplicateID string) {
	_ = projector.RemovePlayer(ctx, duplicateID)

	ctx, playerRepo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return
	}
	ctx, externalIDRepo, err := ectoinject.GetContext[*externalid.Repository](ctx)
	if err != nil {
		return
	}
	ctx, aliasRepo, err := ectoinject.GetContext[*alias.Repository](ctx)
	if err != nil {
		return
	}

	survivor, err := playerRepo.Get(ctx, survivorID)
	if err != nil {
		return
	}
	mappings, err := externalIDRepo.ListByPlayer(ctx, survivorID)
	if err != nil {
		return
	}
	aliases, err := aliasRepo.ListByPlayer(ctx, survivorID)
	if err != nil {
		return
	}

	_ = projector.ProjectIdentity(ctx, survivor, mappings, aliases)
}

// GetMergeHistory returns the audit log entries in which the player was the
// survivor or the duplicate.
func GetMergeHistory(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*player.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	history, err := repo.MergeHistory(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, history)
}
