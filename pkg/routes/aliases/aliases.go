package aliases

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/internal/repositories/alias"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// Register registers alias routes on the api group.
func Register(api *echo.Group) {
	api.GET("/players/:id/aliases", ListPlayerAliases)
	api.POST("/aliases", CreateAlias)
	api.DELETE("/players/:id/aliases/:aliasID", DeleteAlias)
}

// ListPlayerAliases lists every alias recorded for a player
func ListPlayerAliases(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*alias.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	aliases, err := repo.ListByPlayer(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.AliasListResponse{
		Items:      aliases,
		TotalCount: len(aliases),
	})
}

// CreateAlias records a reviewed alias for a player. The name is stored
// normalized, so resolution hits it without scoring.
func CreateAlias(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.CreateAliasRequest](c)
	if err != nil {
		return err
	}
	normalized := normalizers.NormalizeName(req.AliasName)
	if normalized == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "alias name normalizes to empty")
	}
	if req.Confidence == 0 {
		// A reviewer-entered alias is a human assertion.
		req.Confidence = 1.0
	}

	ctx, store, err := ectoinject.GetContext[crosswalk.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := store.UpsertAlias(ctx, req); err != nil {
		return err
	}

	// Confidence only ratchets upward on re-adds, so the stored row is the
	// authoritative response.
	ctx, repo, err := ectoinject.GetContext[*alias.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	created, err := findAlias(ctx, repo, req.PlayerID, normalized, req.SourceName)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"player_id":   req.PlayerID,
			"alias_name":  normalized,
			"source_name": req.SourceName,
		}).Info("Created alias")
	}

	if ctx2, emitter, err2 := ectoinject.GetContext[*events.Emitter](ctx); err2 == nil {
		_ = emitter.EmitAliasCreated(ctx2, created)
	}

	return c.JSON(http.StatusCreated, created)
}

// DeleteAlias removes an alias from a player
func DeleteAlias(c echo.Context) error {
	ctx := c.Request().Context()
	playerID := c.Param("id")
	aliasID := c.Param("aliasID")

	ctx, store, err := ectoinject.GetContext[crosswalk.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := store.DeleteAlias(ctx, playerID, aliasID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func findAlias(ctx context.Context, repo *alias.Repository, playerID, aliasName, sourceName string) (*models.Alias, error) {
	aliases, err := repo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for i := range aliases {
		if aliases[i].AliasName == aliasName && aliases[i].SourceName == sourceName {
			return &aliases[i], nil
		}
	}
	return nil, httperror.NewHTTPError(http.StatusInternalServerError, "alias not found after upsert")
}
