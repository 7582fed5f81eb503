package externalids

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/internal/repositories/externalid"
	"github.com/uruley/4HorsemenDFS/pkg/crosswalk"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// Register registers crosswalk mapping routes on the api group.
func Register(api *echo.Group) {
	api.GET("/players/:id/external-ids", ListPlayerExternalIDs)
	api.PUT("/external-ids", UpsertExternalID)
	api.DELETE("/players/:id/external-ids/:mappingID", DeleteExternalID)
}

// ListPlayerExternalIDs lists every provider mapping pointing at a player
func ListPlayerExternalIDs(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*externalid.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	mappings, err := repo.ListByPlayer(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.ExternalIDListResponse{
		Items:      mappings,
		TotalCount: len(mappings),
	})
}

// UpsertExternalID writes a provider id mapping as a review correction. The
// write is refused with a 409 when the id already maps to a different player
// at equal or higher confidence.
func UpsertExternalID(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.UpsertExternalIDRequest](c)
	if err != nil {
		return err
	}
	if req.Confidence == 0 {
		// A review correction is a human assertion.
		req.Confidence = 1.0
	}

	ctx, store, err := ectoinject.GetContext[crosswalk.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := store.UpsertExternalID(ctx, req); err != nil {
		var conflict *crosswalk.ConflictError
		if errors.As(err, &conflict) {
			if ctx2, emitter, err2 := ectoinject.GetContext[*events.Emitter](ctx); err2 == nil {
				_ = emitter.EmitMappingConflict(ctx2, conflict)
			}
			return conflict.ToHTTPError()
		}
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"player_id":   req.PlayerID,
			"source_name": req.SourceName,
			"external_id": req.ExternalID,
		}).Info("Stored external id mapping")
	}

	ctx, repo, err := ectoinject.GetContext[*externalid.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	mapping, err := repo.GetBySourceID(ctx, req.SourceName, req.ExternalID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, mapping)
}

// DeleteExternalID removes one mapping from a player
func DeleteExternalID(c echo.Context) error {
	ctx := c.Request().Context()
	playerID := c.Param("id")
	mappingID := c.Param("mappingID")

	ctx, repo, err := ectoinject.GetContext[*externalid.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, playerID, mappingID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
