package graph

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	graphpkg "github.com/uruley/4HorsemenDFS/pkg/graph"
)

// Register registers identity graph routes on the api group.
func Register(api *echo.Group) {
	api.GET("/players/:id/graph", PlayerGraph)
}

// PlayerGraph returns the identity subgraph around one player
func PlayerGraph(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, projector, err := ectoinject.GetContext[*graphpkg.Projector](ctx)
	if err != nil || !projector.Enabled() {
		// 503 because projection is an optional dependency.
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "graph projection is not enabled")
	}

	identity, err := projector.PlayerGraph(ctx, id)
	if err != nil {
		return err
	}
	if identity == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "player has not been projected")
	}

	return c.JSON(http.StatusOK, identity)
}
