// Package routes mounts every API route group onto the echo server.
package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uruley/4HorsemenDFS/pkg/routes/aliases"
	"github.com/uruley/4HorsemenDFS/pkg/routes/externalids"
	"github.com/uruley/4HorsemenDFS/pkg/routes/graph"
	"github.com/uruley/4HorsemenDFS/pkg/routes/players"
	"github.com/uruley/4HorsemenDFS/pkg/routes/preview"
	"github.com/uruley/4HorsemenDFS/pkg/routes/slates"
	"github.com/uruley/4HorsemenDFS/pkg/routes/suggestions"
)

// Register mounts the API route groups. Health routes register separately:
// the checker needs its dependencies at construction time.
func Register(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	players.Register(api.Group("/players"))
	externalids.Register(api)
	aliases.Register(api)
	suggestions.Register(api)
	slates.Register(api)
	graph.Register(api)
	preview.Register(api)
}
