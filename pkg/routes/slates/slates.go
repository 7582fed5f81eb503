package slates

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/internal/export"
	"github.com/uruley/4HorsemenDFS/internal/ingest"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/graph"
	"github.com/uruley/4HorsemenDFS/pkg/metrics"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/report"
	"github.com/uruley/4HorsemenDFS/pkg/resolver"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
	"github.com/uruley/4HorsemenDFS/pkg/tracing"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// Register registers slate resolution routes on the api group.
func Register(api *echo.Group) {
	api.POST("/slates/resolve", ResolveSlate)
	api.POST("/slates/import/:source", ImportSlate)
}

// ResolveSlate resolves a JSON slate and returns the match report
func ResolveSlate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "slates.ResolveSlate")
	defer span.End()

	req, err := utils.BindRequest[models.ResolveSlateRequest](c)
	if err != nil {
		return err
	}

	slateReport, err := runPipeline(ctx, req.SourceName, req.Records)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, slateReport)
}

// ImportSlate parses an uploaded provider export and resolves it. The
// source path param selects the ingest adapter.
func ImportSlate(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "slates.ImportSlate")
	defer span.End()

	source := c.Param("source")

	ctx, registry, err := ectoinject.GetContext[*ingest.Registry](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	adapter, ok := registry.Get(source)
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound,
			"no import adapter for source "+source+", supported: "+strings.Join(registry.Sources(), ", "))
	}

	records, err := adapter.Parse(c.Request().Body)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}
	if len(records) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "upload contained no records")
	}

	slateReport, err := runPipeline(ctx, adapter.SourceName(), records)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, slateReport)
}

// runPipeline is the HTTP side of slate resolution: the same steps the
// Kafka processor runs, with the report handed back to the caller.
func runPipeline(ctx context.Context, sourceName string, records []models.SourceRecord) (models.Report, error) {
	ctx, res, err := ectoinject.GetContext[*resolver.Resolver](ctx)
	if err != nil {
		return models.Report{}, httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	results, err := res.ResolveSlate(ctx, sourceName, records)
	if err != nil {
		return models.Report{}, err
	}

	slateReport := report.Generate(results)
	metrics.SlateMatchRate.WithLabelValues(sourceName).Set(slateReport.Summary.MatchRate)

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)

	// Post-resolution steps are advisory; the report goes back to the
	// caller even when one of them fails.
	if ctx2, svc, err2 := ectoinject.GetContext[*suggestions.Service](ctx); err2 == nil {
		if _, err3 := svc.Capture(ctx2, results); err3 != nil && logger != nil {
			logger.WithContext(ctx).WithError(err3).Error("Failed to capture alias suggestions")
		}
	}
	if ctx2, exporter, err2 := ectoinject.GetContext[*export.Writer](ctx); err2 == nil {
		if err3 := exporter.WriteReport(ctx2, slateReport); err3 != nil && logger != nil {
			logger.WithContext(ctx).WithError(err3).Error("Failed to export resolution report")
		}
	}
	if ctx2, emitter, err2 := ectoinject.GetContext[*events.Emitter](ctx); err2 == nil {
		if err3 := emitter.EmitSlateResolved(ctx2, sourceName, slateReport.Summary); err3 != nil && logger != nil {
			logger.WithContext(ctx).WithError(err3).Error("Failed to emit slate resolved event")
		}
	}
	if ctx2, projector, err2 := ectoinject.GetContext[*graph.Projector](ctx); err2 == nil && projector.Enabled() {
		if err3 := projector.ProjectMatches(ctx2, results); err3 != nil && logger != nil {
			logger.WithContext(ctx).WithError(err3).Error("Failed to project match results")
		}
	}

	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{
			"source_name": sourceName,
			"records":     len(records),
			"matched":     slateReport.Summary.MatchedCount,
			"unmatched":   slateReport.Summary.UnmatchedCount,
			"ambiguous":   slateReport.Summary.AmbiguousCount,
			"match_rate":  slateReport.Summary.MatchRate,
		}).Info("Resolved slate")
	}

	return slateReport, nil
}
