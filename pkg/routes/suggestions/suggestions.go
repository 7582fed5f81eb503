package suggestions

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/uruley/4HorsemenDFS/internal/repositories/suggestion"
	"github.com/uruley/4HorsemenDFS/pkg/events"
	"github.com/uruley/4HorsemenDFS/pkg/models"
	"github.com/uruley/4HorsemenDFS/pkg/normalizers"
	"github.com/uruley/4HorsemenDFS/pkg/suggestions"
	"github.com/uruley/4HorsemenDFS/pkg/utils"
)

// Register registers alias suggestion review routes on the api group.
func Register(api *echo.Group) {
	api.GET("/suggestions", ListSuggestions)
	api.POST("/suggestions/:id/approve", ApproveSuggestion)
	api.POST("/suggestions/:id/reject", RejectSuggestion)
}

// ListSuggestions lists alias suggestions, pending ones by default
func ListSuggestions(c echo.Context) error {
	ctx := c.Request().Context()

	status := models.SuggestionStatus(c.QueryParam("status"))
	if status == "" {
		status = models.SuggestionStatusPending
	}
	switch status {
	case models.SuggestionStatusPending, models.SuggestionStatusApproved, models.SuggestionStatusRejected:
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "status must be pending, approved, or rejected")
	}

	var sourceName *string
	if source := c.QueryParam("source"); source != "" {
		sourceName = &source
	}

	page := 1
	pageSize := 50
	// Bad paging input falls back to the defaults rather than failing the list.
	_ = echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("page_size", &pageSize).
		BindError()

	ctx, repo, err := ectoinject.GetContext[*suggestion.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.List(ctx, status, sourceName, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ApproveSuggestion accepts a pending suggestion, writing its alias
func ApproveSuggestion(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	req, err := utils.BindRequest[models.ReviewSuggestionRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*suggestions.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	approved, err := svc.Approve(ctx, id, req.ReviewedBy)
	if err != nil {
		return err
	}

	if ctx2, emitter, err2 := ectoinject.GetContext[*events.Emitter](ctx); err2 == nil {
		_ = emitter.EmitAliasCreated(ctx2, &models.Alias{
			PlayerID:   approved.PlayerID,
			AliasName:  normalizers.NormalizeName(approved.UnmatchedName),
			SourceName: approved.SourceName,
			Confidence: 1.0,
		})
	}

	return c.JSON(http.StatusOK, approved)
}

// RejectSuggestion dismisses a pending suggestion
func RejectSuggestion(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	req, err := utils.BindRequest[models.ReviewSuggestionRequest](c)
	if err != nil {
		return err
	}

	ctx, svc, err := ectoinject.GetContext[*suggestions.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	rejected, err := svc.Reject(ctx, id, req.ReviewedBy)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rejected)
}
