package reviewqueue

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/vine/internal/repositories/reviewqueue"
	"github.com/Ramsey-B/vine/pkg/context"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/review"
)

// Register registers review queue routes
func Register(g *echo.Group) {
	g.GET("", ListPendingItems)
	g.GET("/:id", GetQueueItem)
	g.POST("/:id/decision", ApplyDecision)
}

// ListPendingItems lists pending review queue items, oldest first
func ListPendingItems(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ListPending(ctx, tenantID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// GetQueueItem gets a review queue item by ID
func GetQueueItem(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reviewqueue.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// ApplyDecision applies a reviewer decision to a queue item
func ApplyDecision(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant context is required")
	}

	var req models.ApplyDecisionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ReviewedBy == nil {
		if userID := context.GetUserID(ctx); userID != "" {
			req.ReviewedBy = &userID
		}
	}

	ctx, svc, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resp, err := svc.ApplyDecision(ctx, tenantID, id, &req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}
