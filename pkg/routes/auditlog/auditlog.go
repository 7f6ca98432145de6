package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/vine/pkg/audit"
	"github.com/Ramsey-B/vine/pkg/context"
)

// Register registers audit log query routes
func Register(g *echo.Group) {
	g.GET("", ListEntries)
}

// ListEntries lists audit entries by entity or by time range
func ListEntries(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	entityType := c.QueryParam("entity_type")
	entityID := c.QueryParam("entity_id")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, svc, err := ectoinject.GetContext[*audit.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if entityType != "" && entityID != "" {
		entries, err := svc.ListByEntity(ctx, tenantID, entityType, entityID, limit)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, entries)
	}

	fromParam := c.QueryParam("from")
	toParam := c.QueryParam("to")
	if fromParam == "" || toParam == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "entity_type/entity_id or from/to query parameters are required")
	}

	from, err := time.Parse(time.RFC3339, fromParam)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, toParam)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
	}

	entries, err := svc.ListByTimeRange(ctx, tenantID, from, to, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
