package matchresult

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/vine/internal/repositories/matchresult"
	"github.com/Ramsey-B/vine/pkg/context"
	"github.com/Ramsey-B/vine/pkg/models"
)

// Register registers match result query routes
func Register(g *echo.Group) {
	g.GET("", ListBySource)
	g.GET("/stats", Stats)
}

// ListBySource lists the resolution history for a source record
func ListBySource(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	sourceType := c.QueryParam("source_type")
	sourceID := c.QueryParam("source_id")
	if sourceType == "" || sourceID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "source_type and source_id query parameters are required")
	}

	ctx, repo, err := ectoinject.GetContext[*matchresult.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	results, err := repo.ListBySource(ctx, tenantID, models.SourceType(sourceType), sourceID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}

// Stats aggregates match results by status and method for dashboards
func Stats(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if p := c.QueryParam("from"); p != "" {
		parsed, err := time.Parse(time.RFC3339, p)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC3339")
		}
		from = parsed
	}
	if p := c.QueryParam("to"); p != "" {
		parsed, err := time.Parse(time.RFC3339, p)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC3339")
		}
		to = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*matchresult.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := repo.Stats(ctx, tenantID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}
