package resolution

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/vine/pkg/context"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/resolution"
)

// Register registers resolution routes
func Register(g *echo.Group) {
	g.POST("/resolve", ResolveProduct)
}

// ResolveProduct resolves a product record to a canonical identity
func ResolveProduct(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "tenant context is required")
	}

	var input models.MatchProductInput
	if err := c.Bind(&input); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	input.TenantID = tenantID

	if err := c.Validate(&input); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*resolution.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	output, err := svc.Resolve(ctx, &input)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, output)
}
