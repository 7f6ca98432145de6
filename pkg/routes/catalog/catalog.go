package catalog

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/vine/internal/repositories/winemaster"
	"github.com/Ramsey-B/vine/internal/repositories/winesku"
	"github.com/Ramsey-B/vine/pkg/context"
	"github.com/Ramsey-B/vine/pkg/graph"
	"github.com/Ramsey-B/vine/pkg/models"
)

// Register registers catalog browse routes
func Register(g *echo.Group) {
	g.GET("/products/:id", GetProduct)
	g.GET("/products", SearchProducts)
}

// ProductResponse is a master with its packaged variants
type ProductResponse struct {
	Master   *models.WineMaster `json:"master"`
	Variants []models.WineSku   `json:"variants"`
}

// GetProduct returns a master and its SKUs, graph-first with relational
// fallback
func GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)
	id := c.Param("id")

	ctx, catalogSvc, err := ectoinject.GetContext[*graph.CatalogService](ctx)
	if err == nil && catalogSvc != nil {
		if view, viewErr := catalogSvc.GetProduct(ctx, tenantID, id); viewErr == nil && view != nil {
			return c.JSON(http.StatusOK, view)
		}
	}

	ctx, masters, err := ectoinject.GetContext[*winemaster.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	master, err := masters.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	ctx, skus, err := ectoinject.GetContext[*winesku.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	variants, err := skus.ListByMaster(ctx, tenantID, id, 0)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &ProductResponse{Master: master, Variants: variants})
}

// SearchProducts searches masters by name fragment and producer
func SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	name := c.QueryParam("name")
	producer := c.QueryParam("producer")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	if name == "" && producer == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name or producer query parameter is required")
	}

	ctx, masters, err := ectoinject.GetContext[*winemaster.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	results, err := masters.Search(ctx, tenantID, name, producer, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, results)
}
