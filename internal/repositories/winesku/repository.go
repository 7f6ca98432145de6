package winesku

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/vine/pkg/database"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Repository handles wine SKU persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new wine SKU repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new wine SKU under a master
func (r *Repository) Create(ctx context.Context, sku *models.WineSku) (*models.WineSku, error) {
	ctx, span := tracing.StartSpan(ctx, "winesku.Repository.Create")
	defer span.End()

	if sku.ID == "" {
		sku.ID = uuid.New().String()
	}
	sku.CreatedAt = time.Now().UTC()
	sku.UpdatedAt = sku.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("wine_skus")
	sb.Cols("id", "tenant_id", "master_product_id", "vintage", "bottle_ml", "packaging", "created_at", "updated_at")
	sb.Values(sku.ID, sku.TenantID, sku.MasterProductID, sku.Vintage, sku.BottleML, sku.Packaging, sku.CreatedAt, sku.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"sku_id": sku.ID}).Error("Failed to create wine sku")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create wine sku")
	}

	return sku, nil
}

// Get retrieves a wine SKU by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.WineSku, error) {
	ctx, span := tracing.StartSpan(ctx, "winesku.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "master_product_id", "vintage", "bottle_ml", "packaging", "created_at", "updated_at", "deleted_at")
	sb.From("wine_skus")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var sku models.WineSku
	if err := r.db.GetContext(ctx, &sku, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("wine sku %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get wine sku")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get wine sku")
	}

	return &sku, nil
}

// FindByMasterVintageBottle finds the SKU for an exact (master, vintage,
// bottle size) combination. Returns nil without error when absent; the
// scoped-identifier strategies use this to narrow a master hit to a SKU.
func (r *Repository) FindByMasterVintageBottle(ctx context.Context, tenantID string, masterID string, vintage *int, bottleML *int) (*models.WineSku, error) {
	ctx, span := tracing.StartSpan(ctx, "winesku.Repository.FindByMasterVintageBottle")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "master_product_id", "vintage", "bottle_ml", "packaging", "created_at", "updated_at", "deleted_at")
	sb.From("wine_skus")

	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.Equal("master_product_id", masterID),
		sb.IsNull("deleted_at"),
	}
	if vintage != nil {
		where = append(where, sb.Equal("vintage", *vintage))
	} else {
		where = append(where, sb.IsNull("vintage"))
	}
	if bottleML != nil {
		where = append(where, sb.Equal("bottle_ml", *bottleML))
	} else {
		where = append(where, sb.IsNull("bottle_ml"))
	}
	sb.Where(where...)
	sb.Limit(1)

	query, args := sb.Build()
	var sku models.WineSku
	if err := r.db.GetContext(ctx, &sku, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find wine sku by master/vintage/bottle")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find wine sku")
	}

	return &sku, nil
}

// ListByMaster retrieves SKUs owned by a master
func (r *Repository) ListByMaster(ctx context.Context, tenantID string, masterID string, limit int) ([]models.WineSku, error) {
	ctx, span := tracing.StartSpan(ctx, "winesku.Repository.ListByMaster")
	defer span.End()

	if limit < 1 || limit > 200 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "master_product_id", "vintage", "bottle_ml", "packaging", "created_at", "updated_at", "deleted_at")
	sb.From("wine_skus")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("master_product_id", masterID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("vintage DESC NULLS LAST", "bottle_ml ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var skus []models.WineSku
	if err := r.db.SelectContext(ctx, &skus, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list wine skus by master")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list wine skus")
	}

	return skus, nil
}
