package productfamily

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

// Repository handles product family persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new product family repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new product family
func (r *Repository) Create(ctx context.Context, family *models.ProductFamily) (*models.ProductFamily, error) {
	ctx, span := tracing.StartSpan(ctx, "productfamily.Repository.Create")
	defer span.End()

	if family.ID == "" {
		family.ID = uuid.New().String()
	}
	family.CreatedAt = time.Now().UTC()
	family.UpdatedAt = family.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("product_families")
	sb.Cols("id", "tenant_id", "name", "created_at", "updated_at")
	sb.Values(family.ID, family.TenantID, family.Name, family.CreatedAt, family.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create product family")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create product family")
	}

	return family, nil
}

// Get retrieves a product family by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ProductFamily, error) {
	ctx, span := tracing.StartSpan(ctx, "productfamily.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "created_at", "updated_at")
	sb.From("product_families")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var family models.ProductFamily
	if err := r.db.GetContext(ctx, &family, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("product family %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get product family")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get product family")
	}

	return &family, nil
}

// List retrieves product families for a tenant
func (r *Repository) List(ctx context.Context, tenantID string, limit int) ([]models.ProductFamily, error) {
	ctx, span := tracing.StartSpan(ctx, "productfamily.Repository.List")
	defer span.End()

	if limit < 1 || limit > 200 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "name", "created_at", "updated_at")
	sb.From("product_families")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("name ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var families []models.ProductFamily
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list product families")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list product families")
	}

	return families, nil
}
