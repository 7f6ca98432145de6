package mapping

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/vine/pkg/database"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Repository handles supplier product mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Upsert writes a mapping for (tenant, supplier, sku). A later decision for
// the same key replaces the earlier one; created_at survives the overwrite.
func (r *Repository) Upsert(ctx context.Context, m *models.SupplierProductMapping) (*models.SupplierProductMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.Upsert")
	defer span.End()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Reasons == nil {
		m.Reasons = pq.StringArray{}
	}

	ib := database.NewInsertBuilder().
		InsertInto("supplier_product_mappings").
		Cols("id", "tenant_id", "supplier_id", "supplier_sku", "master_product_id", "product_family_id", "confidence", "method", "reasons", "created_at", "updated_at").
		Values(m.ID, m.TenantID, m.SupplierID, m.SupplierSku, m.MasterProductID, m.ProductFamilyID, m.Confidence, m.Method, m.Reasons, m.CreatedAt, m.UpdatedAt)
	ub := ib.OnConflict("tenant_id", "supplier_id", "supplier_sku")
	ub.Set(
		ub.Assign("master_product_id", database.Excluded("master_product_id")),
		ub.Assign("product_family_id", database.Excluded("product_family_id")),
		ub.Assign("confidence", database.Excluded("confidence")),
		ub.Assign("method", database.Excluded("method")),
		ub.Assign("reasons", database.Excluded("reasons")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)
	ib = ib.Returning("id", "created_at")

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"supplier_sku": m.SupplierSku}).Error("Failed to upsert supplier mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert supplier mapping")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit supplier mapping upsert")
	}

	return m, nil
}

// GetBySupplierSku retrieves the mapping for a supplier's SKU. Returns nil
// without error when no mapping exists yet.
func (r *Repository) GetBySupplierSku(ctx context.Context, tenantID string, supplierID string, supplierSku string) (*models.SupplierProductMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.GetBySupplierSku")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "supplier_id", "supplier_sku", "master_product_id", "product_family_id", "confidence", "method", "reasons", "created_at", "updated_at")
	sb.From("supplier_product_mappings")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("supplier_id", supplierID),
		sb.Equal("supplier_sku", supplierSku),
	)

	query, args := sb.Build()
	var m models.SupplierProductMapping
	if err := r.db.GetContext(ctx, &m, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get supplier mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get supplier mapping")
	}

	return &m, nil
}

// ListBySupplier retrieves mappings for a supplier
func (r *Repository) ListBySupplier(ctx context.Context, tenantID string, supplierID string, limit int) ([]models.SupplierProductMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "mapping.Repository.ListBySupplier")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "supplier_id", "supplier_sku", "master_product_id", "product_family_id", "confidence", "method", "reasons", "created_at", "updated_at")
	sb.From("supplier_product_mappings")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("supplier_id", supplierID),
	)
	sb.OrderBy("updated_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var mappings []models.SupplierProductMapping
	if err := r.db.SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list supplier mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list supplier mappings")
	}

	return mappings, nil
}
