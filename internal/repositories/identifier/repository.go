package identifier

import (
	"context"
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

// Repository handles product identifier persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new identifier repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Lookup finds the entity a (type, value, issuer) triple points at. Returns
// nil without error when the identifier is unknown. issuerID must be "" for
// global identifier types.
func (r *Repository) Lookup(ctx context.Context, tenantID string, idType models.IdentifierType, idValue string, issuerID string) (*models.ProductIdentifier, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.Lookup")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "id_type", "id_value", "issuer_id", "entity_type", "entity_id", "created_at")
	sb.From("product_identifiers")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("id_type", idType),
		sb.Equal("id_value", idValue),
		sb.Equal("issuer_id", issuerID),
	)

	query, args := sb.Build()
	var ident models.ProductIdentifier
	if err := r.db.GetContext(ctx, &ident, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up product identifier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to look up product identifier")
	}

	return &ident, nil
}

// Register records a new identifier binding. Returns a 409 when the triple is
// already bound; concurrent auto-creates race here and the loser re-reads.
func (r *Repository) Register(ctx context.Context, ident *models.ProductIdentifier) (*models.ProductIdentifier, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.Register")
	defer span.End()

	if ident.ID == "" {
		ident.ID = uuid.New().String()
	}
	ident.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("product_identifiers")
	sb.Cols("id", "tenant_id", "id_type", "id_value", "issuer_id", "entity_type", "entity_id", "created_at")
	sb.Values(ident.ID, ident.TenantID, ident.IDType, ident.IDValue, ident.IssuerID, ident.EntityType, ident.EntityID, ident.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "identifier already registered")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id_type": ident.IDType}).Error("Failed to register product identifier")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to register product identifier")
	}

	return ident, nil
}

// ListByEntity retrieves all identifiers bound to an entity
func (r *Repository) ListByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]models.ProductIdentifier, error) {
	ctx, span := tracing.StartSpan(ctx, "identifier.Repository.ListByEntity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "id_type", "id_value", "issuer_id", "entity_type", "entity_id", "created_at")
	sb.From("product_identifiers")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("entity_type", entityType),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var idents []models.ProductIdentifier
	if err := r.db.SelectContext(ctx, &idents, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list product identifiers")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list product identifiers")
	}

	return idents, nil
}
