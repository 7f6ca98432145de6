package winemaster

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

// Repository handles wine master persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new wine master repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new wine master
func (r *Repository) Create(ctx context.Context, master *models.WineMaster) (*models.WineMaster, error) {
	ctx, span := tracing.StartSpan(ctx, "winemaster.Repository.Create")
	defer span.End()

	if master.ID == "" {
		master.ID = uuid.New().String()
	}
	master.CreatedAt = time.Now().UTC()
	master.UpdatedAt = master.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("wine_masters")
	sb.Cols("id", "tenant_id", "canonical_name", "producer", "country", "region", "appellation", "created_at", "updated_at")
	sb.Values(master.ID, master.TenantID, master.CanonicalName, master.Producer, master.Country, master.Region, master.Appellation, master.CreatedAt, master.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"master_id": master.ID}).Error("Failed to create wine master")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create wine master")
	}

	return master, nil
}

// Get retrieves a wine master by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.WineMaster, error) {
	ctx, span := tracing.StartSpan(ctx, "winemaster.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "canonical_name", "producer", "country", "region", "appellation", "created_at", "updated_at", "deleted_at")
	sb.From("wine_masters")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var master models.WineMaster
	if err := r.db.GetContext(ctx, &master, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("wine master %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get wine master")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get wine master")
	}

	return &master, nil
}

// Search finds masters whose canonical name contains the given fragment,
// optionally narrowed by producer. Serves the catalog browse route and the
// canonical matcher's fuzzy candidate pass.
func (r *Repository) Search(ctx context.Context, tenantID string, nameFragment string, producer string, limit int) ([]models.WineMaster, error) {
	ctx, span := tracing.StartSpan(ctx, "winemaster.Repository.Search")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 25
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "canonical_name", "producer", "country", "region", "appellation", "created_at", "updated_at", "deleted_at")
	sb.From("wine_masters")

	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	}
	if nameFragment != "" {
		where = append(where, sb.ILike("canonical_name", "%"+nameFragment+"%"))
	}
	if producer != "" {
		where = append(where, sb.ILike("producer", "%"+producer+"%"))
	}
	sb.Where(where...)
	sb.OrderBy("canonical_name ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var masters []models.WineMaster
	if err := r.db.SelectContext(ctx, &masters, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search wine masters")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search wine masters")
	}

	return masters, nil
}

// ListByNormalizedName retrieves masters whose canonical name equals the
// given name under the normalizers.NormalizeName folding (lowercased,
// punctuation collapsed to single spaces). The canonical matcher uses this
// to find exact catalog entries that an ILIKE fragment search misses.
func (r *Repository) ListByNormalizedName(ctx context.Context, tenantID string, normalizedName string, limit int) ([]models.WineMaster, error) {
	ctx, span := tracing.StartSpan(ctx, "winemaster.Repository.ListByNormalizedName")
	defer span.End()

	if limit < 1 || limit > 50 {
		limit = 10
	}

	query := `
		SELECT id, tenant_id, canonical_name, producer, country, region, appellation, created_at, updated_at, deleted_at
		FROM wine_masters
		WHERE tenant_id = $1
		AND btrim(regexp_replace(lower(canonical_name), '[^[:alnum:]]+', ' ', 'g')) = $2
		AND deleted_at IS NULL
		LIMIT $3
	`

	var masters []models.WineMaster
	if err := r.db.SelectContext(ctx, &masters, query, tenantID, normalizedName, limit); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list wine masters by normalized name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list wine masters")
	}

	return masters, nil
}
