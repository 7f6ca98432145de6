package sourcerecord

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/vine/pkg/database"
	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Repository handles the denormalized match state mirrored from originating
// records. Rows are upserted on first resolution and overwritten after.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new source record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// UpdateMatchStatus upserts the mirrored match state for a source record
func (r *Repository) UpdateMatchStatus(ctx context.Context, record *models.SourceRecord) error {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.UpdateMatchStatus")
	defer span.End()

	record.UpdatedAt = time.Now().UTC()

	ib := database.NewInsertBuilder().
		InsertInto("source_records").
		Cols("tenant_id", "source_type", "source_id", "match_status", "matched_entity_type", "matched_entity_id", "updated_at").
		Values(record.TenantID, record.SourceType, record.SourceID, record.MatchStatus, record.MatchedEntityType, record.MatchedEntityID, record.UpdatedAt)
	ub := ib.OnConflict("tenant_id", "source_type", "source_id")
	ub.Set(
		ub.Assign("match_status", database.Excluded("match_status")),
		ub.Assign("matched_entity_type", database.Excluded("matched_entity_type")),
		ub.Assign("matched_entity_id", database.Excluded("matched_entity_id")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_id": record.SourceID}).Error("Failed to update source record match status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update source record match status")
	}

	return nil
}

// Get retrieves the mirrored state for a source record
func (r *Repository) Get(ctx context.Context, tenantID string, sourceType models.SourceType, sourceID string) (*models.SourceRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcerecord.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("tenant_id", "source_type", "source_id", "match_status", "matched_entity_type", "matched_entity_id", "updated_at")
	sb.From("source_records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("source_type", sourceType),
		sb.Equal("source_id", sourceID),
	)

	query, args := sb.Build()
	var record models.SourceRecord
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("source record %s not found", sourceID))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source record")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source record")
	}

	return &record, nil
}
