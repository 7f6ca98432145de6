package matchresult

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

// Repository handles match result persistence. One row is written per
// resolution call; rows are never updated.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new match result repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends a match result
func (r *Repository) Create(ctx context.Context, result *models.MatchResultRecord) (*models.MatchResultRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Create")
	defer span.End()

	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	result.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("match_results")
	sb.Cols("id", "tenant_id", "source_type", "source_id", "status", "confidence", "match_method", "matched_entity_type", "matched_entity_id", "explanation", "candidates", "created_at")
	sb.Values(result.ID, result.TenantID, result.SourceType, result.SourceID, result.Status, result.Confidence, result.MatchMethod, result.MatchedEntityType, result.MatchedEntityID, result.Explanation, result.Candidates, result.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_id": result.SourceID}).Error("Failed to create match result")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create match result")
	}

	return result, nil
}

// ListBySource retrieves all results recorded for a source record, newest
// first. Repeated resolutions of the same record each have their own row.
func (r *Repository) ListBySource(ctx context.Context, tenantID string, sourceType models.SourceType, sourceID string) ([]models.MatchResultRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.ListBySource")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "source_type", "source_id", "status", "confidence", "match_method", "matched_entity_type", "matched_entity_id", "explanation", "candidates", "created_at")
	sb.From("match_results")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("source_type", sourceType),
		sb.Equal("source_id", sourceID),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()
	var results []models.MatchResultRecord
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list match results by source")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list match results")
	}

	return results, nil
}

// Stats aggregates result counts by status and method within [from, to)
func (r *Repository) Stats(ctx context.Context, tenantID string, from, to time.Time) ([]models.MatchResultStats, error) {
	ctx, span := tracing.StartSpan(ctx, "matchresult.Repository.Stats")
	defer span.End()

	query := `
		SELECT status, match_method, COUNT(*) AS count
		FROM match_results
		WHERE tenant_id = $1
		AND created_at >= $2
		AND created_at < $3
		GROUP BY status, match_method
		ORDER BY count DESC
	`

	var stats []models.MatchResultStats
	if err := r.db.SelectContext(ctx, &stats, query, tenantID, from, to); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate match result stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to aggregate match result stats")
	}

	return stats, nil
}
