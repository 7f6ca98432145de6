package reviewqueue

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

// Repository handles review queue persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review queue repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create enqueues a pending review item
func (r *Repository) Create(ctx context.Context, item *models.ReviewQueueItem) (*models.ReviewQueueItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Create")
	defer span.End()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Status = models.ReviewStatusPending
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_queue_items")
	sb.Cols("id", "tenant_id", "source_type", "source_id", "supplier_id", "supplier_sku", "status", "match_status", "confidence", "candidates", "snapshot", "created_at", "updated_at")
	sb.Values(item.ID, item.TenantID, item.SourceType, item.SourceID, item.SupplierID, item.SupplierSku, item.Status, item.MatchStatus, item.Confidence, item.Candidates, item.Snapshot, item.CreatedAt, item.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"source_id": item.SourceID}).Error("Failed to create review queue item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review queue item")
	}

	return item, nil
}

// Get retrieves a review queue item by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.ReviewQueueItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "source_type", "source_id", "supplier_id", "supplier_sku", "status", "match_status", "confidence", "candidates", "snapshot", "resolution_action", "resolution_note", "resolved_by", "resolved_at", "created_at", "updated_at")
	sb.From("review_queue_items")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var item models.ReviewQueueItem
	if err := r.db.GetContext(ctx, &item, query, args...); err != nil {
		if database.IsNotFound(err) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("review queue item %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review queue item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review queue item")
	}

	return &item, nil
}

// ListPending retrieves pending review items, oldest first
func (r *Repository) ListPending(ctx context.Context, tenantID string, limit int) ([]models.ReviewQueueItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.ListPending")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "source_type", "source_id", "supplier_id", "supplier_sku", "status", "match_status", "confidence", "candidates", "snapshot", "resolution_action", "resolution_note", "resolved_by", "resolved_at", "created_at", "updated_at")
	sb.From("review_queue_items")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("status", models.ReviewStatusPending),
	)
	sb.OrderBy("created_at ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var items []models.ReviewQueueItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list pending review queue items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list pending review queue items")
	}

	return items, nil
}

// Resolve transitions an item from pending to resolved. The conditional
// update is the concurrency gate: exactly one caller wins for a given item,
// everyone else sees resolved=false and must take the idempotent read path.
func (r *Repository) Resolve(ctx context.Context, tenantID string, id string, action models.ReviewAction, note *string, resolvedBy *string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Resolve")
	defer span.End()

	now := time.Now().UTC()
	query := `
		UPDATE review_queue_items
		SET status = $1, resolution_action = $2, resolution_note = $3, resolved_by = $4, resolved_at = $5, updated_at = $5
		WHERE id = $6
		AND tenant_id = $7
		AND status = $8
	`

	result, err := r.db.ExecContext(ctx, query, models.ReviewStatusResolved, string(action), note, resolvedBy, now, id, tenantID, models.ReviewStatusPending)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve review queue item")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve review queue item")
	}

	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

// CountPending counts pending items for a tenant
func (r *Repository) CountPending(ctx context.Context, tenantID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.CountPending")
	defer span.End()

	query := `SELECT COUNT(*) FROM review_queue_items WHERE tenant_id = $1 AND status = $2`

	var count int
	if err := r.db.GetContext(ctx, &count, query, tenantID, models.ReviewStatusPending); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count pending review queue items")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count pending review queue items")
	}

	return count, nil
}
