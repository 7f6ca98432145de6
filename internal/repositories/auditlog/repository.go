package auditlog

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

// Repository handles audit log persistence. The table is append-only; there
// is deliberately no update or delete method.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new audit log repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit entry
func (r *Repository) Create(ctx context.Context, entry *models.AuditLogEntry) (*models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Repository.Create")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("audit_log_entries")
	sb.Cols("id", "tenant_id", "event_type", "entity_type", "entity_id", "user_id", "metadata", "created_at")
	sb.Values(entry.ID, entry.TenantID, entry.EventType, entry.EntityType, entry.EntityID, entry.UserID, entry.Metadata, entry.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_type": entry.EventType}).Error("Failed to create audit log entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create audit log entry")
	}

	return entry, nil
}

// ListByEntity retrieves audit entries for an entity, newest first
func (r *Repository) ListByEntity(ctx context.Context, tenantID string, entityType string, entityID string, limit int) ([]models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Repository.ListByEntity")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "event_type", "entity_type", "entity_id", "user_id", "metadata", "created_at")
	sb.From("audit_log_entries")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("entity_type", entityType),
		sb.Equal("entity_id", entityID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list audit log entries by entity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audit log entries")
	}

	return entries, nil
}

// ListByTimeRange retrieves audit entries within [from, to), newest first
func (r *Repository) ListByTimeRange(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Repository.ListByTimeRange")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 200
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "tenant_id", "event_type", "entity_type", "entity_id", "user_id", "metadata", "created_at")
	sb.From("audit_log_entries")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.GreaterEqualThan("created_at", from),
		sb.LessThan("created_at", to),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var entries []models.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list audit log entries by time range")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list audit log entries")
	}

	return entries, nil
}
