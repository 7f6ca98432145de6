// Package audit records human decisions and their resulting mutations.
// Entries are immutable; the package exposes no update or delete.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Store is the append-only persistence the service consumes
type Store interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) (*models.AuditLogEntry, error)
	ListByEntity(ctx context.Context, tenantID string, entityType string, entityID string, limit int) ([]models.AuditLogEntry, error)
	ListByTimeRange(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.AuditLogEntry, error)
}

// Service wraps the audit store
type Service struct {
	store  Store
	logger ectologger.Logger
}

// NewService creates a new audit service
func NewService(store Store, logger ectologger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Record appends an audit entry with the given before/after metadata
func (s *Service) Record(ctx context.Context, tenantID string, eventType models.AuditEventType, entityType, entityID string, userID *string, meta models.AuditMetadata) (*models.AuditLogEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "audit.Service.Record")
	defer span.End()

	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	return s.store.Create(ctx, &models.AuditLogEntry{
		TenantID:   tenantID,
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Metadata:   metadata,
	})
}

// ListByEntity returns the audit trail for an entity
func (s *Service) ListByEntity(ctx context.Context, tenantID string, entityType string, entityID string, limit int) ([]models.AuditLogEntry, error) {
	return s.store.ListByEntity(ctx, tenantID, entityType, entityID, limit)
}

// ListByTimeRange returns audit entries within [from, to)
func (s *Service) ListByTimeRange(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]models.AuditLogEntry, error) {
	return s.store.ListByTimeRange(ctx, tenantID, from, to, limit)
}
