package models

import (
	"encoding/json"
	"time"
)

// AuditEventType classifies audit log entries
type AuditEventType string

const (
	AuditEventReviewDecision AuditEventType = "review.decision"
	AuditEventProductCreated AuditEventType = "product.created"
	AuditEventMappingUpsert  AuditEventType = "mapping.upsert"
)

// AuditLogEntry is an immutable record of a human decision and its resulting
// mutation. Append-only; there is no update or delete operation.
type AuditLogEntry struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	EventType  AuditEventType  `json:"event_type" db:"event_type"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	UserID     *string         `json:"user_id,omitempty" db:"user_id"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// AuditMetadata is the before/after payload stored on an entry
type AuditMetadata struct {
	Action      string `json:"action,omitempty"`
	Comment     string `json:"comment,omitempty"`
	BeforeState any    `json:"before_state,omitempty"`
	AfterState  any    `json:"after_state,omitempty"`
}
