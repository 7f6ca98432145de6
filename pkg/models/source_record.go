package models

import "time"

// Denormalized match statuses owned by the originating collaborator. The core
// only ever writes this field and the matched entity linkage.
const (
	SourceMatchStatusPending     = "PENDING"
	SourceMatchStatusAutoMatched = "AUTO_MATCHED"
	SourceMatchStatusNoMatch     = "NO_MATCH"
)

// SourceRecord mirrors the originating record's resolution state. The record
// body itself (price-list row, offer line, import-case line) lives with the
// ingesting collaborator.
type SourceRecord struct {
	TenantID          string     `json:"tenant_id" db:"tenant_id"`
	SourceType        SourceType `json:"source_type" db:"source_type"`
	SourceID          string     `json:"source_id" db:"source_id"`
	MatchStatus       string     `json:"match_status" db:"match_status"`
	MatchedEntityType *string    `json:"matched_entity_type,omitempty" db:"matched_entity_type"`
	MatchedEntityID   *string    `json:"matched_entity_id,omitempty" db:"matched_entity_id"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}
