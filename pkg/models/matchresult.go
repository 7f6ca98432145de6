package models

import (
	"encoding/json"
	"time"
)

// MatchResultRecord is the immutable diagnostic row written once per
// resolution call, regardless of outcome. External dashboards aggregate these
// for auto-match rate and identifier coverage.
type MatchResultRecord struct {
	ID                string          `json:"id" db:"id"`
	TenantID          string          `json:"tenant_id" db:"tenant_id"`
	SourceType        SourceType      `json:"source_type" db:"source_type"`
	SourceID          string          `json:"source_id" db:"source_id"`
	Status            MatchStatus     `json:"status" db:"status"`
	Confidence        float64         `json:"confidence" db:"confidence"`
	MatchMethod       MatchMethod     `json:"match_method" db:"match_method"`
	MatchedEntityType *EntityType     `json:"matched_entity_type,omitempty" db:"matched_entity_type"`
	MatchedEntityID   *string         `json:"matched_entity_id,omitempty" db:"matched_entity_id"`
	Explanation       string          `json:"explanation" db:"explanation"`
	Candidates        json.RawMessage `json:"candidates,omitempty" db:"candidates"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// MatchResultStats is an aggregate over match results for dashboards
type MatchResultStats struct {
	Status      MatchStatus `json:"status" db:"status"`
	MatchMethod MatchMethod `json:"match_method" db:"match_method"`
	Count       int         `json:"count" db:"count"`
}
