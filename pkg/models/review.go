package models

import (
	"encoding/json"
	"time"
)

// ReviewQueueItem statuses. An item transitions exactly once from pending to
// resolved; the transition is a conditional update at the storage layer.
const (
	ReviewStatusPending  = "pending"
	ReviewStatusResolved = "resolved"
)

// ReviewAction is a reviewer decision
type ReviewAction string

const (
	ReviewActionApproveMatch     ReviewAction = "approve_match"
	ReviewActionApproveFamily    ReviewAction = "approve_family"
	ReviewActionReject           ReviewAction = "reject"
	ReviewActionCreateNewProduct ReviewAction = "create_new_product"
)

// Valid reports whether the action is one of the accepted decisions
func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewActionApproveMatch, ReviewActionApproveFamily, ReviewActionReject, ReviewActionCreateNewProduct:
		return true
	}
	return false
}

// RequiresSelection reports whether the action needs a selected entity id
func (a ReviewAction) RequiresSelection() bool {
	return a == ReviewActionApproveMatch || a == ReviewActionApproveFamily
}

// ReviewQueueItem holds a SUGGESTED/PENDING_REVIEW outcome awaiting a human
// decision. Snapshot carries the identifiers and text fields the source line
// was submitted with so create_new_product can seed a master from them.
type ReviewQueueItem struct {
	ID               string          `json:"id" db:"id"`
	TenantID         string          `json:"tenant_id" db:"tenant_id"`
	SourceType       SourceType      `json:"source_type" db:"source_type"`
	SourceID         string          `json:"source_id" db:"source_id"`
	SupplierID       *string         `json:"supplier_id,omitempty" db:"supplier_id"`
	SupplierSku      *string         `json:"supplier_sku,omitempty" db:"supplier_sku"`
	Status           string          `json:"status" db:"status"`
	MatchStatus      MatchStatus     `json:"match_status" db:"match_status"`
	Confidence       float64         `json:"confidence" db:"confidence"`
	Candidates       json.RawMessage `json:"candidates" db:"candidates"`
	Snapshot         json.RawMessage `json:"snapshot" db:"snapshot"`
	ResolutionAction *string         `json:"resolution_action,omitempty" db:"resolution_action"`
	ResolutionNote   *string         `json:"resolution_note,omitempty" db:"resolution_note"`
	ResolvedBy       *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// ReviewSnapshot is the JSON stored in ReviewQueueItem.Snapshot
type ReviewSnapshot struct {
	Identifiers  *InputIdentifiers `json:"identifiers,omitempty"`
	TextFallback *TextFallback     `json:"text_fallback,omitempty"`
}

// ApplyDecisionRequest is the reviewer's decision payload
type ApplyDecisionRequest struct {
	Action     ReviewAction `json:"action" validate:"required"`
	SelectedID *string      `json:"selected_id,omitempty"`
	Comment    *string      `json:"comment,omitempty"`
	ReviewedBy *string      `json:"reviewed_by,omitempty"`
}

// ApplyDecisionResponse reports the (possibly frozen) result of a decision
type ApplyDecisionResponse struct {
	QueueItemID  string                  `json:"queue_item_id"`
	Status       string                  `json:"status"`
	Action       ReviewAction            `json:"action"`
	Mapping      *SupplierProductMapping `json:"mapping"`
	AuditEventID *string                 `json:"audit_event_id,omitempty"`
	Message      string                  `json:"message"`
}
