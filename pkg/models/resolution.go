package models

// MatchStatus is the outcome class of a resolution attempt
type MatchStatus string

const (
	MatchStatusAutoMatch           MatchStatus = "AUTO_MATCH"
	MatchStatusAutoMatchWithGuards MatchStatus = "AUTO_MATCH_WITH_GUARDS"
	MatchStatusSuggested           MatchStatus = "SUGGESTED"
	MatchStatusPendingReview       MatchStatus = "PENDING_REVIEW"
)

// MatchMethod identifies which strategy produced the outcome
type MatchMethod string

const (
	MatchMethodGTINExact        MatchMethod = "GTIN_EXACT"
	MatchMethodLWINExact        MatchMethod = "LWIN_EXACT"
	MatchMethodSkuExact         MatchMethod = "SKU_EXACT"
	MatchMethodCanonicalSuggest MatchMethod = "CANONICAL_SUGGEST"
	MatchMethodNoMatch          MatchMethod = "NO_MATCH"
)

// SourceType identifies the kind of record being resolved
type SourceType string

const (
	SourceTypeSupplierImportRow SourceType = "supplier_import_row"
	SourceTypeOfferLine         SourceType = "offer_line"
	SourceTypeImportcaseLine    SourceType = "importcase_line"
	SourceTypeManual            SourceType = "manual"
)

// SourceRef points at the record being resolved. The core never mutates the
// record itself, only its denormalized match status.
type SourceRef struct {
	SourceType SourceType `json:"source_type" validate:"required,oneof=supplier_import_row offer_line importcase_line manual"`
	SourceID   string     `json:"source_id" validate:"required"`
}

// InputIdentifiers carries the hard identifiers supplied with a record.
// All optional; zero or more may be present.
type InputIdentifiers struct {
	GTIN        *string `json:"gtin,omitempty"`
	LWIN        *string `json:"lwin,omitempty"`
	ProducerSku *string `json:"producer_sku,omitempty"`
	ProducerID  *string `json:"producer_id,omitempty"`
	ImporterSku *string `json:"importer_sku,omitempty"`
	ImporterID  *string `json:"importer_id,omitempty"`
	WsID        *string `json:"ws_id,omitempty"`
}

// Empty reports whether no identifier at all was supplied
func (i *InputIdentifiers) Empty() bool {
	if i == nil {
		return true
	}
	return i.GTIN == nil && i.LWIN == nil && i.ProducerSku == nil && i.ImporterSku == nil && i.WsID == nil
}

// TextFallback carries the free-text description used when no hard identifier
// resolves.
type TextFallback struct {
	Name        *string `json:"name,omitempty"`
	Vintage     *int    `json:"vintage,omitempty"`
	BottleML    *int    `json:"bottle_ml,omitempty"`
	Producer    *string `json:"producer,omitempty"`
	Region      *string `json:"region,omitempty"`
	Appellation *string `json:"appellation,omitempty"`
	Country     *string `json:"country,omitempty"`
}

// MatchProductInput is the resolution request
type MatchProductInput struct {
	TenantID     string            `json:"tenant_id"`
	Source       SourceRef         `json:"source" validate:"required"`
	SupplierID   *string           `json:"supplier_id,omitempty"`
	SupplierSku  *string           `json:"supplier_sku,omitempty"`
	Identifiers  *InputIdentifiers `json:"identifiers,omitempty"`
	TextFallback *TextFallback     `json:"text_fallback,omitempty"`
}

// MatchCandidate is a candidate entity returned with a resolution outcome
type MatchCandidate struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Score      float64    `json:"score"`
	Reason     string     `json:"reason"`
}

// MatchProductOutput is the resolution response. The type deliberately has no
// pricing, currency, or market-value fields; the output guard re-checks the
// serialized form as defense in depth.
type MatchProductOutput struct {
	Status            MatchStatus      `json:"status"`
	Confidence        float64          `json:"confidence"`
	MatchMethod       MatchMethod      `json:"match_method"`
	MatchedEntityType *EntityType      `json:"matched_entity_type,omitempty"`
	MatchedEntityID   *string          `json:"matched_entity_id,omitempty"`
	Explanation       string           `json:"explanation"`
	Candidates        []MatchCandidate `json:"candidates,omitempty"`
}

// NeedsReview reports whether the outcome must be queued for human review
func (o *MatchProductOutput) NeedsReview() bool {
	return o.Status == MatchStatusSuggested || o.Status == MatchStatusPendingReview
}
