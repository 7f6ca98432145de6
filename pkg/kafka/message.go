package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Ramsey-B/vine/pkg/models"
)

// IncomingMessage wraps a raw consumed message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	ImportRow *SupplierImportRowMessage
}

// SupplierImportRowMessage is a supplier price-list row published by the
// ingestion pipeline for resolution.
type SupplierImportRowMessage struct {
	TenantID     string                   `json:"tenant_id"`
	SourceID     string                   `json:"source_id"`
	SupplierID   string                   `json:"supplier_id"`
	SupplierSku  string                   `json:"supplier_sku"`
	Identifiers  *models.InputIdentifiers `json:"identifiers,omitempty"`
	TextFallback *models.TextFallback     `json:"text_fallback,omitempty"`
}

// ParseImportRow parses the message value as a supplier import row
func (m *IncomingMessage) ParseImportRow() error {
	var row SupplierImportRowMessage
	if err := json.Unmarshal(m.Value, &row); err != nil {
		return fmt.Errorf("failed to parse supplier import row: %w", err)
	}
	if row.TenantID == "" || row.SourceID == "" {
		return fmt.Errorf("supplier import row missing tenant_id or source_id")
	}
	m.ImportRow = &row
	return nil
}

// MatchInput converts the row into a resolution request
func (r *SupplierImportRowMessage) MatchInput() *models.MatchProductInput {
	supplierID := r.SupplierID
	supplierSku := r.SupplierSku
	in := &models.MatchProductInput{
		TenantID: r.TenantID,
		Source: models.SourceRef{
			SourceType: models.SourceTypeSupplierImportRow,
			SourceID:   r.SourceID,
		},
		Identifiers:  r.Identifiers,
		TextFallback: r.TextFallback,
	}
	if supplierID != "" {
		in.SupplierID = &supplierID
	}
	if supplierSku != "" {
		in.SupplierSku = &supplierSku
	}
	return in
}
