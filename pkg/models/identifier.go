package models

import "time"

// IdentifierType is the kind of hard product identifier
type IdentifierType string

const (
	IdentifierTypeGTIN        IdentifierType = "GTIN"
	IdentifierTypeLWIN        IdentifierType = "LWIN"
	IdentifierTypeProducerSku IdentifierType = "PRODUCER_SKU"
	IdentifierTypeImporterSku IdentifierType = "IMPORTER_SKU"
	IdentifierTypeWsID        IdentifierType = "WS_ID"
)

// IsScoped reports whether the identifier type requires an issuer scope.
// GTIN and LWIN are globally unique; producer/importer SKUs are only unique
// within the issuing party.
func (t IdentifierType) IsScoped() bool {
	return t == IdentifierTypeProducerSku || t == IdentifierTypeImporterSku
}

// ProductIdentifier maps a (type, value, issuer) triple to a canonical entity.
// IssuerID is the empty string for global identifier types so the unique
// constraint on (tenant_id, id_type, id_value, issuer_id) holds for both kinds.
type ProductIdentifier struct {
	ID         string         `json:"id" db:"id"`
	TenantID   string         `json:"tenant_id" db:"tenant_id"`
	IDType     IdentifierType `json:"id_type" db:"id_type"`
	IDValue    string         `json:"id_value" db:"id_value"`
	IssuerID   string         `json:"issuer_id" db:"issuer_id"`
	EntityType EntityType     `json:"entity_type" db:"entity_type"`
	EntityID   string         `json:"entity_id" db:"entity_id"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
