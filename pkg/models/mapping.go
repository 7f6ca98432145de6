package models

import (
	"time"

	"github.com/lib/pq"
)

// MappingMethod records how a supplier mapping was produced
type MappingMethod string

const (
	MappingMethodHumanReview       MappingMethod = "human_review"
	MappingMethodHumanReviewFamily MappingMethod = "human_review_family"
	MappingMethodCreateNewProduct  MappingMethod = "create_new_product"
	MappingMethodAutoResolution    MappingMethod = "auto_resolution"
)

// SupplierProductMapping links a supplier's SKU to a canonical master or a
// product family. Exactly one of MasterProductID/ProductFamilyID is set.
// Unique per (tenant_id, supplier_id, supplier_sku); a later decision for the
// same key overwrites the mapping (last write wins).
type SupplierProductMapping struct {
	ID              string         `json:"id" db:"id"`
	TenantID        string         `json:"tenant_id" db:"tenant_id"`
	SupplierID      string         `json:"supplier_id" db:"supplier_id"`
	SupplierSku     string         `json:"supplier_sku" db:"supplier_sku"`
	MasterProductID *string        `json:"master_product_id,omitempty" db:"master_product_id"`
	ProductFamilyID *string        `json:"product_family_id,omitempty" db:"product_family_id"`
	Confidence      float64        `json:"confidence" db:"confidence"`
	Method          MappingMethod  `json:"method" db:"method"`
	Reasons         pq.StringArray `json:"reasons,omitempty" db:"reasons"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}
