package models

import "time"

// WineMaster is the canonical producer-level wine identity, independent of
// vintage and packaging. Masters are only created through the hard-identifier
// auto-create path or an explicit "create new product" review decision.
type WineMaster struct {
	ID            string     `json:"id" db:"id"`
	TenantID      string     `json:"tenant_id" db:"tenant_id"`
	CanonicalName string     `json:"canonical_name" db:"canonical_name"`
	Producer      *string    `json:"producer,omitempty" db:"producer"`
	Country       *string    `json:"country,omitempty" db:"country"`
	Region        *string    `json:"region,omitempty" db:"region"`
	Appellation   *string    `json:"appellation,omitempty" db:"appellation"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// WineSku is a specific packaged variant of a master (vintage + bottle size).
// Owned by exactly one master.
type WineSku struct {
	ID              string     `json:"id" db:"id"`
	TenantID        string     `json:"tenant_id" db:"tenant_id"`
	MasterProductID string     `json:"master_product_id" db:"master_product_id"`
	Vintage         *int       `json:"vintage,omitempty" db:"vintage"`
	BottleML        *int       `json:"bottle_ml,omitempty" db:"bottle_ml"`
	Packaging       *string    `json:"packaging,omitempty" db:"packaging"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ProductFamily groups related masters (e.g. a producer's range) for
// family-level supplier mappings.
type ProductFamily struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EntityType discriminates what a product identifier points at
type EntityType string

const (
	EntityTypeMaster EntityType = "master"
	EntityTypeSku    EntityType = "sku"
)
