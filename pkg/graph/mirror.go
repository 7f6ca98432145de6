package graph

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// MasterGetter loads masters for mirroring
type MasterGetter interface {
	Get(ctx context.Context, tenantID string, id string) (*models.WineMaster, error)
}

// SkuGetter loads SKUs for mirroring
type SkuGetter interface {
	Get(ctx context.Context, tenantID string, id string) (*models.WineSku, error)
}

// Mirror loads entities from the relational store and pushes them into the
// graph. All callers treat mirroring as best-effort.
type Mirror struct {
	catalog *CatalogService
	masters MasterGetter
	skus    SkuGetter
	logger  ectologger.Logger
}

// NewMirror creates a new graph mirror
func NewMirror(catalog *CatalogService, masters MasterGetter, skus SkuGetter, logger ectologger.Logger) *Mirror {
	return &Mirror{
		catalog: catalog,
		masters: masters,
		skus:    skus,
		logger:  logger,
	}
}

// SyncEntity mirrors a master or SKU (and its owning master) into the graph
func (m *Mirror) SyncEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.SyncEntity")
	defer span.End()

	switch entityType {
	case models.EntityTypeMaster:
		master, err := m.masters.Get(ctx, tenantID, entityID)
		if err != nil {
			return err
		}
		return m.catalog.UpsertMaster(ctx, master)
	case models.EntityTypeSku:
		sku, err := m.skus.Get(ctx, tenantID, entityID)
		if err != nil {
			return err
		}
		master, err := m.masters.Get(ctx, tenantID, sku.MasterProductID)
		if err != nil {
			return err
		}
		if err := m.catalog.UpsertMaster(ctx, master); err != nil {
			return err
		}
		return m.catalog.UpsertSku(ctx, sku)
	}
	return nil
}

// SyncMapping mirrors a supplier mapping edge into the graph
func (m *Mirror) SyncMapping(ctx context.Context, mapping *models.SupplierProductMapping) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Mirror.SyncMapping")
	defer span.End()

	return m.catalog.UpsertSupplierMapping(ctx, mapping)
}
