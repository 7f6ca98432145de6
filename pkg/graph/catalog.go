package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// CatalogService mirrors catalog entities into the graph. Nodes: Master, Sku,
// Supplier. Edges: (Sku)-[:VARIANT_OF]->(Master), (Supplier)-[:MAPS_TO]->
// (Master|Family). Mirroring is best-effort; PostgreSQL stays the source of
// truth and readers fall back to it.
type CatalogService struct {
	client *Client
	logger ectologger.Logger
}

// NewCatalogService creates a new catalog graph service
func NewCatalogService(client *Client, logger ectologger.Logger) *CatalogService {
	return &CatalogService{
		client: client,
		logger: logger,
	}
}

// UpsertMaster creates or updates a master node
func (s *CatalogService) UpsertMaster(ctx context.Context, master *models.WineMaster) error {
	ctx, span := tracing.StartSpan(ctx, "graph.CatalogService.UpsertMaster")
	defer span.End()

	props := map[string]any{
		"id":             master.ID,
		"tenant_id":      master.TenantID,
		"canonical_name": master.CanonicalName,
	}
	if master.Producer != nil {
		props["producer"] = *master.Producer
	}
	if master.Region != nil {
		props["region"] = *master.Region
	}
	if master.Country != nil {
		props["country"] = *master.Country
	}

	cypher := `
		MERGE (m:Master {id: $id, tenant_id: $tenant_id})
		SET m += $props
	`
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":        master.ID,
			"tenant_id": master.TenantID,
			"props":     props,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"master_id": master.ID}).Error("Failed to upsert master node")
		return err
	}
	return nil
}

// UpsertSku creates or updates a SKU node and its VARIANT_OF edge
func (s *CatalogService) UpsertSku(ctx context.Context, sku *models.WineSku) error {
	ctx, span := tracing.StartSpan(ctx, "graph.CatalogService.UpsertSku")
	defer span.End()

	props := map[string]any{
		"id":        sku.ID,
		"tenant_id": sku.TenantID,
	}
	if sku.Vintage != nil {
		props["vintage"] = *sku.Vintage
	}
	if sku.BottleML != nil {
		props["bottle_ml"] = *sku.BottleML
	}

	cypher := `
		MERGE (k:Sku {id: $id, tenant_id: $tenant_id})
		SET k += $props
		WITH k
		MATCH (m:Master {id: $master_id, tenant_id: $tenant_id})
		MERGE (k)-[:VARIANT_OF]->(m)
	`
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"id":        sku.ID,
			"tenant_id": sku.TenantID,
			"master_id": sku.MasterProductID,
			"props":     props,
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"sku_id": sku.ID}).Error("Failed to upsert sku node")
		return err
	}
	return nil
}

// UpsertSupplierMapping creates or updates a supplier's MAPS_TO edge
func (s *CatalogService) UpsertSupplierMapping(ctx context.Context, m *models.SupplierProductMapping) error {
	ctx, span := tracing.StartSpan(ctx, "graph.CatalogService.UpsertSupplierMapping")
	defer span.End()

	targetLabel := "Master"
	var targetID string
	switch {
	case m.MasterProductID != nil:
		targetID = *m.MasterProductID
	case m.ProductFamilyID != nil:
		targetLabel = "Family"
		targetID = *m.ProductFamilyID
	default:
		return nil
	}

	cypher := `
		MERGE (s:Supplier {id: $supplier_id, tenant_id: $tenant_id})
		MERGE (t:` + targetLabel + ` {id: $target_id, tenant_id: $tenant_id})
		MERGE (s)-[r:MAPS_TO {supplier_sku: $supplier_sku}]->(t)
		SET r.confidence = $confidence, r.method = $method
	`
	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{
			"supplier_id":  m.SupplierID,
			"tenant_id":    m.TenantID,
			"target_id":    targetID,
			"supplier_sku": m.SupplierSku,
			"confidence":   m.Confidence,
			"method":       string(m.Method),
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"supplier_id": m.SupplierID}).Error("Failed to upsert supplier mapping edge")
		return err
	}
	return nil
}

// ProductView is the graph-side view of a master and its variants
type ProductView struct {
	Master   map[string]any   `json:"master"`
	Variants []map[string]any `json:"variants"`
}

// GetProduct reads a master and its SKUs from the graph. Returns nil without
// error when the master node is absent (caller falls back to PostgreSQL).
func (s *CatalogService) GetProduct(ctx context.Context, tenantID string, masterID string) (*ProductView, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.CatalogService.GetProduct")
	defer span.End()

	cypher := `
		MATCH (m:Master {id: $id, tenant_id: $tenant_id})
		OPTIONAL MATCH (k:Sku)-[:VARIANT_OF]->(m)
		RETURN m, collect(k) AS variants
	`
	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{
			"id":        masterID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return record, nil
	})
	if err != nil {
		// Single() errors when the node is absent; treat as a miss.
		return nil, nil
	}

	record, ok := result.(*neo4j.Record)
	if !ok {
		return nil, nil
	}

	view := &ProductView{Variants: []map[string]any{}}
	if node, ok := record.Values[0].(neo4j.Node); ok {
		view.Master = node.Props
	}
	if raw, ok := record.Values[1].([]any); ok {
		for _, v := range raw {
			if node, ok := v.(neo4j.Node); ok {
				view.Variants = append(view.Variants, node.Props)
			}
		}
	}

	return view, nil
}
