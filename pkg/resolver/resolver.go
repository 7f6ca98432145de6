// Package resolver implements the hierarchical identifier matching chain.
// Strategies run in strict order; the first non-nil result wins and later
// strategies are never attempted. A (nil, nil) return means "no claim" and
// the chain cascades to the next strategy.
package resolver

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Strategy resolves a product input against one identifier type
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error)
}

// IdentifierStore is the identifier persistence the strategies consume
type IdentifierStore interface {
	Lookup(ctx context.Context, tenantID string, idType models.IdentifierType, idValue string, issuerID string) (*models.ProductIdentifier, error)
	Register(ctx context.Context, ident *models.ProductIdentifier) (*models.ProductIdentifier, error)
}

// MasterStore is the master persistence the auto-create path consumes
type MasterStore interface {
	Create(ctx context.Context, master *models.WineMaster) (*models.WineMaster, error)
}

// SkuStore is the SKU persistence the strategies consume
type SkuStore interface {
	Create(ctx context.Context, sku *models.WineSku) (*models.WineSku, error)
	FindByMasterVintageBottle(ctx context.Context, tenantID string, masterID string, vintage *int, bottleML *int) (*models.WineSku, error)
	ListByMaster(ctx context.Context, tenantID string, masterID string, limit int) ([]models.WineSku, error)
}

// Chain runs strategies in order and stops at the first claim
type Chain struct {
	strategies []Strategy
	logger     ectologger.Logger
}

// NewChain builds the standard chain: GTIN, LWIN, producer SKU, importer SKU
func NewChain(identifiers IdentifierStore, masters MasterStore, skus SkuStore, autoCreate bool, logger ectologger.Logger) *Chain {
	creator := &entityCreator{
		identifiers: identifiers,
		masters:     masters,
		skus:        skus,
		logger:      logger,
	}

	return &Chain{
		strategies: []Strategy{
			&gtinStrategy{identifiers: identifiers, creator: creator, autoCreate: autoCreate, logger: logger},
			&lwinStrategy{identifiers: identifiers, skus: skus, creator: creator, autoCreate: autoCreate, logger: logger},
			&scopedSkuStrategy{
				name:        "producer_sku_exact",
				idType:      models.IdentifierTypeProducerSku,
				confidence:  0.95,
				identifiers: identifiers,
				logger:      logger,
			},
			&scopedSkuStrategy{
				name:        "importer_sku_exact",
				idType:      models.IdentifierTypeImporterSku,
				confidence:  0.90,
				identifiers: identifiers,
				logger:      logger,
			},
		},
		logger: logger,
	}
}

// Resolve runs the chain. Returns (nil, nil) when no strategy claims the
// input, letting the caller fall through to the canonical text matcher.
func (c *Chain) Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.Chain.Resolve")
	defer span.End()

	if in.Identifiers.Empty() {
		return nil, nil
	}

	for _, s := range c.strategies {
		out, err := s.Resolve(ctx, in)
		if err != nil {
			return nil, err
		}
		if out != nil {
			c.logger.WithContext(ctx).WithFields(map[string]any{
				"strategy": s.Name(),
				"status":   out.Status,
			}).Debug("Identifier strategy claimed input")
			return out, nil
		}
	}

	return nil, nil
}
