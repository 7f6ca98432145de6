package resolver

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/normalizers"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// scopedSkuStrategy matches producer/importer SKUs. These are only unique
// within the issuing party, so the lookup is scoped by issuer and the match
// carries a fixed sub-1.0 confidence. Scoped SKUs never auto-create.
type scopedSkuStrategy struct {
	name        string
	idType      models.IdentifierType
	confidence  float64
	identifiers IdentifierStore
	logger      ectologger.Logger
}

func (s *scopedSkuStrategy) Name() string {
	return s.name
}

func (s *scopedSkuStrategy) Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.scopedSkuStrategy.Resolve")
	defer span.End()

	value, issuer := s.inputs(in)
	if value == "" || issuer == "" {
		return nil, nil
	}

	ident, err := s.identifiers.Lookup(ctx, in.TenantID, s.idType, normalizers.NormalizeIdentifier(value), issuer)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, nil
	}

	return &models.MatchProductOutput{
		Status:            models.MatchStatusAutoMatchWithGuards,
		Confidence:        s.confidence,
		MatchMethod:       models.MatchMethodSkuExact,
		MatchedEntityType: &ident.EntityType,
		MatchedEntityID:   &ident.EntityID,
		Explanation:       fmt.Sprintf("%s matched for issuer %s", s.idType, issuer),
	}, nil
}

func (s *scopedSkuStrategy) inputs(in *models.MatchProductInput) (value string, issuer string) {
	ids := in.Identifiers
	if ids == nil {
		return "", ""
	}
	switch s.idType {
	case models.IdentifierTypeProducerSku:
		if ids.ProducerSku != nil && ids.ProducerID != nil {
			return *ids.ProducerSku, *ids.ProducerID
		}
	case models.IdentifierTypeImporterSku:
		if ids.ImporterSku != nil && ids.ImporterID != nil {
			return *ids.ImporterSku, *ids.ImporterID
		}
	}
	return "", ""
}
