package resolver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/normalizers"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// gtinStrategy matches on GTIN barcodes. Highest precedence: a GTIN names an
// exact packaged product, so a hit is always an auto-match at confidence 1.0.
type gtinStrategy struct {
	identifiers IdentifierStore
	creator     *entityCreator
	autoCreate  bool
	logger      ectologger.Logger
}

func (s *gtinStrategy) Name() string {
	return "gtin_exact"
}

func (s *gtinStrategy) Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.gtinStrategy.Resolve")
	defer span.End()

	if in.Identifiers == nil || in.Identifiers.GTIN == nil {
		return nil, nil
	}
	gtin := normalizers.DigitsOnly(*in.Identifiers.GTIN)
	if gtin == "" {
		return nil, nil
	}

	ident, err := s.identifiers.Lookup(ctx, in.TenantID, models.IdentifierTypeGTIN, gtin, "")
	if err != nil {
		return nil, err
	}
	if ident != nil {
		return &models.MatchProductOutput{
			Status:            models.MatchStatusAutoMatch,
			Confidence:        1.0,
			MatchMethod:       models.MatchMethodGTINExact,
			MatchedEntityType: &ident.EntityType,
			MatchedEntityID:   &ident.EntityID,
			Explanation:       fmt.Sprintf("GTIN %s matched registered %s", gtin, ident.EntityType),
		}, nil
	}

	if !s.autoCreate {
		return nil, nil
	}

	created, err := s.creator.create(ctx, in, models.IdentifierTypeGTIN, gtin, true)
	if err != nil {
		return nil, err
	}
	if created.conflict {
		// Another call registered this GTIN between our lookup and write.
		ident, err = s.identifiers.Lookup(ctx, in.TenantID, models.IdentifierTypeGTIN, gtin, "")
		if err != nil {
			return nil, err
		}
		if ident == nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "identifier conflict but no registration found")
		}
		return &models.MatchProductOutput{
			Status:            models.MatchStatusAutoMatch,
			Confidence:        1.0,
			MatchMethod:       models.MatchMethodGTINExact,
			MatchedEntityType: &ident.EntityType,
			MatchedEntityID:   &ident.EntityID,
			Explanation:       fmt.Sprintf("GTIN %s matched entity created by concurrent resolution", gtin),
		}, nil
	}

	return &models.MatchProductOutput{
		Status:            models.MatchStatusAutoMatchWithGuards,
		Confidence:        1.0,
		MatchMethod:       models.MatchMethodGTINExact,
		MatchedEntityType: &created.targetType,
		MatchedEntityID:   &created.targetID,
		Explanation:       fmt.Sprintf("GTIN %s not registered, auto-created master and sku", gtin),
	}, nil
}
