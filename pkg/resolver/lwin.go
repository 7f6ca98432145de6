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

const maxSkuCandidates = 5

// lwinStrategy matches on LWIN codes. An LWIN usually names a master; when
// the input also carries vintage and bottle size the strategy tries to narrow
// the hit to the exact child SKU.
type lwinStrategy struct {
	identifiers IdentifierStore
	skus        SkuStore
	creator     *entityCreator
	autoCreate  bool
	logger      ectologger.Logger
}

func (s *lwinStrategy) Name() string {
	return "lwin_exact"
}

func (s *lwinStrategy) Resolve(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.lwinStrategy.Resolve")
	defer span.End()

	if in.Identifiers == nil || in.Identifiers.LWIN == nil {
		return nil, nil
	}
	lwin := normalizers.NormalizeIdentifier(*in.Identifiers.LWIN)
	if lwin == "" {
		return nil, nil
	}

	var vintage, bottleML *int
	if in.TextFallback != nil {
		vintage = in.TextFallback.Vintage
		bottleML = in.TextFallback.BottleML
	}
	hasVariant := vintage != nil && bottleML != nil

	ident, err := s.identifiers.Lookup(ctx, in.TenantID, models.IdentifierTypeLWIN, lwin, "")
	if err != nil {
		return nil, err
	}

	if ident != nil {
		return s.resolveRegistered(ctx, in, lwin, ident, vintage, bottleML, hasVariant)
	}

	if !s.autoCreate {
		return nil, nil
	}

	created, err := s.creator.create(ctx, in, models.IdentifierTypeLWIN, lwin, hasVariant)
	if err != nil {
		return nil, err
	}
	if created.conflict {
		ident, err = s.identifiers.Lookup(ctx, in.TenantID, models.IdentifierTypeLWIN, lwin, "")
		if err != nil {
			return nil, err
		}
		if ident == nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "identifier conflict but no registration found")
		}
		return s.resolveRegistered(ctx, in, lwin, ident, vintage, bottleML, hasVariant)
	}

	return &models.MatchProductOutput{
		Status:            models.MatchStatusAutoMatchWithGuards,
		Confidence:        1.0,
		MatchMethod:       models.MatchMethodLWINExact,
		MatchedEntityType: &created.targetType,
		MatchedEntityID:   &created.targetID,
		Explanation:       fmt.Sprintf("LWIN %s not registered, auto-created entity", lwin),
	}, nil
}

// resolveRegistered maps a registered LWIN to its exact entity, narrowing a
// master hit to a child SKU when the input carries vintage and bottle size.
func (s *lwinStrategy) resolveRegistered(ctx context.Context, in *models.MatchProductInput, lwin string, ident *models.ProductIdentifier, vintage, bottleML *int, hasVariant bool) (*models.MatchProductOutput, error) {
	if ident.EntityType == models.EntityTypeSku || !hasVariant {
		return &models.MatchProductOutput{
			Status:            models.MatchStatusAutoMatch,
			Confidence:        1.0,
			MatchMethod:       models.MatchMethodLWINExact,
			MatchedEntityType: &ident.EntityType,
			MatchedEntityID:   &ident.EntityID,
			Explanation:       fmt.Sprintf("LWIN %s matched registered %s", lwin, ident.EntityType),
		}, nil
	}

	sku, err := s.skus.FindByMasterVintageBottle(ctx, in.TenantID, ident.EntityID, vintage, bottleML)
	if err != nil {
		return nil, err
	}
	if sku != nil {
		skuType := models.EntityTypeSku
		return &models.MatchProductOutput{
			Status:            models.MatchStatusAutoMatch,
			Confidence:        1.0,
			MatchMethod:       models.MatchMethodLWINExact,
			MatchedEntityType: &skuType,
			MatchedEntityID:   &sku.ID,
			Explanation:       fmt.Sprintf("LWIN %s narrowed to sku with matching vintage and bottle size", lwin),
		}, nil
	}

	// The master is known but the exact variant is not. Surface the master's
	// SKUs as disambiguation hints for the reviewer.
	siblings, err := s.skus.ListByMaster(ctx, in.TenantID, ident.EntityID, maxSkuCandidates)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.MatchCandidate, 0, len(siblings))
	for _, sib := range siblings {
		reason := "sku of LWIN master"
		if sib.Vintage != nil {
			reason = fmt.Sprintf("sku of LWIN master, vintage %d", *sib.Vintage)
		}
		candidates = append(candidates, models.MatchCandidate{
			EntityType: models.EntityTypeSku,
			EntityID:   sib.ID,
			Score:      0.8,
			Reason:     reason,
		})
	}

	masterType := models.EntityTypeMaster
	return &models.MatchProductOutput{
		Status:            models.MatchStatusSuggested,
		Confidence:        0.8,
		MatchMethod:       models.MatchMethodLWINExact,
		MatchedEntityType: &masterType,
		MatchedEntityID:   &ident.EntityID,
		Explanation:       fmt.Sprintf("LWIN %s matched master but no sku has the supplied vintage and bottle size", lwin),
		Candidates:        candidates,
	}, nil
}
