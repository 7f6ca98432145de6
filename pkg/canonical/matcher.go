package canonical

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/models"
	"github.com/Ramsey-B/vine/pkg/normalizers"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

const (
	baseScore          = 0.5
	nameExactBonus     = 0.30
	nameContainsBonus  = 0.15
	producerExactBonus = 0.20
	producerPartBonus  = 0.10
	regionExactBonus   = 0.10

	autoMatchThreshold = 0.9
	secondaryAdvisory  = 0.7
	suggestedAdvisory  = 0.6
)

// MasterSearchStore is the catalog lookup the matcher consumes
type MasterSearchStore interface {
	Search(ctx context.Context, tenantID string, nameFragment string, producer string, limit int) ([]models.WineMaster, error)
	ListByNormalizedName(ctx context.Context, tenantID string, normalizedName string, limit int) ([]models.WineMaster, error)
}

// Matcher scores canonicalized names against catalog masters. It never
// creates entities; at best it auto-matches an existing master, at worst it
// defers to human review.
type Matcher struct {
	client        Canonicalizer
	masters       MasterSearchStore
	logger        ectologger.Logger
	maxCandidates int
	maxVirtual    int
}

// NewMatcher creates a canonical text matcher
func NewMatcher(client Canonicalizer, masters MasterSearchStore, maxCandidates, maxVirtual int, logger ectologger.Logger) *Matcher {
	if maxCandidates < 1 {
		maxCandidates = 5
	}
	if maxVirtual < 1 {
		maxVirtual = 3
	}
	return &Matcher{
		client:        client,
		masters:       masters,
		logger:        logger,
		maxCandidates: maxCandidates,
		maxVirtual:    maxVirtual,
	}
}

// Match runs the text fallback. Any canonicalization failure degrades to
// PENDING_REVIEW so the record is deferred, never dropped.
func (m *Matcher) Match(ctx context.Context, in *models.MatchProductInput) (*models.MatchProductOutput, error) {
	ctx, span := tracing.StartSpan(ctx, "canonical.Matcher.Match")
	defer span.End()

	tf := in.TextFallback
	if tf == nil || tf.Name == nil || *tf.Name == "" {
		return pendingReview("no hard identifier resolved and no text fallback name supplied"), nil
	}

	result, err := m.client.Canonicalize(ctx, *tf.Name, tf.Vintage)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Canonicalization call failed, deferring to review")
		return pendingReview("canonicalization service unavailable"), nil
	}
	if result == nil {
		return pendingReview(fmt.Sprintf("canonicalization found no match for %q", *tf.Name)), nil
	}

	masters, err := m.candidatePool(ctx, in.TenantID, result.CanonicalName)
	if err != nil {
		return nil, err
	}

	if len(masters) == 0 {
		return m.virtualSuggestion(result), nil
	}

	return m.scoreCatalogCandidates(result, masters), nil
}

// candidatePool merges the exact normalized-name lookup with the fragment
// search, deduped by master id. The exact pass catches catalog names whose
// punctuation defeats the ILIKE fragment match.
func (m *Matcher) candidatePool(ctx context.Context, tenantID string, canonicalName string) ([]models.WineMaster, error) {
	exact, err := m.masters.ListByNormalizedName(ctx, tenantID, normalizers.NormalizeName(canonicalName), m.maxCandidates)
	if err != nil {
		return nil, err
	}

	fuzzy, err := m.masters.Search(ctx, tenantID, canonicalName, "", m.maxCandidates)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(exact))
	masters := make([]models.WineMaster, 0, len(exact)+len(fuzzy))
	for _, lists := range [][]models.WineMaster{exact, fuzzy} {
		for _, master := range lists {
			if seen[master.ID] {
				continue
			}
			seen[master.ID] = true
			masters = append(masters, master)
		}
	}
	if len(masters) > m.maxCandidates {
		masters = masters[:m.maxCandidates]
	}
	return masters, nil
}

// virtualSuggestion reports canonical-side candidates that are not in the
// catalog. No entity is ever created here, regardless of confidence.
func (m *Matcher) virtualSuggestion(result *Result) *models.MatchProductOutput {
	confidence := clamp01(result.MatchScore)

	virtual := result.Candidates
	if len(virtual) > m.maxVirtual {
		virtual = virtual[:m.maxVirtual]
	}
	candidates := make([]models.MatchCandidate, 0, len(virtual))
	for _, v := range virtual {
		candidates = append(candidates, models.MatchCandidate{
			EntityType: models.EntityTypeMaster,
			EntityID:   "",
			Score:      clamp01(v.Score),
			Reason:     fmt.Sprintf("canonical candidate %q (not in catalog)", v.Name),
		})
	}

	return &models.MatchProductOutput{
		Status:      models.MatchStatusSuggested,
		Confidence:  confidence,
		MatchMethod: models.MatchMethodCanonicalSuggest,
		Explanation: fmt.Sprintf("canonical name %q has no catalog master", result.CanonicalName),
		Candidates:  candidates,
	}
}

func (m *Matcher) scoreCatalogCandidates(result *Result, masters []models.WineMaster) *models.MatchProductOutput {
	type scored struct {
		master models.WineMaster
		score  float64
	}
	scores := make([]scored, 0, len(masters))
	for _, master := range masters {
		scores = append(scores, scored{master: master, score: m.score(result, &master)})
	}
	top := scores[0]
	for _, s := range scores[1:] {
		if s.score > top.score {
			top = s
		}
	}

	masterType := models.EntityTypeMaster
	if top.score >= autoMatchThreshold {
		candidates := make([]models.MatchCandidate, 0, len(scores)-1)
		for _, s := range scores {
			if s.master.ID == top.master.ID {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				EntityType: models.EntityTypeMaster,
				EntityID:   s.master.ID,
				Score:      secondaryAdvisory,
				Reason:     "secondary canonical suggestion",
			})
		}
		return &models.MatchProductOutput{
			Status:            models.MatchStatusAutoMatchWithGuards,
			Confidence:        top.score,
			MatchMethod:       models.MatchMethodCanonicalSuggest,
			MatchedEntityType: &masterType,
			MatchedEntityID:   &top.master.ID,
			Explanation:       fmt.Sprintf("canonical name %q scored %.2f against master %q", result.CanonicalName, top.score, top.master.CanonicalName),
			Candidates:        candidates,
		}
	}

	candidates := make([]models.MatchCandidate, 0, len(scores))
	for _, s := range scores {
		candidates = append(candidates, models.MatchCandidate{
			EntityType: models.EntityTypeMaster,
			EntityID:   s.master.ID,
			Score:      suggestedAdvisory,
			Reason:     fmt.Sprintf("canonical suggestion for %q", result.CanonicalName),
		})
	}
	return &models.MatchProductOutput{
		Status:            models.MatchStatusSuggested,
		Confidence:        top.score,
		MatchMethod:       models.MatchMethodCanonicalSuggest,
		MatchedEntityType: &masterType,
		MatchedEntityID:   &top.master.ID,
		Explanation:       fmt.Sprintf("canonical name %q best catalog score %.2f, below auto-match threshold", result.CanonicalName, top.score),
		Candidates:        candidates,
	}
}

// score applies the additive confidence model: 0.5 base, name exact +0.30 or
// containment +0.15, producer exact +0.20 or containment +0.10, region exact
// +0.10, capped at 1.0.
func (m *Matcher) score(result *Result, master *models.WineMaster) float64 {
	score := baseScore

	if normalizers.NamesEqual(master.CanonicalName, result.CanonicalName) {
		score += nameExactBonus
	} else if normalizers.NameContains(master.CanonicalName, result.CanonicalName) {
		score += nameContainsBonus
	}

	if result.Producer != "" && master.Producer != nil {
		if normalizers.NamesEqual(*master.Producer, result.Producer) {
			score += producerExactBonus
		} else if normalizers.NameContains(*master.Producer, result.Producer) {
			score += producerPartBonus
		}
	}

	if result.Region != "" && master.Region != nil && normalizers.NamesEqual(*master.Region, result.Region) {
		score += regionExactBonus
	}

	return clamp01(score)
}

func pendingReview(explanation string) *models.MatchProductOutput {
	return &models.MatchProductOutput{
		Status:      models.MatchStatusPendingReview,
		Confidence:  0,
		MatchMethod: models.MatchMethodNoMatch,
		Explanation: explanation,
		Candidates:  []models.MatchCandidate{},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
