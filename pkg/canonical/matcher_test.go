package canonical

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/vine/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func strPtr(s string) *string { return &s }

type fakeCanonicalizer struct {
	result *Result
	err    error
}

func (f *fakeCanonicalizer) Canonicalize(ctx context.Context, name string, vintage *int) (*Result, error) {
	return f.result, f.err
}

type fakeMasterSearch struct {
	masters    []models.WineMaster
	normalized map[string][]models.WineMaster
	err        error
}

func (f *fakeMasterSearch) Search(ctx context.Context, tenantID string, nameFragment string, producer string, limit int) ([]models.WineMaster, error) {
	return f.masters, f.err
}

func (f *fakeMasterSearch) ListByNormalizedName(ctx context.Context, tenantID string, normalizedName string, limit int) ([]models.WineMaster, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.normalized[normalizedName], nil
}

func textInput(name string) *models.MatchProductInput {
	return &models.MatchProductInput{
		TenantID:     "tenant-1",
		Source:       models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-1"},
		TextFallback: &models.TextFallback{Name: strPtr(name)},
	}
}

func master(name, producer, region string) models.WineMaster {
	m := models.WineMaster{ID: uuid.NewString(), TenantID: "tenant-1", CanonicalName: name}
	if producer != "" {
		m.Producer = &producer
	}
	if region != "" {
		m.Region = &region
	}
	return m
}

func TestMatcher_Scoring(t *testing.T) {
	tests := []struct {
		name       string
		canonical  *Result
		master     models.WineMaster
		wantScore  float64
		wantStatus models.MatchStatus
	}{
		{
			name:       "exact name producer and region caps at 1.0",
			canonical:  &Result{CanonicalName: "Chateau Margaux", Producer: "Chateau Margaux SA", Region: "Margaux"},
			master:     master("Chateau Margaux", "Chateau Margaux SA", "Margaux"),
			wantScore:  1.0,
			wantStatus: models.MatchStatusAutoMatchWithGuards,
		},
		{
			name:       "exact name and producer",
			canonical:  &Result{CanonicalName: "Chateau Margaux", Producer: "Chateau Margaux SA"},
			master:     master("Chateau Margaux", "Chateau Margaux SA", ""),
			wantScore:  1.0,
			wantStatus: models.MatchStatusAutoMatchWithGuards,
		},
		{
			name:       "exact name only",
			canonical:  &Result{CanonicalName: "Chateau Margaux"},
			master:     master("Chateau Margaux", "", ""),
			wantScore:  0.8,
			wantStatus: models.MatchStatusSuggested,
		},
		{
			name:       "name containment and partial producer",
			canonical:  &Result{CanonicalName: "Margaux", Producer: "Chateau Margaux"},
			master:     master("Chateau Margaux Premier Cru", "Chateau Margaux Estates", ""),
			wantScore:  0.75,
			wantStatus: models.MatchStatusSuggested,
		},
		{
			name:       "exact name with region",
			canonical:  &Result{CanonicalName: "Chateau Margaux", Region: "Margaux"},
			master:     master("Chateau Margaux", "", "Margaux"),
			wantScore:  0.9,
			wantStatus: models.MatchStatusAutoMatchWithGuards,
		},
		{
			name:       "no overlap stays at base score",
			canonical:  &Result{CanonicalName: "Opus One"},
			master:     master("Chateau Margaux", "", ""),
			wantScore:  0.5,
			wantStatus: models.MatchStatusSuggested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewMatcher(&fakeCanonicalizer{result: tt.canonical}, &fakeMasterSearch{masters: []models.WineMaster{tt.master}}, 5, 3, testLogger())

			out, err := matcher.Match(context.Background(), textInput("some supplier text"))
			require.NoError(t, err)
			require.NotNil(t, out)

			assert.InDelta(t, tt.wantScore, out.Confidence, 0.0001)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, models.MatchMethodCanonicalSuggest, out.MatchMethod)
			require.NotNil(t, out.MatchedEntityID)
			assert.Equal(t, tt.master.ID, *out.MatchedEntityID)
		})
	}
}

func TestMatcher_AutoMatchKeepsSecondariesAsAdvisory(t *testing.T) {
	best := master("Chateau Margaux", "Chateau Margaux SA", "Margaux")
	other := master("Chateau Margaux Pavillon", "", "")
	matcher := NewMatcher(
		&fakeCanonicalizer{result: &Result{CanonicalName: "Chateau Margaux", Producer: "Chateau Margaux SA", Region: "Margaux"}},
		&fakeMasterSearch{masters: []models.WineMaster{other, best}},
		5, 3, testLogger(),
	)

	out, err := matcher.Match(context.Background(), textInput("chateau margaux"))
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusAutoMatchWithGuards, out.Status)
	assert.Equal(t, best.ID, *out.MatchedEntityID)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, other.ID, out.Candidates[0].EntityID)
	assert.Equal(t, 0.7, out.Candidates[0].Score)
}

func TestMatcher_SuggestedCandidatesCarryAdvisoryScore(t *testing.T) {
	a := master("Chateau Margaux", "", "")
	b := master("Chateau Latour", "", "")
	matcher := NewMatcher(
		&fakeCanonicalizer{result: &Result{CanonicalName: "Chateau Margaux"}},
		&fakeMasterSearch{masters: []models.WineMaster{a, b}},
		5, 3, testLogger(),
	)

	out, err := matcher.Match(context.Background(), textInput("ch margaux"))
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusSuggested, out.Status)
	require.Len(t, out.Candidates, 2)
	for _, c := range out.Candidates {
		assert.Equal(t, 0.6, c.Score)
	}
}

func TestMatcher_NormalizedLookupCatchesPunctuatedNames(t *testing.T) {
	// the catalog entry's apostrophe defeats the ILIKE fragment search; the
	// exact normalized-name pass still finds it
	entry := master("Chateau d'Yquem", "", "")
	matcher := NewMatcher(
		&fakeCanonicalizer{result: &Result{CanonicalName: "Chateau d Yquem"}},
		&fakeMasterSearch{normalized: map[string][]models.WineMaster{
			"chateau d yquem": {entry},
		}},
		5, 3, testLogger(),
	)

	out, err := matcher.Match(context.Background(), textInput("CH D'YQUEM SAUTERNES"))
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, models.MatchStatusSuggested, out.Status)
	require.NotNil(t, out.MatchedEntityID)
	assert.Equal(t, entry.ID, *out.MatchedEntityID)
	assert.InDelta(t, 0.8, out.Confidence, 0.0001)
}

func TestMatcher_CandidatePoolDedupes(t *testing.T) {
	shared := master("Chateau Margaux", "", "")
	matcher := NewMatcher(
		&fakeCanonicalizer{result: &Result{CanonicalName: "Chateau Margaux"}},
		&fakeMasterSearch{
			masters: []models.WineMaster{shared},
			normalized: map[string][]models.WineMaster{
				"chateau margaux": {shared},
			},
		},
		5, 3, testLogger(),
	)

	out, err := matcher.Match(context.Background(), textInput("chateau margaux"))
	require.NoError(t, err)
	require.NotNil(t, out)

	// the master found by both passes is scored once
	assert.Equal(t, shared.ID, *out.MatchedEntityID)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, shared.ID, out.Candidates[0].EntityID)
}

func TestMatcher_VirtualCandidatesWhenCatalogEmpty(t *testing.T) {
	result := &Result{
		CanonicalName: "Chateau Margaux",
		MatchScore:    0.85,
		Candidates: []Candidate{
			{Name: "Chateau Margaux", Score: 0.85},
			{Name: "Chateau Margaux Pavillon", Score: 0.7},
			{Name: "Margaux du Chateau", Score: 0.6},
			{Name: "Marquis de Margaux", Score: 0.5},
		},
	}
	matcher := NewMatcher(&fakeCanonicalizer{result: result}, &fakeMasterSearch{}, 5, 3, testLogger())

	out, err := matcher.Match(context.Background(), textInput("chateau margaux"))
	require.NoError(t, err)
	require.NotNil(t, out)

	// high canonical score still never auto-matches a product we do not have
	assert.Equal(t, models.MatchStatusSuggested, out.Status)
	assert.Equal(t, 0.85, out.Confidence)
	assert.Nil(t, out.MatchedEntityID)
	require.Len(t, out.Candidates, 3)
	for _, c := range out.Candidates {
		assert.Empty(t, c.EntityID)
	}
}

func TestMatcher_FailsOpenToReview(t *testing.T) {
	t.Run("canonicalization error", func(t *testing.T) {
		matcher := NewMatcher(&fakeCanonicalizer{err: errors.New("connection refused")}, &fakeMasterSearch{}, 5, 3, testLogger())

		out, err := matcher.Match(context.Background(), textInput("chateau margaux"))
		require.NoError(t, err)
		require.NotNil(t, out)

		assert.Equal(t, models.MatchStatusPendingReview, out.Status)
		assert.Equal(t, 0.0, out.Confidence)
		assert.Equal(t, models.MatchMethodNoMatch, out.MatchMethod)
		assert.Empty(t, out.Candidates)
	})

	t.Run("canonicalization no match", func(t *testing.T) {
		matcher := NewMatcher(&fakeCanonicalizer{}, &fakeMasterSearch{}, 5, 3, testLogger())

		out, err := matcher.Match(context.Background(), textInput("completely unknown"))
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, models.MatchStatusPendingReview, out.Status)
	})

	t.Run("no text fallback name", func(t *testing.T) {
		matcher := NewMatcher(&fakeCanonicalizer{}, &fakeMasterSearch{}, 5, 3, testLogger())

		out, err := matcher.Match(context.Background(), &models.MatchProductInput{
			TenantID: "tenant-1",
			Source:   models.SourceRef{SourceType: models.SourceTypeSupplierImportRow, SourceID: "row-1"},
		})
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, models.MatchStatusPendingReview, out.Status)
	})
}
