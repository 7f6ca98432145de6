package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/vine/pkg/models"
)

func TestOutputGuard_CleanOutputPasses(t *testing.T) {
	guard := NewOutputGuard()
	entityType := models.EntityTypeMaster
	entityID := "master-1"

	err := guard.Check(&models.MatchProductOutput{
		Status:            models.MatchStatusAutoMatch,
		Confidence:        1.0,
		MatchMethod:       models.MatchMethodGTINExact,
		MatchedEntityType: &entityType,
		MatchedEntityID:   &entityID,
		Explanation:       "GTIN matched registered master",
		Candidates: []models.MatchCandidate{
			{EntityType: models.EntityTypeMaster, EntityID: "master-2", Score: 0.7, Reason: "secondary"},
		},
	})
	assert.NoError(t, err)
}

func TestOutputGuard_ForbiddenKeys(t *testing.T) {
	guard := NewOutputGuard()

	tests := []struct {
		name    string
		payload any
	}{
		{"price key", map[string]any{"status": "AUTO_MATCH", "price": 12.5}},
		{"prefixed price key", map[string]any{"list_price_eur": 12.5}},
		{"currency key", map[string]any{"currency": "EUR"}},
		{"market value key", map[string]any{"market_value": 100}},
		{"uppercase key", map[string]any{"Currency": "EUR"}},
		{"nested key", map[string]any{"result": map[string]any{"pricing": map[string]any{"amount": 1}}}},
		{"key inside array element", map[string]any{"candidates": []any{map[string]any{"price_hint": 3}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(tt.payload)
			require.Error(t, err)
		})
	}
}

func TestOutputGuard_ValuesAreNotKeys(t *testing.T) {
	guard := NewOutputGuard()

	// forbidden terms appearing in values are fine; only field names matter
	err := guard.Check(map[string]any{
		"explanation": "supplier file mentioned a price column that was ignored",
		"note":        "currency conversion is out of scope",
	})
	assert.NoError(t, err)
}
