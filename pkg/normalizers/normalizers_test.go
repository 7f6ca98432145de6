package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Chateau Margaux", "chateau margaux"},
		{"strips punctuation", "Ch. Margaux, Premier Cru", "ch margaux premier cru"},
		{"collapses whitespace", "  Domaine   de  la   Romanee-Conti ", "domaine de la romanee conti"},
		{"keeps digits", "Opus One 2015", "opus one 2015"},
		{"empty input", "", ""},
		{"punctuation only", "---...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "3760049580013", DigitsOnly("3760049-58 0013"))
	assert.Equal(t, "1234567890123", DigitsOnly("1234567890123"))
	assert.Equal(t, "", DigitsOnly("no digits here"))
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "LWIN1012361", NormalizeIdentifier("  lwin1012361 "))
	assert.Equal(t, "SKU-42", NormalizeIdentifier("sku-42"))
}

func TestNamesEqual(t *testing.T) {
	assert.True(t, NamesEqual("Chateau Margaux", "chateau   margaux"))
	assert.True(t, NamesEqual("Ch. Margaux", "ch margaux"))
	assert.False(t, NamesEqual("Chateau Margaux", "Chateau Latour"))
	// two empty names never compare equal
	assert.False(t, NamesEqual("", ""))
	assert.False(t, NamesEqual("...", "---"))
}

func TestNameContains(t *testing.T) {
	assert.True(t, NameContains("Chateau Margaux Premier Grand Cru", "chateau margaux"))
	assert.False(t, NameContains("Chateau Margaux", "latour"))
	assert.False(t, NameContains("Chateau Margaux", ""))
}
