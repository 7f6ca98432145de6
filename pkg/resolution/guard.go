package resolution

import (
	"encoding/json"
	"fmt"
	"strings"
)

// forbiddenTerms are field-name fragments that must never appear in a
// serialized resolution response. The typed MatchProductOutput already
// excludes them structurally; the scan is a defense-in-depth assertion at the
// boundary.
var forbiddenTerms = []string{
	"price",
	"pricing",
	"currency",
	"market_value",
	"marketvalue",
}

// OutputGuard scans outgoing payloads for forbidden field names
type OutputGuard struct {
	terms []string
}

// NewOutputGuard creates a guard with the standard forbidden term list
func NewOutputGuard() *OutputGuard {
	return &OutputGuard{terms: forbiddenTerms}
}

// Check serializes the payload and fails when any forbidden term appears as a
// JSON key. A violation means the response must not be sent.
func (g *OutputGuard) Check(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload for guard check: %w", err)
	}

	keys := map[string]struct{}{}
	collectKeys(data, keys)

	for key := range keys {
		lower := strings.ToLower(key)
		for _, term := range g.terms {
			if strings.Contains(lower, term) {
				return fmt.Errorf("forbidden field %q in outgoing payload", key)
			}
		}
	}
	return nil
}

// collectKeys walks the JSON structure gathering every object key
func collectKeys(data []byte, keys map[string]struct{}) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return
	}
	walkKeys(value, keys)
}

func walkKeys(value any, keys map[string]struct{}) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			keys[key] = struct{}{}
			walkKeys(child, keys)
		}
	case []any:
		for _, child := range v {
			walkKeys(child, keys)
		}
	}
}
