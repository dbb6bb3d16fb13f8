package citations

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// ValidateMap checks the structure of a persisted citation map before it is
// trusted: keys must be the contiguous sequence "1".."N" and every entry must
// carry a document ID and name. An empty map is valid (zero citations). On
// failure the caller should fall back to an empty map rather than crash a
// render path.
func ValidateMap(m Map) error {
	for i := 1; i <= len(m); i++ {
		key := strconv.Itoa(i)
		entry, ok := m[key]
		if !ok {
			return fmt.Errorf("citation map: missing key %q (have %d entries)", key, len(m))
		}
		if entry.DocumentID == "" {
			return fmt.Errorf("citation map: entry %q has no document id", key)
		}
		if entry.DocumentName == "" {
			return fmt.Errorf("citation map: entry %q has no document name", key)
		}
	}
	return nil
}

// DecodeMap parses a stored citation map, preserving the absent-vs-empty
// distinction: nil input means "not yet computed" and decodes to a nil map,
// while "{}" decodes to an empty one. Structurally invalid payloads are
// counted and returned as an empty map with the error, so callers can log and
// keep rendering.
func DecodeMap(raw []byte) (Map, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m Map
	if err := json.Unmarshal(raw, &m); err != nil {
		metrics.CitationMapsInvalid.Inc()
		return Map{}, fmt.Errorf("decode citation map: %w", err)
	}
	if m == nil {
		m = Map{}
	}
	if err := ValidateMap(m); err != nil {
		metrics.CitationMapsInvalid.Inc()
		return Map{}, err
	}
	return m, nil
}
