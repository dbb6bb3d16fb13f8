package citations

import "encoding/json"

// SearchResult is one retrieved passage from the similarity search service.
// It is ephemeral: produced per search call and consumed immediately by the
// extractor or the replay stage, never persisted as-is.
type SearchResult struct {
	DocumentID   string  `json:"documentId"`
	DocumentName string  `json:"documentName"`
	ChunkID      string  `json:"chunkId"`
	Content      string  `json:"content"`
	Similarity   float64 `json:"similarity"`
}

// Entry is one validated citation: the document a citation number resolves to.
// DocumentExists and Error are populated only by the enrichment layer, never
// by the extractor.
type Entry struct {
	DocumentID     string `json:"documentId"`
	DocumentName   string `json:"documentName"`
	DocumentExists *bool  `json:"documentExists,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Map is the canonical citation map persisted alongside an assistant message:
// citation number (string key, "1"-based, contiguous) to entry. An empty map
// means "computed, zero citations"; a nil map means "not yet computed".
type Map map[string]Entry

// LookupEntry is the reverse-lookup value for a document name.
type LookupEntry struct {
	CitationNumber int
	DocumentID     string
}

// Lookup is the derived, in-memory-only name -> {number, documentID} index
// built from a Map for O(1) resolution during markdown rewriting.
type Lookup map[string]LookupEntry

// Marshal serializes the map for persistence. A non-nil empty map round-trips
// as {} so the stored value stays distinguishable from an absent one.
func (m Map) Marshal() ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}
