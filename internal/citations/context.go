package citations

import (
	"sort"
	"strings"
	"sync"

	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// StaleDocumentMessage is the user-facing error attached to citations whose
// document has been removed from the study since the message was generated.
const StaleDocumentMessage = "Document has been deleted or is no longer accessible"

// Status is the per-citation validity produced by enrichment against the live
// document set.
type Status struct {
	IsValid        bool   `json:"isValid"`
	DocumentExists bool   `json:"documentExists"`
	Error          string `json:"error,omitempty"`
}

// Enricher derives per-citation validity from a persisted citation map and
// the current document snapshot for the owning study.
//
// While the snapshot is still loading every citation is reported valid: a
// brief false positive beats flashing "document missing" on every page load
// before data arrives. Once the snapshot is ready the result is
// authoritative.
//
// Enrich is memoized on a structural fingerprint of its inputs, so calling it
// again with equal (even re-created) inputs returns the same map reference.
// UI layers rely on that stability to skip re-renders.
type Enricher struct {
	mu     sync.Mutex
	key    string
	cached map[string]Status
}

// Enrich returns the validity status for every citation in m.
func (e *Enricher) Enrich(m Map, snap documents.Snapshot) map[string]Status {
	key := fingerprint(m, snap)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cached != nil && key == e.key {
		metrics.CitationEnrichments.WithLabelValues("memoized").Inc()
		return e.cached
	}

	out := make(map[string]Status, len(m))
	for number, entry := range m {
		if snap.State == documents.StateLoading {
			out[number] = Status{IsValid: true, DocumentExists: true}
			continue
		}
		if snap.Has(entry.DocumentID) {
			out[number] = Status{IsValid: true, DocumentExists: true}
		} else {
			out[number] = Status{IsValid: false, DocumentExists: false, Error: StaleDocumentMessage}
			metrics.StaleCitationsDetected.Inc()
		}
	}

	metrics.CitationEnrichments.WithLabelValues("computed").Inc()
	e.key = key
	e.cached = out
	return out
}

// DocumentExists applies the same loading-optimistic policy to a single
// document ID: true while the snapshot is loading, accurate once ready.
func DocumentExists(documentID string, snap documents.Snapshot) bool {
	if snap.State == documents.StateLoading {
		return true
	}
	return snap.Has(documentID)
}

// fingerprint builds a deterministic structural key for (map, snapshot) so
// that re-created but equal inputs memoize to the same derivation.
func fingerprint(m Map, snap documents.Snapshot) string {
	var b strings.Builder
	b.WriteString(snap.State.String())
	b.WriteByte('|')
	b.WriteString(snap.StudyID)
	b.WriteByte('|')

	ids := make([]string, 0, len(snap.Documents))
	for _, d := range snap.Documents {
		ids = append(ids, d.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte(',')
	}
	b.WriteByte('|')

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k].DocumentID)
		b.WriteByte(';')
	}
	return b.String()
}
