package citations

import (
	"reflect"
	"strconv"
	"sync"
)

// BuildLookup derives the name -> {number, documentID} reverse index from a
// citation map: one entry per unique document name.
func BuildLookup(m Map) Lookup {
	lk := make(Lookup, len(m))
	for key, entry := range m {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 {
			continue
		}
		lk[entry.DocumentName] = LookupEntry{CitationNumber: n, DocumentID: entry.DocumentID}
	}
	return lk
}

// LookupBuilder memoizes BuildLookup on map identity: calling For with the
// same map value returns the previously built lookup, a different map rebuilds
// it. Renderers lean on that stability to skip re-deriving per render tick.
type LookupBuilder struct {
	mu     sync.Mutex
	last   uintptr
	cached Lookup
}

// For returns the lookup for m, reusing the cached one when m is the same map
// reference as the previous call.
func (b *LookupBuilder) For(m Map) Lookup {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Maps are not comparable; their header pointer is a stable identity.
	var id uintptr
	if m != nil {
		id = reflect.ValueOf(m).Pointer()
	}
	if b.cached != nil && id == b.last {
		return b.cached
	}
	b.cached = BuildLookup(m)
	b.last = id
	return b.cached
}
