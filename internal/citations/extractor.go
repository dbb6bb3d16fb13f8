package citations

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// markerPattern matches inline citation markers of the form ^[Document Name].
// The document name is everything between the brackets; it may not contain a
// closing bracket. Compiled once at package level for performance.
var markerPattern = regexp.MustCompile(`\^\[([^\]]+)\]`)

// newNameCollator returns a locale-aware, case-insensitive collator for
// citation ordering. Collators carry internal buffers and are not safe for
// concurrent use, so each extraction builds its own.
func newNameCollator() *collate.Collator {
	return collate.New(language.English, collate.Loose)
}

// ExtractCitations scans generated answer text for inline ^[Name] markers,
// validates each against the retrieved search results, and assigns
// deterministic sequential numbers.
//
// Markers naming a document absent from the search results are dropped
// silently: every number in the returned map corresponds to a document that
// was genuinely retrieved for this answer. Surviving names are numbered in
// collated (case-insensitive) alphabetical order rather than text order, so
// numbering is a pure function of which documents were cited. Collator ties
// (e.g. names differing only by case) are broken by document ID, then by the
// raw name, to keep the order total.
//
// Content with no markers, or no markers that validate, yields an empty
// non-nil map: "computed, zero citations" is a valid terminal state.
func ExtractCitations(content string, results []SearchResult) Map {
	out := make(Map)
	if content == "" {
		return out
	}

	// Index results by display name; last write wins on duplicates
	// (passage dedup happens upstream).
	byName := make(map[string]SearchResult, len(results))
	for _, r := range results {
		byName[r.DocumentName] = r
	}

	seen := make(map[string]struct{})
	var cited []SearchResult
	for _, m := range markerPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		hit, ok := byName[name]
		if !ok {
			// Hallucination rejection: a filter, not an error.
			metrics.CitationsDropped.Inc()
			continue
		}
		cited = append(cited, hit)
	}

	col := newNameCollator()
	sort.Slice(cited, func(i, j int) bool {
		if c := col.CompareString(cited[i].DocumentName, cited[j].DocumentName); c != 0 {
			return c < 0
		}
		if cited[i].DocumentID != cited[j].DocumentID {
			return cited[i].DocumentID < cited[j].DocumentID
		}
		return cited[i].DocumentName < cited[j].DocumentName
	})

	for i, r := range cited {
		out[strconv.Itoa(i+1)] = Entry{
			DocumentID:   r.DocumentID,
			DocumentName: r.DocumentName,
		}
	}
	metrics.CitationsExtracted.Observe(float64(len(out)))
	return out
}
