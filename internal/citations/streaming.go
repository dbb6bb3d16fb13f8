package citations

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseStreamingCitations scans partial answer text for ^[Name] markers while
// tokens are still arriving. Unlike ExtractCitations there is no validation
// step and no retrieved set to sort against: every distinct name is trusted
// and numbered by order of first appearance. Document IDs are synthetic
// placeholders, so the returned map is display-only and must never be
// persisted; it is replaced wholesale by the validated map once generation
// completes.
func ParseStreamingCitations(partial string) Map {
	out := make(Map)
	if partial == "" {
		return out
	}

	seen := make(map[string]struct{})
	n := 0
	for _, m := range markerPattern.FindAllStringSubmatch(partial, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		n++
		out[strconv.Itoa(n)] = Entry{
			DocumentID:   fmt.Sprintf("streaming-%d", n),
			DocumentName: name,
		}
	}
	return out
}
