package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retrieved() []SearchResult {
	return []SearchResult{
		{DocumentID: "doc-b", DocumentName: "B.pdf", ChunkID: "c1", Content: "x", Similarity: 0.9},
		{DocumentID: "doc-a", DocumentName: "A.pdf", ChunkID: "c2", Content: "y", Similarity: 0.8},
		{DocumentID: "doc-n", DocumentName: "notes.md", ChunkID: "c3", Content: "z", Similarity: 0.7},
	}
}

func TestExtractNumbersAlphabetically(t *testing.T) {
	// B cited before A in the text, but numbering ignores text order.
	m := ExtractCitations("first ^[B.pdf] then ^[A.pdf]", retrieved())
	require.Len(t, m, 2)
	assert.Equal(t, "A.pdf", m["1"].DocumentName)
	assert.Equal(t, "doc-a", m["1"].DocumentID)
	assert.Equal(t, "B.pdf", m["2"].DocumentName)
	assert.Equal(t, "doc-b", m["2"].DocumentID)
}

func TestExtractDropsHallucinatedNames(t *testing.T) {
	m := ExtractCitations("real ^[A.pdf] and fake ^[Fabricated.pdf]", retrieved())
	require.Len(t, m, 1)
	assert.Equal(t, "A.pdf", m["1"].DocumentName)
}

func TestExtractDeduplicatesRepeatedMarkers(t *testing.T) {
	m := ExtractCitations("^[A.pdf] again ^[A.pdf] and again ^[A.pdf]", retrieved())
	require.Len(t, m, 1)
}

func TestExtractCaseInsensitiveOrdering(t *testing.T) {
	results := []SearchResult{
		{DocumentID: "doc-1", DocumentName: "apple.txt"},
		{DocumentID: "doc-2", DocumentName: "Banana.txt"},
		{DocumentID: "doc-3", DocumentName: "cherry.txt"},
	}
	m := ExtractCitations("^[cherry.txt] ^[Banana.txt] ^[apple.txt]", results)
	require.Len(t, m, 3)
	assert.Equal(t, "apple.txt", m["1"].DocumentName)
	assert.Equal(t, "Banana.txt", m["2"].DocumentName)
	assert.Equal(t, "cherry.txt", m["3"].DocumentName)
}

func TestExtractTrimsMarkerWhitespace(t *testing.T) {
	m := ExtractCitations("cite ^[ A.pdf ]", retrieved())
	require.Len(t, m, 1)
	assert.Equal(t, "A.pdf", m["1"].DocumentName)
}

func TestExtractEmptyInputs(t *testing.T) {
	m := ExtractCitations("", retrieved())
	assert.NotNil(t, m)
	assert.Empty(t, m)

	m = ExtractCitations("no markers here", retrieved())
	assert.NotNil(t, m)
	assert.Empty(t, m)

	m = ExtractCitations("cite ^[A.pdf]", nil)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestExtractIgnoresMalformedMarkers(t *testing.T) {
	m := ExtractCitations("empty ^[] dangling ^[A.pdf plain [B.pdf]", retrieved())
	assert.Empty(t, m)
}

func TestExtractDeterministic(t *testing.T) {
	content := "cites ^[notes.md] and ^[B.pdf] and ^[A.pdf]"
	first := ExtractCitations(content, retrieved())
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractCitations(content, retrieved()))
	}
}

func TestExtractDuplicateNameLastResultWins(t *testing.T) {
	results := []SearchResult{
		{DocumentID: "doc-old", DocumentName: "A.pdf"},
		{DocumentID: "doc-new", DocumentName: "A.pdf"},
	}
	m := ExtractCitations("cite ^[A.pdf]", results)
	require.Len(t, m, 1)
	assert.Equal(t, "doc-new", m["1"].DocumentID)
}
