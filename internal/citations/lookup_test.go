package citations

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLookup(t *testing.T) {
	m := Map{
		"1": {DocumentID: "doc-a", DocumentName: "A.pdf"},
		"2": {DocumentID: "doc-b", DocumentName: "B.pdf"},
	}
	lk := BuildLookup(m)
	require.Len(t, lk, 2)
	assert.Equal(t, 1, lk["A.pdf"].CitationNumber)
	assert.Equal(t, "doc-a", lk["A.pdf"].DocumentID)
	assert.Equal(t, 2, lk["B.pdf"].CitationNumber)
}

func TestBuildLookupSkipsNonNumericKeys(t *testing.T) {
	m := Map{
		"1":   {DocumentID: "doc-a", DocumentName: "A.pdf"},
		"bad": {DocumentID: "doc-x", DocumentName: "X.pdf"},
		"0":   {DocumentID: "doc-z", DocumentName: "Z.pdf"},
	}
	lk := BuildLookup(m)
	require.Len(t, lk, 1)
	_, ok := lk["X.pdf"]
	assert.False(t, ok)
}

func TestLookupBuilderReusesSameMap(t *testing.T) {
	m := Map{"1": {DocumentID: "doc-a", DocumentName: "A.pdf"}}
	var b LookupBuilder

	first := b.For(m)
	second := b.For(m)
	// Same map reference means the identical lookup comes back.
	assert.Equal(t,
		reflect.ValueOf(first).Pointer(),
		reflect.ValueOf(second).Pointer())
}

func TestLookupBuilderRebuildsForNewMap(t *testing.T) {
	var b LookupBuilder
	first := b.For(Map{"1": {DocumentID: "doc-a", DocumentName: "A.pdf"}})
	second := b.For(Map{"1": {DocumentID: "doc-b", DocumentName: "B.pdf"}})

	assert.NotEqual(t,
		reflect.ValueOf(first).Pointer(),
		reflect.ValueOf(second).Pointer())
	assert.Equal(t, "doc-b", second["B.pdf"].DocumentID)
}

func TestLookupBuilderNilMap(t *testing.T) {
	var b LookupBuilder
	lk := b.For(nil)
	assert.Empty(t, lk)
}
