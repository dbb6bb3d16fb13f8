package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMapContiguous(t *testing.T) {
	m := Map{
		"1": {DocumentID: "doc-a", DocumentName: "A.pdf"},
		"2": {DocumentID: "doc-b", DocumentName: "B.pdf"},
	}
	assert.NoError(t, ValidateMap(m))
}

func TestValidateMapEmpty(t *testing.T) {
	assert.NoError(t, ValidateMap(Map{}))
	assert.NoError(t, ValidateMap(nil))
}

func TestValidateMapGap(t *testing.T) {
	m := Map{
		"1": {DocumentID: "doc-a", DocumentName: "A.pdf"},
		"3": {DocumentID: "doc-c", DocumentName: "C.pdf"},
	}
	assert.Error(t, ValidateMap(m))
}

func TestValidateMapMissingFields(t *testing.T) {
	assert.Error(t, ValidateMap(Map{"1": {DocumentName: "A.pdf"}}))
	assert.Error(t, ValidateMap(Map{"1": {DocumentID: "doc-a"}}))
}

func TestDecodeMapAbsent(t *testing.T) {
	m, err := DecodeMap(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDecodeMapEmptyObject(t *testing.T) {
	m, err := DecodeMap([]byte(`{}`))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Empty(t, m)
}

func TestDecodeMapRoundTrip(t *testing.T) {
	orig := Map{
		"1": {DocumentID: "doc-a", DocumentName: "A.pdf"},
		"2": {DocumentID: "doc-b", DocumentName: "B.pdf"},
	}
	raw, err := orig.Marshal()
	require.NoError(t, err)

	decoded, err := DecodeMap(raw)
	require.NoError(t, err)
	assert.Equal(t, orig, decoded)
}

func TestMarshalNilMap(t *testing.T) {
	raw, err := Map(nil).Marshal()
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMarshalEmptyMap(t *testing.T) {
	raw, err := Map{}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestDecodeMapMalformed(t *testing.T) {
	m, err := DecodeMap([]byte(`not json`))
	assert.Error(t, err)
	// Callers keep rendering with an empty map.
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestDecodeMapStructurallyInvalid(t *testing.T) {
	m, err := DecodeMap([]byte(`{"2":{"documentId":"doc-a","documentName":"A.pdf"}}`))
	assert.Error(t, err)
	assert.Empty(t, m)
}
