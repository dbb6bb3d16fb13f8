package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientDisabled(t *testing.T) {
	Initialize(Config{Enabled: false}, zap.NewNop())
	c := Get()
	require.NotNil(t, c)
	_, err := c.Search(context.Background(), "query", Options{StudyID: "study-1"})
	assert.Error(t, err)
}

func TestClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/search", r.URL.Path)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "thermal limits", req.Query)
		assert.Equal(t, "study-1", req.StudyID)
		// Defaults applied when the caller omits them.
		assert.Equal(t, 5, req.Limit)
		assert.InDelta(t, 0.3, req.MinSimilarity, 1e-9)

		_ = json.NewEncoder(w).Encode(searchResponse{
			Status: "ok",
			Results: []searchHit{
				{DocumentID: "doc-1", DocumentName: "A.pdf", ChunkID: "c1", Content: "...", Similarity: 0.91},
				{DocumentID: "doc-2", DocumentName: "B.pdf", ChunkID: "c2", Content: "...", Similarity: 0.82},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Config{}, zap.NewNop())
	results, err := c.Search(context.Background(), "thermal limits", Options{StudyID: "study-1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A.pdf", results[0].DocumentName)
	assert.Equal(t, "c2", results[1].ChunkID)
}

func TestClientSearchRequiresStudy(t *testing.T) {
	c := NewClient("http://localhost:0", Config{}, zap.NewNop())
	_, err := c.Search(context.Background(), "query", Options{})
	assert.Error(t, err)
}

func TestClientSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Config{}, zap.NewNop())
	_, err := c.Search(context.Background(), "query", Options{StudyID: "study-1"})
	assert.Error(t, err)
}
