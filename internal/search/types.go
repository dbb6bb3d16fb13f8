package search

import (
	"context"
	"time"

	"github.com/tanmvo/skate-ai-2-sub002/internal/citations"
)

// Config holds similarity search service configuration.
type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Timeout       time.Duration `mapstructure:"timeout"`
	TopK          int           `mapstructure:"top_k"`
	MinSimilarity float64       `mapstructure:"min_similarity"`
}

// Options scope one search call. StudyID is required; zero Limit and
// MinSimilarity fall back to the client defaults. DocumentIDs restricts the
// search to specific documents when non-empty.
type Options struct {
	StudyID       string
	Limit         int
	MinSimilarity float64
	DocumentIDs   []string
}

// Service is the similarity search contract consumed by the citation
// pipeline. Implementations must be safe for concurrent use and behave as a
// pure function of their scoped inputs, so replayed searches reconstruct the
// same retrieved set.
type Service interface {
	Search(ctx context.Context, query string, opts Options) ([]citations.SearchResult, error)
}

// wire types for the retrieval service API

type searchRequest struct {
	Query         string   `json:"query"`
	StudyID       string   `json:"study_id"`
	Limit         int      `json:"limit"`
	MinSimilarity float64  `json:"min_similarity,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
}

type searchHit struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
	Similarity   float64 `json:"similarity"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
	Status  string      `json:"status"`
}
