package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/circuitbreaker"
	"github.com/tanmvo/skate-ai-2-sub002/internal/citations"
	ometrics "github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
	"github.com/tanmvo/skate-ai-2-sub002/internal/tracing"
)

// Client is a minimal HTTP client for the similarity search service.
type Client struct {
	cfg   Config
	http  *http.Client
	base  string
	httpw *circuitbreaker.HTTPWrapper
	log   *zap.Logger
}

var global *Client

// Initialize configures the global client with defaults filled in.
func Initialize(cfg Config, logger *zap.Logger) {
	c := cfg
	if c.Port == 0 {
		c.Port = 8070
	}
	if c.TopK == 0 {
		c.TopK = 5
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.3
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	httpClient := &http.Client{Timeout: c.Timeout}
	httpw := circuitbreaker.NewHTTPWrapper(httpClient, "search", "retrieval", logger)
	global = &Client{
		cfg:   c,
		http:  httpClient,
		base:  fmt.Sprintf("http://%s:%d", c.Host, c.Port),
		httpw: httpw,
		log:   logger,
	}
}

// Get returns the global search client.
func Get() *Client { return global }

// NewClient builds a standalone client for a specific base URL, used by tests
// and by callers that do not want the global.
func NewClient(baseURL string, cfg Config, logger *zap.Logger) *Client {
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = 0.3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	cfg.Enabled = true
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		cfg:   cfg,
		http:  httpClient,
		base:  baseURL,
		httpw: circuitbreaker.NewHTTPWrapper(httpClient, "search", "retrieval", logger),
		log:   logger,
	}
}

// Defaults returns the configured default limit and minimum similarity,
// consumed by the replay stage when a persisted call omits them.
func (c *Client) Defaults() (limit int, minSimilarity float64) {
	if c == nil {
		return 5, 0.3
	}
	return c.cfg.TopK, c.cfg.MinSimilarity
}

// Search executes one similarity search scoped to a study.
func (c *Client) Search(ctx context.Context, query string, opts Options) ([]citations.SearchResult, error) {
	if c == nil || !c.cfg.Enabled {
		return nil, fmt.Errorf("search: called while disabled")
	}
	if opts.StudyID == "" {
		return nil, fmt.Errorf("search: study id required")
	}
	start := time.Now()

	url := fmt.Sprintf("%s/v1/search", c.base)
	ctx, span := tracing.StartHTTPSpan(ctx, "POST", url)
	defer span.End()

	limit := opts.Limit
	if limit <= 0 {
		limit = c.cfg.TopK
	}
	minSim := opts.MinSimilarity
	if minSim <= 0 {
		minSim = c.cfg.MinSimilarity
	}

	reqBody := searchRequest{
		Query:         query,
		StudyID:       opts.StudyID,
		Limit:         limit,
		MinSimilarity: minSim,
		DocumentIDs:   opts.DocumentIDs,
	}
	buf, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		ometrics.SearchRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectTraceparent(ctx, req)

	resp, err := c.httpw.Do(req)
	if err != nil {
		ometrics.SearchRequests.WithLabelValues("error").Inc()
		ometrics.SearchDuration.Observe(time.Since(start).Seconds())
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		ometrics.SearchRequests.WithLabelValues("error").Inc()
		ometrics.SearchDuration.Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("search: status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		ometrics.SearchRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	ometrics.SearchRequests.WithLabelValues("ok").Inc()
	ometrics.SearchDuration.Observe(time.Since(start).Seconds())

	results := make([]citations.SearchResult, 0, len(sr.Results))
	for _, h := range sr.Results {
		results = append(results, citations.SearchResult{
			DocumentID:   h.DocumentID,
			DocumentName: h.DocumentName,
			ChunkID:      h.ChunkID,
			Content:      h.Content,
			Similarity:   h.Similarity,
		})
	}
	return results, nil
}
