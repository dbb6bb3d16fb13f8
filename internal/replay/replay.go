package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tanmvo/skate-ai-2-sub002/internal/citations"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
	"github.com/tanmvo/skate-ai-2-sub002/internal/search"
	"github.com/tanmvo/skate-ai-2-sub002/internal/tracing"
)

// toolInput is the persisted argument payload of a search tool call.
type toolInput struct {
	Query         string   `json:"query"`
	Limit         int      `json:"limit,omitempty"`
	MinSimilarity float64  `json:"min_similarity,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
}

// Config tunes replay concurrency.
type Config struct {
	MaxConcurrent int     `mapstructure:"max_concurrent"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// Replayer re-executes the search calls a generation made, reconstructing the
// retrieved set that grounds citation validation. Persisted outputs are never
// trusted; only the inputs are.
type Replayer struct {
	svc     search.Service
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewReplayer builds a replayer over a search service.
func NewReplayer(svc search.Service, cfg Config, logger *zap.Logger) *Replayer {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		svc:     svc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.MaxConcurrent),
		logger:  logger,
	}
}

// isSearchTool reports whether a persisted tool name belongs to the search
// family. Matching is prefix based so renames like search_documents or
// search_all keep replaying.
func isSearchTool(name string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(name)), "search")
}

// Replay re-executes every search call in the batch and merges the results in
// call order, deduplicating chunks first-wins. Individual failures are logged
// and tolerated; the merged set from the surviving calls is still returned.
func (r *Replayer) Replay(ctx context.Context, studyID string, calls []db.ToolCallRecord) ([]citations.SearchResult, error) {
	if studyID == "" {
		return nil, fmt.Errorf("replay: study id required")
	}

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "replay.searches")
	defer span.End()
	defer func() {
		metrics.ReplayDuration.Observe(time.Since(start).Seconds())
	}()

	type slot struct {
		results []citations.SearchResult
	}
	slots := make([]slot, len(calls))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.cfg.MaxConcurrent)

	for i, call := range calls {
		if !isSearchTool(call.ToolName) {
			metrics.ReplaysSkipped.WithLabelValues("not_search").Inc()
			continue
		}
		if len(call.Input) == 0 {
			metrics.ReplaysSkipped.WithLabelValues("missing_input").Inc()
			r.logger.Warn("Skipping tool call with no input",
				zap.String("tool_call_id", call.ToolCallID))
			continue
		}
		var input toolInput
		if err := json.Unmarshal(call.Input, &input); err != nil {
			metrics.ReplaysSkipped.WithLabelValues("missing_input").Inc()
			r.logger.Warn("Skipping tool call with malformed input",
				zap.String("tool_call_id", call.ToolCallID),
				zap.Error(err))
			continue
		}
		if strings.TrimSpace(input.Query) == "" {
			metrics.ReplaysSkipped.WithLabelValues("missing_query").Inc()
			r.logger.Warn("Skipping tool call with empty query",
				zap.String("tool_call_id", call.ToolCallID))
			continue
		}

		metrics.ReplaysStarted.Inc()
		wg.Add(1)
		go func(idx int, callID string, input toolInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := r.limiter.Wait(ctx); err != nil {
				metrics.ReplaysFailed.Inc()
				return
			}

			results, err := r.svc.Search(ctx, input.Query, search.Options{
				StudyID:       studyID,
				Limit:         input.Limit,
				MinSimilarity: input.MinSimilarity,
				DocumentIDs:   input.DocumentIDs,
			})
			if err != nil {
				metrics.ReplaysFailed.Inc()
				r.logger.Warn("Replayed search failed",
					zap.String("tool_call_id", callID),
					zap.String("study_id", studyID),
					zap.Error(err))
				return
			}
			slots[idx].results = results
		}(i, call.ToolCallID, input)
	}

	wg.Wait()

	// Merge in original call order so numbering inputs stay deterministic.
	// Duplicate chunks keep their first occurrence.
	seen := make(map[string]struct{})
	var merged []citations.SearchResult
	for _, s := range slots {
		for _, res := range s.results {
			key := res.ChunkID
			if key == "" {
				key = res.DocumentID + "\x00" + res.Content
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, res)
		}
	}

	r.logger.Debug("Replay complete",
		zap.String("study_id", studyID),
		zap.Int("tool_calls", len(calls)),
		zap.Int("results", len(merged)),
		zap.Duration("duration", time.Since(start)))

	return merged, nil
}
