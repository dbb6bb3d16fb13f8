package documents

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/cache"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/metrics"
)

// Lister is the slice of the database client the source needs.
type Lister interface {
	ListDocuments(ctx context.Context, studyID string) ([]db.DocumentRow, error)
}

// Config tunes the document source.
type Config struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Source serves per-study document snapshots. A snapshot starts in the
// loading state and flips to ready once a fetch completes; readers never
// block on the database.
type Source struct {
	lister Lister
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewSource builds a document source over a database lister and a cache
// store. store may be nil, in which case every Snapshot call hits Postgres.
func NewSource(lister Lister, store cache.Store, cfg Config, logger *zap.Logger) *Source {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{lister: lister, store: store, ttl: cfg.CacheTTL, logger: logger}
}

func cacheKey(studyID string) string {
	return cache.MakeKey("docs", studyID)
}

// Snapshot returns the current view of a study's documents. Cache hits and
// successful fetches are ready; a failed fetch degrades to a loading snapshot
// so citation enrichment stays optimistic instead of flagging everything
// stale.
func (s *Source) Snapshot(ctx context.Context, studyID string) Snapshot {
	if s.store != nil {
		if raw, ok := s.store.Get(ctx, cacheKey(studyID)); ok {
			var docs []Document
			if err := json.Unmarshal(raw, &docs); err == nil {
				metrics.DocumentListRefreshes.WithLabelValues("cache").Inc()
				return Snapshot{StudyID: studyID, State: StateReady, Documents: docs}
			}
			s.store.Delete(ctx, cacheKey(studyID))
		}
	}

	rows, err := s.lister.ListDocuments(ctx, studyID)
	if err != nil {
		metrics.DocumentListRefreshes.WithLabelValues("error").Inc()
		s.logger.Warn("Document list fetch failed, serving loading snapshot",
			zap.String("study_id", studyID),
			zap.Error(err))
		return Snapshot{StudyID: studyID, State: StateLoading}
	}
	metrics.DocumentListRefreshes.WithLabelValues("postgres").Inc()

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{ID: row.ID, FileName: row.FileName})
	}

	if s.store != nil {
		if raw, err := json.Marshal(docs); err == nil {
			s.store.Set(ctx, cacheKey(studyID), raw, s.ttl)
		}
	}

	return Snapshot{StudyID: studyID, State: StateReady, Documents: docs}
}

// Invalidate drops the cached snapshot for a study, forcing the next read to
// hit Postgres. Called on document upload and delete.
func (s *Source) Invalidate(ctx context.Context, studyID string) {
	if s.store != nil {
		s.store.Delete(ctx, cacheKey(studyID))
	}
}

// Exists reports whether a document is live in its study right now.
func (s *Source) Exists(ctx context.Context, studyID, documentID string) bool {
	snap := s.Snapshot(ctx, studyID)
	if snap.State == StateLoading {
		return true
	}
	return snap.Has(documentID)
}
