package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/cache"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
	"github.com/tanmvo/skate-ai-2-sub002/internal/documents"
)

type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]db.DocumentRow
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]db.DocumentRow)}
}

func (s *fakeDocStore) SaveDocument(_ context.Context, doc *db.DocumentRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *fakeDocStore) DeleteDocument(_ context.Context, studyID, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok || doc.StudyID != studyID {
		return db.ErrNotFound
	}
	delete(s.docs, documentID)
	return nil
}

// countingLister tracks how often the snapshot path falls through the cache.
type countingLister struct {
	mu    sync.Mutex
	calls int
	rows  []db.DocumentRow
}

func (l *countingLister) ListDocuments(context.Context, string) ([]db.DocumentRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.rows, nil
}

func (l *countingLister) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func newDocumentsFixture(t *testing.T) (*http.ServeMux, *fakeDocStore, *countingLister, *documents.Source) {
	t.Helper()
	store := newFakeDocStore()
	lister := &countingLister{rows: []db.DocumentRow{{ID: "doc-a", StudyID: "study-1", FileName: "A.pdf"}}}
	source := documents.NewSource(lister, cache.NewLocalLRU(16), documents.Config{CacheTTL: time.Minute}, zap.NewNop())

	mux := http.NewServeMux()
	NewDocumentsHandler(store, source, zap.NewNop()).RegisterRoutes(mux)
	return mux, store, lister, source
}

func TestRegisterDocumentInvalidatesSnapshot(t *testing.T) {
	mux, store, lister, source := newDocumentsFixture(t)
	ctx := context.Background()

	// Prime the cache; a second read must not hit the lister again.
	source.Snapshot(ctx, "study-1")
	source.Snapshot(ctx, "study-1")
	require.Equal(t, 1, lister.count())

	req := httptest.NewRequest(http.MethodPost, "/api/studies/study-1/documents",
		strings.NewReader(`{"id":"doc-b","file_name":"B.pdf","status":"ready"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	store.mu.Lock()
	_, saved := store.docs["doc-b"]
	store.mu.Unlock()
	assert.True(t, saved)

	// The upload dropped the cached snapshot, so the next read refetches.
	source.Snapshot(ctx, "study-1")
	assert.Equal(t, 2, lister.count())
}

func TestRegisterDocumentRequiresFileName(t *testing.T) {
	mux, _, _, _ := newDocumentsFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/studies/study-1/documents",
		strings.NewReader(`{"status":"ready"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDocumentInvalidatesSnapshot(t *testing.T) {
	mux, store, lister, source := newDocumentsFixture(t)
	ctx := context.Background()

	store.docs["doc-a"] = db.DocumentRow{ID: "doc-a", StudyID: "study-1", FileName: "A.pdf"}
	source.Snapshot(ctx, "study-1")
	require.Equal(t, 1, lister.count())

	req := httptest.NewRequest(http.MethodDelete, "/api/studies/study-1/documents/doc-a", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	source.Snapshot(ctx, "study-1")
	assert.Equal(t, 2, lister.count())
}

func TestDeleteDocumentNotFound(t *testing.T) {
	mux, _, _, _ := newDocumentsFixture(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/studies/study-1/documents/doc-gone", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
