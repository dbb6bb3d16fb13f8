package documents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/cache"
	"github.com/tanmvo/skate-ai-2-sub002/internal/db"
)

type fakeLister struct {
	calls int
	rows  []db.DocumentRow
	err   error
}

func (f *fakeLister) ListDocuments(_ context.Context, studyID string) ([]db.DocumentRow, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func TestSnapshotReady(t *testing.T) {
	lister := &fakeLister{rows: []db.DocumentRow{
		{ID: "doc-1", StudyID: "study-1", FileName: "A.pdf"},
		{ID: "doc-2", StudyID: "study-1", FileName: "B.pdf"},
	}}
	src := NewSource(lister, nil, Config{}, zap.NewNop())

	snap := src.Snapshot(context.Background(), "study-1")
	assert.Equal(t, StateReady, snap.State)
	require.Len(t, snap.Documents, 2)
	assert.True(t, snap.Has("doc-1"))
	assert.False(t, snap.Has("doc-3"))
}

func TestSnapshotLoadingOnError(t *testing.T) {
	lister := &fakeLister{err: fmt.Errorf("connection refused")}
	src := NewSource(lister, nil, Config{}, zap.NewNop())

	snap := src.Snapshot(context.Background(), "study-1")
	assert.Equal(t, StateLoading, snap.State)
	assert.Empty(t, snap.Documents)
	// Loading snapshots answer existence optimistically.
	assert.True(t, src.Exists(context.Background(), "study-1", "anything"))
}

func TestSnapshotUsesCache(t *testing.T) {
	lister := &fakeLister{rows: []db.DocumentRow{
		{ID: "doc-1", StudyID: "study-1", FileName: "A.pdf"},
	}}
	src := NewSource(lister, cache.NewLocalLRU(8), Config{CacheTTL: time.Minute}, zap.NewNop())

	first := src.Snapshot(context.Background(), "study-1")
	second := src.Snapshot(context.Background(), "study-1")
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, first.Documents, second.Documents)
}

func TestInvalidateForcesRefresh(t *testing.T) {
	lister := &fakeLister{rows: []db.DocumentRow{
		{ID: "doc-1", StudyID: "study-1", FileName: "A.pdf"},
	}}
	src := NewSource(lister, cache.NewLocalLRU(8), Config{CacheTTL: time.Minute}, zap.NewNop())

	src.Snapshot(context.Background(), "study-1")
	src.Invalidate(context.Background(), "study-1")

	lister.rows = append(lister.rows, db.DocumentRow{ID: "doc-2", StudyID: "study-1", FileName: "B.pdf"})
	snap := src.Snapshot(context.Background(), "study-1")
	assert.Equal(t, 2, lister.calls)
	assert.True(t, snap.Has("doc-2"))
}

func TestExistsReady(t *testing.T) {
	lister := &fakeLister{rows: []db.DocumentRow{
		{ID: "doc-1", StudyID: "study-1", FileName: "A.pdf"},
	}}
	src := NewSource(lister, nil, Config{}, zap.NewNop())

	assert.True(t, src.Exists(context.Background(), "study-1", "doc-1"))
	assert.False(t, src.Exists(context.Background(), "study-1", "doc-deleted"))
}
