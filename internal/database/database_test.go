package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	apperrors "smsview/internal/errors"
	"smsview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T, maxEntries int) *Journal {
	t.Helper()
	j, err := New(MemoryPath, maxEntries)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestNew_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := New(path, 10)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, j.Record(ctx, &models.LoadEvent{Generation: 1, FileName: "a.xml", Status: models.LoadStatusApplied}))
	require.NoError(t, j.Close())

	reopened, err := New(path, 10)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a.xml", events[0].FileName)
}

func TestNew_RejectsTraversal(t *testing.T) {
	_, err := New("../../journal.db", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid journal path")
}

func TestJournal_RecordAndRecent(t *testing.T) {
	j := newTestJournal(t, 100)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	events := []*models.LoadEvent{
		{Generation: 1, FileName: "first.xml", SizeBytes: 10, Digest: "aa", MessageCount: 2, Status: models.LoadStatusApplied, CreatedAt: base},
		{Generation: 2, FileName: "second.xml", SizeBytes: 20, Digest: "bb", Status: models.LoadStatusParseFailure, ErrorCode: string(apperrors.ErrCodeParseFailure), CreatedAt: base.Add(time.Minute)},
		{Generation: 3, FileName: "third.xml", SizeBytes: 30, Digest: "cc", MessageCount: 5, Status: models.LoadStatusSuperseded, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		require.NoError(t, j.Record(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "third.xml", got[0].FileName)
	assert.Equal(t, uint64(3), got[0].Generation)
	assert.Equal(t, models.LoadStatusSuperseded, got[0].Status)
	assert.Equal(t, 5, got[0].MessageCount)

	assert.Equal(t, "second.xml", got[1].FileName)
	assert.Equal(t, "PARSE_FAILURE", got[1].ErrorCode)

	assert.Equal(t, "first.xml", got[2].FileName)
	assert.True(t, base.Equal(got[2].CreatedAt))
}

func TestJournal_RecentLimit(t *testing.T) {
	j := newTestJournal(t, 100)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, &models.LoadEvent{Generation: uint64(i + 1), FileName: fmt.Sprintf("%d.xml", i), Status: models.LoadStatusApplied}))
	}

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestJournal_PrunesOldEntries(t *testing.T) {
	j := newTestJournal(t, 3)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		require.NoError(t, j.Record(ctx, &models.LoadEvent{
			Generation: uint64(i + 1),
			FileName:   fmt.Sprintf("%d.xml", i),
			Status:     models.LoadStatusApplied,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(6), got[0].Generation)
	assert.Equal(t, uint64(4), got[2].Generation)
}

func TestJournal_ClosedDatabase(t *testing.T) {
	j, err := New(MemoryPath, 10)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = j.Record(context.Background(), &models.LoadEvent{FileName: "a.xml", Status: models.LoadStatusApplied})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseQuery, apperrors.GetCode(err))

	_, err = j.Recent(context.Background(), 5)
	assert.Error(t, err)
}

func TestJournal_DefaultMaxEntries(t *testing.T) {
	j := newTestJournal(t, 0)
	assert.Equal(t, 500, j.maxEntries)
}
