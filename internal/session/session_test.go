package session

import (
	"testing"

	"smsview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessages() []models.Message {
	return []models.Message{
		{Type: "1", ContactName: "Alice", Body: "Hello there", Date: "Jan 1"},
		{Type: "2", ContactName: "Me", Body: "hi", Date: "Jan 1"},
		{Type: "1", ContactName: "Alice", Body: "Lunch?", Date: "Jan 2"},
	}
}

func TestSession_StartsEmpty(t *testing.T) {
	s := New()

	assert.Equal(t, uint64(0), s.Generation())
	assert.NotNil(t, s.Messages())
	assert.Empty(t, s.Messages())
	assert.Equal(t, 0, s.Len())
}

func TestSession_CommitLatest(t *testing.T) {
	s := New()

	gen := s.Begin()
	require.True(t, s.Commit(gen, sampleMessages()))

	assert.Equal(t, gen, s.Generation())
	assert.Equal(t, sampleMessages(), s.Messages())
}

func TestSession_StaleCommitIsDiscarded(t *testing.T) {
	s := New()

	older := s.Begin()
	newer := s.Begin()

	require.True(t, s.Commit(newer, sampleMessages()[:1]))
	assert.False(t, s.Commit(older, sampleMessages()))

	assert.Equal(t, newer, s.Generation())
	assert.Len(t, s.Messages(), 1)
	assert.False(t, s.IsCurrent(older))
	assert.True(t, s.IsCurrent(newer))
}

func TestSession_NewerBeginBlocksPendingCommit(t *testing.T) {
	s := New()

	gen := s.Begin()
	s.Begin()

	assert.False(t, s.Commit(gen, sampleMessages()))
	assert.Empty(t, s.Messages())
	assert.Equal(t, uint64(0), s.Generation())
}

func TestSession_CommitNilStoresEmptyList(t *testing.T) {
	s := New()
	require.True(t, s.Commit(s.Begin(), nil))

	assert.NotNil(t, s.Messages())
	assert.Empty(t, s.Messages())
}

func TestSession_MessagesReturnsCopy(t *testing.T) {
	s := New()
	require.True(t, s.Commit(s.Begin(), sampleMessages()))

	got := s.Messages()
	got[0].Body = "changed"

	assert.Equal(t, "Hello there", s.Messages()[0].Body)
}

func TestSession_Filter(t *testing.T) {
	s := New()
	gen := s.Begin()
	require.True(t, s.Commit(gen, sampleMessages()))

	tests := []struct {
		term  string
		count int
	}{
		{"", 3},
		{"hello", 1},
		{"h", 3},
		{"LUNCH", 1},
		{"alice", 0},
		{"zzz", 0},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			view := s.Filter(tt.term)
			assert.Equal(t, gen, view.Generation)
			assert.Equal(t, 3, view.Total)
			assert.Equal(t, tt.count, view.Count)
			assert.Len(t, view.Messages, tt.count)
		})
	}
}

func TestSession_FilterEmptyTermDoesNotExposeState(t *testing.T) {
	s := New()
	require.True(t, s.Commit(s.Begin(), sampleMessages()))

	view := s.Filter("")
	view.Messages[0].Body = "changed"

	assert.Equal(t, "Hello there", s.Messages()[0].Body)
}

func TestSession_AbandonRestoresPreviousLoad(t *testing.T) {
	s := New()

	older := s.Begin()
	rejected := s.Begin()
	require.False(t, s.IsCurrent(older))

	s.Abandon(rejected)

	assert.True(t, s.IsCurrent(older))
	assert.True(t, s.Commit(older, sampleMessages()))
	// the token is free again
	assert.Equal(t, rejected, s.Begin())
}

func TestSession_AbandonBelowNewerLoad(t *testing.T) {
	s := New()

	older := s.Begin()
	rejected := s.Begin()
	newer := s.Begin()

	s.Abandon(rejected)
	assert.True(t, s.IsCurrent(newer))
	assert.False(t, s.IsCurrent(older))

	// once the newer one is abandoned too, both are skipped
	s.Abandon(newer)
	assert.True(t, s.IsCurrent(older))
}

func TestSession_AbandonIgnoresUnknownTokens(t *testing.T) {
	s := New()
	gen := s.Begin()

	s.Abandon(0)
	s.Abandon(gen + 5)

	assert.True(t, s.IsCurrent(gen))
}
