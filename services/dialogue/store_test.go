package dialogue

import (
	"context"
	"testing"

	"servicefinder/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreConversations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateInitial, conv.State)
	assert.Equal(t, "c1", conv.ID)

	conv.State = models.StateComplete
	conv.ShownProviders = []string{"A"}
	conv.Memory.Set(models.StructuredLocation{Area: "SoHo", City: "New York"})
	require.NoError(t, s.Set(ctx, conv))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateComplete, got.State)

	// Returned conversations do not alias stored state.
	got.ShownProviders[0] = "B"
	got.Memory.Location.Area = "Tribeca"
	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, again.ShownProviders)
	assert.Equal(t, "SoHo, New York", again.Memory.Format())

	require.NoError(t, s.Clear(ctx, "c1"))
	conv, err = s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateInitial, conv.State)
}

func TestMemoryStoreBusyFlag(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, ok, err := s.Acquire(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, first)

	_, ok, err = s.Acquire(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Acquire(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, ok)

	// a stale token leaves the flag in place
	require.NoError(t, s.Release(ctx, "c1", "stale"))
	_, ok, err = s.Acquire(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Release(ctx, "c1", first))
	second, ok, err := s.Acquire(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, first, second)
}

func TestMemoryStoreTurns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Append(ctx, "c1", models.Turn{ID: "1", Speaker: models.SpeakerUser, Text: "hi"}))
	require.NoError(t, s.Append(ctx, "c1", models.Turn{ID: "2", Speaker: models.SpeakerAssistant, Text: "hello"}))

	turns, err := s.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "1", turns[0].ID)

	empty, err := s.List(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
