package dialogue

import (
	"context"
	"testing"

	"servicefinder/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountTurns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	store := NewMemoryStore()
	e := NewEngine(Options{
		Store:    store,
		Turns:    store,
		Searcher: &fakeSearcher{structured: [][]models.ProviderRecord{providers("Ace Plumbing")}},
		Metrics:  m,
	})

	say(t, e, "c1", "hello")
	say(t, e, "c1", "I need a plumber in Chicago")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("off_topic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.classifications.WithLabelValues("complete_query")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("structured")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("results")))

	_, ok, err := store.Acquire(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, ok)
	_, err = e.Process(context.Background(), models.ChatRequest{ConversationID: "c1", Text: "hi"})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.busyRejections))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}
