//go:build integration

package dialogueRepo

import (
	"context"
	"os"
	"testing"
	"time"

	"servicefinder/models"
	"servicefinder/services/dialogue"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379"), DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisContextStore(t *testing.T) {
	ctx := context.Background()
	store := NewRedisContextStore(newTestRedis(t), time.Minute, 2*time.Second)
	id := uuid.New().String()
	t.Cleanup(func() { _ = store.Clear(ctx, id) })

	conv, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateInitial, conv.State)
	assert.Equal(t, id, conv.ID)

	conv.State = models.StateAwaitingLocation
	conv.PendingService = "plumber"
	conv.Memory.Location = &models.StructuredLocation{Area: "Clifton", City: "Karachi", Country: "Pakistan"}
	conv.ShownProviders = []string{"Ace Plumbing"}
	require.NoError(t, store.Set(ctx, conv))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingLocation, got.State)
	assert.Equal(t, "plumber", got.PendingService)
	assert.Equal(t, "Clifton", got.Memory.Location.Area)
	assert.Equal(t, []string{"Ace Plumbing"}, got.ShownProviders)

	require.NoError(t, store.Clear(ctx, id))
	got, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, dialogue.NewConversation(id), got)
}

func TestRedisBusyFlag(t *testing.T) {
	ctx := context.Background()
	store := NewRedisContextStore(newTestRedis(t), time.Minute, time.Second)
	id := uuid.New().String()

	first, ok, err := store.Acquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, first)

	_, ok, err = store.Acquire(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, id, first))
	second, ok, err := store.Acquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	// the flag expires on its own if a request never releases it
	var third string
	assert.Eventually(t, func() bool {
		token, ok, err := store.Acquire(ctx, id)
		third = token
		return err == nil && ok
	}, 3*time.Second, 100*time.Millisecond)

	// the expired owner releasing late must not clear the new owner's flag
	require.NoError(t, store.Release(ctx, id, second))
	_, ok, err = store.Acquire(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, id, third))
	_, ok, err = store.Acquire(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMongoTurnLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(envOr("DATABASE_URL", "mongodb://localhost:27017")))
	require.NoError(t, err)
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	db := client.Database("servicefinder_test")
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	log := NewMongoTurnLogWithCollection(db.Collection(turnsCollection))
	id := uuid.New().String()
	now := time.Now().UTC().Truncate(time.Millisecond)

	second := models.Turn{ID: uuid.New().String(), Speaker: models.SpeakerAssistant, Text: "Here is 1 plumber provider near Chicago.", Timestamp: now.Add(time.Second),
		Providers: []models.ProviderRecord{{Name: "Ace Plumbing", Phone: "555-0100"}}}
	first := models.Turn{ID: uuid.New().String(), Speaker: models.SpeakerUser, Text: "I need a plumber in Chicago", Timestamp: now}

	require.NoError(t, log.Append(ctx, id, second))
	require.NoError(t, log.Append(ctx, id, first))
	require.NoError(t, log.Append(ctx, "other", models.Turn{ID: uuid.New().String(), Speaker: models.SpeakerUser, Text: "hi", Timestamp: now}))

	turns, err := log.List(ctx, id)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, first.Text, turns[0].Text)
	assert.Equal(t, second.Providers, turns[1].Providers)
	assert.True(t, turns[0].Timestamp.Equal(now))

	// turn ids are unique
	assert.Error(t, log.Append(ctx, id, first))

	turns, err = log.List(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, turns)
}
