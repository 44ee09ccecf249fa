package dialogueRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"servicefinder/services/dialogue"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	contextPrefix = "dlg:ctx:"
	busyPrefix    = "dlg:busy:"
)

// RedisContextStore keeps conversation context in Redis as JSON with a sliding TTL.
// The busy flag is a separate key so a crashed request cannot hold a conversation
// longer than busyTTL.
type RedisContextStore struct {
	client  *redis.Client
	ttl     time.Duration
	busyTTL time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl, busyTTL time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl, busyTTL: busyTTL}
}

func (s *RedisContextStore) Get(ctx context.Context, id string) (*dialogue.Conversation, error) {
	data, err := s.client.Get(ctx, contextPrefix+id).Result()
	if err == redis.Nil {
		return dialogue.NewConversation(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	var conv dialogue.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", id, err)
	}
	conv.ID = id
	return &conv, nil
}

func (s *RedisContextStore) Set(ctx context.Context, conv *dialogue.Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, contextPrefix+conv.ID, b, s.ttl).Err()
}

func (s *RedisContextStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, contextPrefix+id).Err()
}

// releaseScript deletes the busy flag only if it still holds the caller's token, so a turn
// that outlived busyTTL cannot clear the flag of the turn that took over.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Acquire sets the busy flag with SETNX under a fresh token; false means another input is
// in flight.
func (s *RedisContextStore) Acquire(ctx context.Context, id string) (string, bool, error) {
	token := uuid.New().String()
	ok, err := s.client.SetNX(ctx, busyPrefix+id, token, s.busyTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire conversation %s: %w", id, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (s *RedisContextStore) Release(ctx context.Context, id, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{busyPrefix + id}, token).Err(); err != nil {
		return fmt.Errorf("failed to release conversation %s: %w", id, err)
	}
	return nil
}
