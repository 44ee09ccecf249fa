// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"servicefinder/config"

	"github.com/go-redis/redis/v8"
)

// ContextCacheClient holds conversation context and busy flags.
var ContextCacheClient *redis.Client

// InitContextCache connects to the Redis DB configured for conversation context.
func InitContextCache() {
	ContextCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisContextDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := ContextCacheClient.Ping(ctx).Result()
	if err != nil {
		log.Fatalf("Failed to connect to Redis (Context): %v", err)
	}
}

// GetContextCacheClient returns the conversation context client.
func GetContextCacheClient() *redis.Client {
	if ContextCacheClient == nil {
		InitContextCache()
	}
	return ContextCacheClient
}
