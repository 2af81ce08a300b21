package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"portfolio-api/internal/model"
)

const (
	recentMessagesKey     = "chat:messages:recent"
	recentGenerationKey   = "chat:messages:generation"
	generationKeyTTLFloor = time.Hour
)

// MessageCache keeps the recent-exchange listing in redis between writes.
//
// Listings are stored under a key suffixed with the current generation.
// Invalidate bumps the generation, so a listing read from the store before
// an invalidation is written under a stale key and never served.
type MessageCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewMessageCache(client *redisv9.Client, ttl time.Duration) *MessageCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MessageCache{
		client: client,
		ttl:    ttl,
	}
}

// GetRecent returns the cached listing of the current generation. The
// generation is returned on a miss too; pass it to SetRecent.
func (c *MessageCache) GetRecent(ctx context.Context) ([]model.ChatMessage, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	raw, err := c.client.Get(ctx, listingKey(gen)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("redis get recent messages failed: %w", err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, gen, false, fmt.Errorf("unmarshal cached messages failed: %w", err)
	}
	return messages, gen, true, nil
}

// SetRecent stores messages for generation gen. It is a no-op when the
// generation moved on since gen was read.
func (c *MessageCache) SetRecent(ctx context.Context, gen int64, messages []model.ChatMessage) error {
	current, err := c.generation(ctx)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}

	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal message cache failed: %w", err)
	}
	if err := c.client.Set(ctx, listingKey(gen), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set recent messages failed: %w", err)
	}
	return nil
}

func (c *MessageCache) Invalidate(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, recentGenerationKey)
	pipe.Expire(ctx, recentGenerationKey, c.generationTTL())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis bump message generation failed: %w", err)
	}
	return nil
}

func (c *MessageCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, recentGenerationKey).Int64()
	if errors.Is(err, redisv9.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get message generation failed: %w", err)
	}
	return gen, nil
}

// generationTTL keeps the counter alive well past any listing it guards.
func (c *MessageCache) generationTTL() time.Duration {
	if ttl := 10 * c.ttl; ttl > generationKeyTTLFloor {
		return ttl
	}
	return generationKeyTTLFloor
}

func listingKey(gen int64) string {
	return recentMessagesKey + ":" + strconv.FormatInt(gen, 10)
}
