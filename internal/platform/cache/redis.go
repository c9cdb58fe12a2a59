// Package cache holds Redis-backed counters for hot read paths. The primary
// user is the conversation module, which keeps per-conversation unread
// message counts in Redis so board rendering does not hit Postgres for every
// badge.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when no Redis client is configured. Callers are
// expected to fall back to their source of truth.
var ErrUnavailable = errors.New("cache unavailable")

// NewRedis connects to Redis using a redis:// URL and verifies the
// connection with a ping.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// UnreadStore tracks unread message counts per conversation side. Keys are
// "unread:<conversation_id>:<side>" where side is "operator" or "patient".
// A nil client makes every method return ErrUnavailable.
type UnreadStore struct {
	rdb *redis.Client
}

// NewUnreadStore wraps a Redis client. rdb may be nil when Redis is not
// configured.
func NewUnreadStore(rdb *redis.Client) *UnreadStore {
	return &UnreadStore{rdb: rdb}
}

func unreadKey(conversationID, side string) string {
	return "unread:" + conversationID + ":" + side
}

// Incr bumps the unread counter for one side of a conversation.
func (s *UnreadStore) Incr(ctx context.Context, conversationID, side string) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	return s.rdb.Incr(ctx, unreadKey(conversationID, side)).Err()
}

// Get returns the unread count for one side of a conversation. A missing key
// counts as zero.
func (s *UnreadStore) Get(ctx context.Context, conversationID, side string) (int64, error) {
	if s.rdb == nil {
		return 0, ErrUnavailable
	}
	n, err := s.rdb.Get(ctx, unreadKey(conversationID, side)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Reset zeroes the unread counter, used when a side marks messages read.
func (s *UnreadStore) Reset(ctx context.Context, conversationID, side string) error {
	if s.rdb == nil {
		return ErrUnavailable
	}
	return s.rdb.Del(ctx, unreadKey(conversationID, side)).Err()
}
