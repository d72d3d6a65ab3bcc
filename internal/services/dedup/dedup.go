package dedup

import (
	"context"
	"strconv"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "relay:update:"
	defaultTTL = 10 * time.Minute
	opTimeout  = 500 * time.Millisecond
)

// Store remembers processed Telegram update ids so redelivered updates are
// not answered twice. A nil *Store is valid and treats every update as new.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a store over an existing redis client
func New(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

// FirstDelivery marks updateID as seen and reports whether this is the first
// time it arrived. Redis failures fail open: the update is processed.
func (s *Store) FirstDelivery(ctx context.Context, updateID int64) bool {
	if s == nil {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	first, err := s.client.SetNX(ctx, Key(updateID), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		fiberlog.Warnf("Update de-duplication unavailable, processing update %d: %v", updateID, err)
		return true
	}
	if !first {
		fiberlog.Infof("Dropping redelivered update %d", updateID)
	}
	return first
}

// Release forgets updateID so a redelivery is processed again. It runs even
// when ctx is already cancelled.
func (s *Store) Release(ctx context.Context, updateID int64) {
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, Key(updateID)).Err(); err != nil {
		fiberlog.Warnf("Failed to release update %d, a redelivery will be dropped: %v", updateID, err)
	}
}

// Ping reports whether redis answers, used by the health check
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Key returns the redis key for updateID
func Key(updateID int64) string {
	return keyPrefix + strconv.FormatInt(updateID, 10)
}
