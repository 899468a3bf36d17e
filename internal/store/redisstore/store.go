package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	currentLevelTTL     = 24 * time.Hour
	unresolvedAlertsTTL = 30 * time.Second
	unresolvedAlertsKey = "alerts:unresolved"
)

type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func currentLevelKey(userID uint64) string {
	return fmt.Sprintf("risk:current:%d", userID)
}

// SetCurrentLevel caches the latest risk level for a user.
func (s *Store) SetCurrentLevel(ctx context.Context, userID uint64, level string) error {
	return s.rdb.Set(ctx, currentLevelKey(userID), level, currentLevelTTL).Err()
}

// GetCurrentLevel returns the cached level, or "" when none is cached.
func (s *Store) GetCurrentLevel(ctx context.Context, userID uint64) (string, error) {
	v, err := s.rdb.Get(ctx, currentLevelKey(userID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetUnresolvedAlerts caches the global unresolved-alert count. The short TTL
// bounds staleness from alerts created outside the HTTP path.
func (s *Store) SetUnresolvedAlerts(ctx context.Context, n int64) error {
	return s.rdb.Set(ctx, unresolvedAlertsKey, n, unresolvedAlertsTTL).Err()
}

// GetUnresolvedAlerts returns the cached count and whether it was present.
func (s *Store) GetUnresolvedAlerts(ctx context.Context) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, unresolvedAlertsKey).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// InvalidateUnresolvedAlerts drops the cached count after a lifecycle change.
func (s *Store) InvalidateUnresolvedAlerts(ctx context.Context) error {
	return s.rdb.Del(ctx, unresolvedAlertsKey).Err()
}
