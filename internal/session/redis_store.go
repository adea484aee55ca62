package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defi-staking/gateway/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore keeps the session record in redis under StorageKey. The redis
// TTL mirrors the session TTL so stale records also age out server-side;
// Load still checks nothing beyond shape — expiry policy belongs to the
// restoration flow.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, log: log, now: time.Now}
}

func (s *RedisStore) Save(ctx context.Context, user models.AuthSession, walletType string) error {
	rec := Record{
		User:       user,
		Timestamp:  s.now().UnixMilli(),
		WalletType: walletType,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}
	if err := s.client.Set(ctx, StorageKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session record: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	data, err := s.client.Get(ctx, StorageKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || !rec.valid() {
		s.log.Warn("discarding malformed session record", zap.String("key", StorageKey))
		_ = s.Clear(ctx)
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, StorageKey).Err(); err != nil {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}
