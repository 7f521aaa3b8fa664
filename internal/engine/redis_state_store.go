package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/infra"
	"go.uber.org/zap"
)

// RedisStateStore — L2 кэш состояний сайтов, общий для всех инстансов.
// Hash site_id -> state плюс Pub/Sub канал с изменениями.
type RedisStateStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStateStore(rdb *redis.Client, logger *zap.Logger) *RedisStateStore {
	return &RedisStateStore{rdb: rdb, logger: logger.With(zap.String("mod", "state-store"))}
}

func (s *RedisStateStore) Load(ctx context.Context) (map[string]string, error) {
	states, err := s.rdb.HGetAll(ctx, infra.RedisKeySiteStates).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to load site states: %w", err)
	}
	return states, nil
}

// Publish атомарно пишет состояние в hash и рассылает сигнал остальным инстансам.
func (s *RedisStateStore) Publish(ctx context.Context, siteID string, state domain.Reachability) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, infra.RedisKeySiteStates, siteID, string(state))
		pipe.Publish(ctx, infra.RedisChanSiteState, siteID+":"+string(state))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: failed to publish state of %s: %w", siteID, err)
	}
	return nil
}

// Warmup заливает начальные состояния в пустой L2.
// Распределенная блокировка (SetNX), чтобы только один инстанс обновлял Redis.
func (s *RedisStateStore) Warmup(ctx context.Context, states map[string]domain.Reachability) error {
	ok, err := s.rdb.SetNX(ctx, infra.RedisKeyLockWarmupStates, "processing", 30*time.Second).Result()
	if err != nil || !ok {
		return nil // Либо ошибка сети, либо другой уже греет кэш
	}

	count, err := s.rdb.HLen(ctx, infra.RedisKeySiteStates).Result()
	if err != nil {
		count = 0
		s.logger.Warn("could not check Redis hash size, proceeding with warm-up",
			zap.String("key", infra.RedisKeySiteStates), zap.Error(err))
	}

	if count == 0 && len(states) > 0 {
		s.logger.Info("Redis state cache is empty, performing warm-up",
			zap.String("key", infra.RedisKeySiteStates), zap.Int("count", len(states)))

		values := make(map[string]any, len(states))
		for id, st := range states {
			values[id] = string(st)
		}
		return s.rdb.HSet(ctx, infra.RedisKeySiteStates, values).Err()
	}
	return nil
}

// StartListener держит подписку на изменения состояний от других инстансов
func (s *RedisStateStore) StartListener(ctx context.Context, onReconnect func() error, onMessage func(siteID, state string)) {
	ListenStateResilient(ctx, s.rdb, s.logger, infra.RedisChanSiteState, onReconnect, onMessage)
}
