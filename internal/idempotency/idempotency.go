package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/session-ledger/pkg/logger"
	"github.com/nimasrn/session-ledger/pkg/redis"
)

var ErrEmptyKey = errors.New("idempotency key is empty")

type Config struct {
	// TTL bounds how long a create request can be replayed.
	TTL time.Duration

	KeyPrefix string
}

func DefaultConfig() Config {
	return Config{
		TTL:       24 * time.Hour,
		KeyPrefix: "idempotency:",
	}
}

// Service reserves client supplied request keys so a retried create is
// acknowledged without being written twice.
type Service struct {
	redis  redis.RedisAdapter
	config Config
}

func NewService(redisAdapter redis.RedisAdapter, config Config) *Service {
	if config.TTL <= 0 {
		config.TTL = DefaultConfig().TTL
	}
	return &Service{
		redis:  redisAdapter,
		config: config,
	}
}

func (s *Service) key(scope, key string) string {
	return s.config.KeyPrefix + scope + ":" + key
}

// Reserve returns true when the key was free and is now held by the caller,
// false when an earlier request already claimed it.
func (s *Service) Reserve(ctx context.Context, scope, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}
	value := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.redis.SetNX(ctx, s.key(scope, key), value, s.config.TTL)
	if err != nil {
		return false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if !acquired {
		logger.Info("idempotency key already used", "scope", scope, "key", key)
	}
	return acquired, nil
}

// Release frees a reservation whose request did not complete.
func (s *Service) Release(ctx context.Context, scope, key string) error {
	if err := s.redis.Del(ctx, s.key(scope, key)); err != nil {
		logger.Warn("failed to release idempotency key", "scope", scope, "key", key, "error", err)
		return err
	}
	return nil
}
