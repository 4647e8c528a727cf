package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/infrastructure/service/logger"
)

const blockedPrefix = "blocked:"

type RateLimitConfig struct {
	Enabled  bool
	RedisURL string
}

// rateLimitService keeps fixed-window counters and block markers in Redis.
type rateLimitService struct {
	redisClient *redis.Client
	logger      logger.Logger
}

// NewRateLimitService connects to Redis, or returns a no-op limiter when rate
// limiting is disabled.
func NewRateLimitService(config RateLimitConfig, log logger.Logger) (inbound.RateLimitService, error) {
	if !config.Enabled {
		log.Info(context.Background(), "Rate limiting disabled", nil)
		return NoopRateLimitService{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
		"redis_addr": opt.Addr,
	})

	return NewRedisRateLimitService(redisClient, log), nil
}

func NewRedisRateLimitService(client *redis.Client, log logger.Logger) inbound.RateLimitService {
	return &rateLimitService{
		redisClient: client,
		logger:      log,
	}
}

// CheckLimit reports whether key is still under limit.
func (s *rateLimitService) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	currentCount, err := s.GetAttempts(ctx, key)
	if err != nil {
		return false, err
	}

	return currentCount < limit, nil
}

// Increment bumps the counter for key. The window starts with the first hit.
func (s *rateLimitService) Increment(ctx context.Context, key string, window time.Duration) error {
	pipeline := s.redisClient.TxPipeline()
	incr := pipeline.Incr(ctx, key)
	pipeline.ExpireNX(ctx, key, window)

	if _, err := pipeline.Exec(ctx); err != nil {
		s.logger.Error(ctx, "Failed to increment rate limit counter", err, map[string]interface{}{"key": key})
		return fmt.Errorf("failed to increment rate limit: %w", err)
	}

	s.logger.Debug(ctx, "Rate limit incremented", map[string]interface{}{
		"key":   key,
		"count": incr.Val(),
	})
	return nil
}

func (s *rateLimitService) Block(ctx context.Context, key string, duration time.Duration, reason string) error {
	blockKey := blockedPrefix + key

	pipeline := s.redisClient.TxPipeline()
	pipeline.HSet(ctx, blockKey, map[string]interface{}{
		"reason":         reason,
		"blocked_at":     time.Now().Unix(),
		"correlation_id": logger.CorrelationID(ctx),
	})
	pipeline.Expire(ctx, blockKey, duration)

	if _, err := pipeline.Exec(ctx); err != nil {
		s.logger.Error(ctx, "Failed to block key", err, map[string]interface{}{"key": key})
		return fmt.Errorf("failed to block key: %w", err)
	}

	logger.LogSecurityEvent(ctx, s.logger, "rate_limit_block", "MEDIUM", map[string]interface{}{
		"key":      key,
		"duration": duration.String(),
		"reason":   reason,
	})
	return nil
}

func (s *rateLimitService) IsBlocked(ctx context.Context, key string) (bool, error) {
	exists, err := s.redisClient.Exists(ctx, blockedPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check block status: %w", err)
	}
	return exists > 0, nil
}

func (s *rateLimitService) GetAttempts(ctx context.Context, key string) (int, error) {
	count, err := s.redisClient.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get attempts: %w", err)
	}
	return count, nil
}

// NoopRateLimitService allows everything.
type NoopRateLimitService struct{}

func (NoopRateLimitService) CheckLimit(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (NoopRateLimitService) Increment(context.Context, string, time.Duration) error { return nil }

func (NoopRateLimitService) Block(context.Context, string, time.Duration, string) error { return nil }

func (NoopRateLimitService) IsBlocked(context.Context, string) (bool, error) { return false, nil }

func (NoopRateLimitService) GetAttempts(context.Context, string) (int, error) { return 0, nil }
