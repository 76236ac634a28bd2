package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanyu/account-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// NotificationStream is the Redis stream notifications are appended to
const NotificationStream = "ledger.notifications"

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// RedisStreamSink appends notifications to a Redis stream
type RedisStreamSink struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
}

// NewRedisStreamSink creates a sink writing to stream (NotificationStream when empty).
// The stream is trimmed to roughly maxLen entries when maxLen > 0.
func NewRedisStreamSink(client *redis.Client, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = NotificationStream
	}
	return &RedisStreamSink{
		client:  client,
		stream:  stream,
		maxLen:  maxLen,
		timeout: 3 * time.Second,
	}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Send(ctx context.Context, n domain.Notification, at time.Time) error {
	data, err := domain.EncodeNotification(n, at)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"account_id":   n.AccountID,
			"notification": data,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to append notification to stream: %w", err)
	}
	return nil
}
