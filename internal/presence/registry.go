package presence

import (
	"context"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Registry tracks which users currently hold an open notification channel on
// any instance of the service.
type Registry interface {
	MarkOnline(ctx context.Context, userID int64) error
	MarkOffline(ctx context.Context, userID int64) error
	IsOnline(ctx context.Context, userID int64) (bool, error)
	Close() error
}

// Channel registrations expire on their own so a crashed instance cannot
// leave users permanently "online".
const presenceTTL = 90 * time.Second

// NewRegistry builds a Redis-backed registry, or a noop one when no address
// is configured or Redis is unreachable.
func NewRegistry(addr, password string) Registry {
	if addr == "" {
		log.Printf("presence disabled, using noop: empty redis addr")
		return noopRegistry{}
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("presence disabled, using noop: %v", err)
		_ = client.Close()
		return noopRegistry{}
	}

	log.Printf("presence registry connected addr=%s", addr)
	return &redisRegistry{client: client}
}

type redisRegistry struct {
	client *redis.Client
}

func presenceKey(userID int64) string {
	return fmt.Sprintf("presence:user:%d", userID)
}

func (r *redisRegistry) MarkOnline(ctx context.Context, userID int64) error {
	return r.client.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

func (r *redisRegistry) MarkOffline(ctx context.Context, userID int64) error {
	return r.client.Del(ctx, presenceKey(userID)).Err()
}

func (r *redisRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	count, err := r.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *redisRegistry) Close() error {
	return r.client.Close()
}

type noopRegistry struct{}

func (noopRegistry) MarkOnline(ctx context.Context, userID int64) error  { return nil }
func (noopRegistry) MarkOffline(ctx context.Context, userID int64) error { return nil }
func (noopRegistry) IsOnline(ctx context.Context, userID int64) (bool, error) {
	return false, nil
}
func (noopRegistry) Close() error { return nil }
