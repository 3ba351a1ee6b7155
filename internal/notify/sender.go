package notify

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notification is a rendered message ready for delivery.
type Notification struct {
	EventID    string
	Topic      string
	Text       string
	Link       string
	Data       json.RawMessage
	OccurredAt time.Time
}

// Sender delivers notifications to one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log. It is the default channel when
// no webhook is configured.
type LogSender struct {
	Logger zerolog.Logger
}

// Name implements Sender.
func (LogSender) Name() string { return "log" }

// Send implements Sender.
func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Logger.Info().
		Str("event_id", n.EventID).
		Str("topic", n.Topic).
		Str("link", n.Link).
		Str("text", n.Text).
		Msg("order notification")
	return nil
}

// ReplayProtector guards against sending the same event twice within a TTL.
type ReplayProtector interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RedisReplayProtector claims keys with SETNX.
type RedisReplayProtector struct {
	Client *redis.Client
}

// Acquire reports whether key was free and is now held for ttl.
func (r RedisReplayProtector) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if r.Client == nil {
		return true, nil
	}
	return r.Client.SetNX(ctx, key, "1", ttl).Result()
}

// Release frees key.
func (r RedisReplayProtector) Release(ctx context.Context, key string) error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Del(ctx, key).Err()
}
