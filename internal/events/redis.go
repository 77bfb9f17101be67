package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPrefix namespaces published channels.
const RedisPrefix = "frameforge:"

const publishTimeout = 2 * time.Second

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher mirrors events onto Redis pub/sub so other processes on the
// machine can follow render progress.
type RedisPublisher struct {
	rdb    publisher
	queue  chan Event
	logger *slog.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *slog.Logger) *RedisPublisher {
	return newRedisPublisher(rdb, logger)
}

func newRedisPublisher(rdb publisher, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, queue: make(chan Event, broadcastBuffer), logger: logger}
}

func (p *RedisPublisher) Emit(channel string, payload any) {
	select {
	case p.queue <- Event{Channel: channel, Payload: payload}:
	default:
		p.logger.Debug("event dropped, redis publisher busy", "channel", channel)
	}
}

// Run publishes queued events until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.queue:
			p.publish(ctx, ev)
		}
	}
}

func (p *RedisPublisher) publish(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev.Payload)
	if err != nil {
		p.logger.Warn("failed to encode event", "channel", ev.Channel, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.rdb.Publish(ctx, RedisPrefix+ev.Channel, data).Err(); err != nil {
		p.logger.Warn("redis publish failed", "channel", ev.Channel, "error", err)
	}
}
