package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultBridgeChannel is the pub/sub channel hubs exchange frames on
const DefaultBridgeChannel = "realtime:events"

// bridgeEnvelope is what travels over Redis
type bridgeEnvelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// RedisBridge relays hub frames between server instances over Redis pub/sub
type RedisBridge struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisBridge connects to Redis and fails when it cannot be reached, in
// which case callers run the hub local-only
func NewRedisBridge(ctx context.Context, addr, password string, logger *slog.Logger) (*RedisBridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unavailable at %s: %w", addr, err)
	}

	return &RedisBridge{
		client:  client,
		channel: DefaultBridgeChannel,
		origin:  uuid.NewString(),
		logger:  logger.With(slog.String("component", "redis_bridge")),
	}, nil
}

// Publish sends a frame to the other instances
func (b *RedisBridge) Publish(ctx context.Context, room string, frame []byte) error {
	payload, err := json.Marshal(bridgeEnvelope{Origin: b.origin, Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run hands frames published by other instances to deliver until ctx is done
func (b *RedisBridge) Run(ctx context.Context, deliver func(room string, frame []byte)) {
	sub := b.client.Subscribe(ctx, b.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("failed to close subscription", slog.Any("error", err))
		}
	}()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("ignoring malformed bridge message", slog.Any("error", err))
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			deliver(env.Room, env.Frame)
		}
	}
}

// Close releases the Redis connection
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
