package publisher

import (
	"context"
	"encoding/base64"

	"github.com/redis/go-redis/v9"

	perrors "sjsage522/goldpriceworker/pkg/errors"
)

// MessageField is the stream entry field holding the base64 encoded message
const MessageField = "b64_row"

// RedisPublisher implements Publisher using Redis streams, one stream per weight class
type RedisPublisher struct {
	client          *redis.Client
	ctx             context.Context
	streamPrefix    string
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(ctx context.Context, addr string, db int, streamPrefix string, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisPublisher{
		client:          client,
		ctx:             ctx,
		streamPrefix:    streamPrefix,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the connection to Redis
func (p *RedisPublisher) Ping() error {
	return p.client.Ping(p.ctx).Err()
}

// Stream returns the stream name for a weight class
func (p *RedisPublisher) Stream(weight string) string {
	return p.streamPrefix + ":" + weight
}

// Publish publishes a message to the weight's Redis stream.
// The message is base64 encoded before publishing.
func (p *RedisPublisher) Publish(weight string, message []byte) error {
	encodedMessage := base64.StdEncoding.EncodeToString(message)

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.Stream(weight),
		Values: map[string]interface{}{
			MessageField: encodedMessage,
		},
	}).Err()
	if err != nil {
		return perrors.NewPublisher(weight, "publishing row failed", err)
	}
	return nil
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	// Get all streams with the prefix
	pattern := p.streamPrefix + ":*"
	streams, err := p.client.Keys(p.ctx, pattern).Result()
	if err != nil {
		return perrors.NewPublisher("", "listing streams failed", err)
	}

	for _, stream := range streams {
		err := p.client.XTrimMaxLen(p.ctx, stream, int64(p.streamMaxLength)).Err()
		if err != nil {
			return perrors.NewPublisher("", "trimming "+stream+" failed", err)
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
