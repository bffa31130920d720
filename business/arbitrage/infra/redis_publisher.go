package infra

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// streamMaxLen trims the opportunity stream with XADD MAXLEN ~.
const streamMaxLen int64 = 10000

var _ app.OpportunityObserver = (*RedisPublisher)(nil)

// RedisPublisherConfig holds the publisher destinations.
type RedisPublisherConfig struct {
	Channel string // pub/sub channel, empty = no publish
	Stream  string // durable stream, empty = no append
}

// RedisPublisher fans opportunities out on a Redis pub/sub channel and
// appends them to a capped stream.
type RedisPublisher struct {
	rdb    redis.UniversalClient
	config RedisPublisherConfig
	logger logger.LoggerInterface
}

// NewRedisPublisher creates a publisher over rdb.
func NewRedisPublisher(rdb redis.UniversalClient, cfg RedisPublisherConfig, log logger.LoggerInterface) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, config: cfg, logger: log}
}

// OnOpportunity publishes opp. Failures are logged, never propagated to the poller.
func (p *RedisPublisher) OnOpportunity(ctx context.Context, opp domain.Opportunity) {
	if err := p.Publish(ctx, opp); err != nil {
		p.logger.Warn(ctx, "opportunity publish failed", "exchange", opp.Exchange, "cycle", opp.Path, "error", err)
	}
}

// Publish sends opp to the channel and the stream.
func (p *RedisPublisher) Publish(ctx context.Context, opp domain.Opportunity) error {
	payload, err := json.Marshal(newOpportunityRecord(opp))
	if err != nil {
		return apperror.New(apperror.CodePublishFailed, apperror.WithCause(err))
	}

	if p.config.Channel != "" {
		if err := p.rdb.Publish(ctx, p.config.Channel, payload).Err(); err != nil {
			return apperror.New(apperror.CodePublishFailed,
				apperror.WithCause(err),
				apperror.WithContext("publish "+p.config.Channel))
		}
	}

	if p.config.Stream != "" {
		err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.config.Stream,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]any{
				"exchange": opp.Exchange,
				"payload":  payload,
			},
		}).Err()
		if err != nil {
			return apperror.New(apperror.CodePublishFailed,
				apperror.WithCause(err),
				apperror.WithContext("xadd "+p.config.Stream))
		}
	}
	return nil
}

// Recent reads up to count opportunities from the stream, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, count int64) ([]domain.Opportunity, error) {
	if p.config.Stream == "" {
		return nil, nil
	}

	msgs, err := p.rdb.XRevRangeN(ctx, p.config.Stream, "+", "-", count).Result()
	if err != nil {
		return nil, apperror.New(apperror.CodePublishFailed,
			apperror.WithCause(err),
			apperror.WithContext("xrevrange "+p.config.Stream))
	}

	out := make([]domain.Opportunity, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			continue
		}
		var rec opportunityRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, rec.opportunity())
	}
	return out, nil
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
