package infra

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/arbitrage-sequences/internal/apperror"
)

func newTestPublisher(t *testing.T) (*RedisPublisher, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := NewRedisPublisher(rdb, RedisPublisherConfig{
		Channel: "arbitrage:opportunities",
		Stream:  "arbitrage:opportunities:log",
	}, testLogger())
	return p, rdb, s
}

func TestRedisPublisher_PublishAndStream(t *testing.T) {
	p, rdb, _ := newTestPublisher(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "arbitrage:opportunities")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)
	ch := sub.Channel()

	opp := sampleOpportunity()
	require.NoError(t, p.Publish(ctx, opp))

	select {
	case msg := <-ch:
		var rec opportunityRecord
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &rec))
		assert.Equal(t, opp.ID, rec.ID)
		assert.Equal(t, "USD", rec.Currency)
		assert.True(t, opp.Profit.Equal(rec.Profit))
	case <-time.After(2 * time.Second):
		t.Fatal("no message on channel")
	}

	second := sampleOpportunity()
	second.ID = uuid.New()
	second.Path = "BTC→LTC→USD→BTC"
	require.NoError(t, p.Publish(ctx, second))

	recent, err := p.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "BTC→LTC→USD→BTC", recent[0].Path, "newest first")
	assert.Equal(t, opp.CycleKey, recent[1].CycleKey)
	assert.True(t, opp.IndicatorOutput.Equal(recent[1].IndicatorOutput))
	assert.True(t, opp.DetectedAt.Equal(recent[1].DetectedAt))
}

func TestRedisPublisher_Failure(t *testing.T) {
	p, _, s := newTestPublisher(t)
	s.Close()

	err := p.Publish(context.Background(), sampleOpportunity())
	assert.True(t, apperror.HasCode(err, apperror.CodePublishFailed))

	// observers swallow the failure
	p.OnOpportunity(context.Background(), sampleOpportunity())
}

func TestRedisPublisher_StreamOnly(t *testing.T) {
	s := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer rdb.Close()

	p := NewRedisPublisher(rdb, RedisPublisherConfig{Stream: "log"}, testLogger())
	require.NoError(t, p.Publish(context.Background(), sampleOpportunity()))

	n, err := rdb.XLen(context.Background(), "log").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, p.Ping(context.Background()))
}
