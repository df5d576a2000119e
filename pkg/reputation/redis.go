package reputation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/leadfuse/leadfuse/pkg/protocol"
)

// RedisGate is the production reputation gate: counters in Redis shared by
// every worker, expiring with the rolling window.
type RedisGate struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisGate(client *redis.Client, logger *slog.Logger) *RedisGate {
	return &RedisGate{
		client: client,
		logger: logger.With("module", "reputation_gate"),
	}
}

// CanSend computes the current score for the tenant/channel pair. A denial
// carries the remaining window time as retry-after, so the deferred send
// re-checks once the counters have rolled over.
func (g *RedisGate) CanSend(ctx context.Context, tenantID, channel string) (protocol.Decision, error) {
	sentKey, failedKey := keys(tenantID, channel)

	pipe := g.client.Pipeline()
	sentCmd := pipe.Get(ctx, sentKey)
	failedCmd := pipe.Get(ctx, failedKey)
	ttlCmd := pipe.TTL(ctx, sentKey)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return protocol.Decision{}, fmt.Errorf("failed to read reputation counters: %w", err)
	}

	sent, _ := sentCmd.Int64()
	failed, _ := failedCmd.Int64()

	score := Score(sent, failed)
	if score >= CriticalFloor {
		return protocol.Decision{Allowed: true}, nil
	}

	retryAfter := DefaultRetryAfter
	if ttl, err := ttlCmd.Result(); err == nil && ttl > 0 {
		retryAfter = ttl
	}

	g.logger.InfoContext(ctx, "send deferred",
		"tenant_id", tenantID, "channel", channel,
		"score", score, "sent", sent, "failed", failed, "retry_after", retryAfter)

	return protocol.Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

// RecordResult feeds a delivery report into the window counters.
func (g *RedisGate) RecordResult(ctx context.Context, tenantID, channel string, delivered bool) error {
	sentKey, failedKey := keys(tenantID, channel)

	pipe := g.client.Pipeline()
	pipe.Incr(ctx, sentKey)
	pipe.Expire(ctx, sentKey, Window)

	if !delivered {
		pipe.Incr(ctx, failedKey)
		pipe.Expire(ctx, failedKey, Window)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record delivery result: %w", err)
	}

	return nil
}

// HealthCheck pings Redis.
func (g *RedisGate) HealthCheck(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func keys(tenantID, channel string) (string, string) {
	prefix := fmt.Sprintf("leadfuse:reputation:%s:%s", tenantID, channel)

	return prefix + ":sent", prefix + ":failed"
}

var _ protocol.ReputationGate = (*RedisGate)(nil)
