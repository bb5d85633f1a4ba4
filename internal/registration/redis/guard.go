package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ms-registration/internal/logger"

	"github.com/go-redis/redis/v8"
)

// DefaultEventTTL covers the provider's webhook retry window.
const DefaultEventTTL = 24 * time.Hour

const eventKeyPrefix = "stripe_event:"

// EventGuard records processed payment event ids so redelivered webhooks
// are acknowledged without registering twice.
type EventGuard struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewEventGuard(client *redis.Client, ttl time.Duration, log *logger.Logger) *EventGuard {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventGuard{Client: client, TTL: ttl, Logger: log}
}

func eventKey(eventID string) string {
	return eventKeyPrefix + eventID
}

// Claim marks eventID as in progress. It reports false when another
// delivery already claimed it. An empty id is always claimable.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	ok, err := g.Client.SetNX(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), g.TTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	if !ok {
		g.Logger.Info("REDIS", fmt.Sprintf("Event %s already processed, skipping", eventID))
	}
	return ok, nil
}

// Seen reports whether eventID has been claimed.
func (g *EventGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	_, err := g.Client.Get(ctx, eventKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release forgets a claim so the next delivery is processed again.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	return g.Client.Del(ctx, eventKey(eventID)).Err()
}
