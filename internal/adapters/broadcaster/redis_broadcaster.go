package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/ports/outbound"
)

// RedisBroadcaster implements the broadcaster interface using Redis pub/sub.
// The auction service publishes lifecycle events; observers (e.g. the client
// CLI's watch command) subscribe per auction.
type RedisBroadcaster struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client: params.RedisClient,
		subs:   make(map[*redis.PubSub]struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

func channelName(auctionID string) string {
	return fmt.Sprintf("auction:%s", auctionID)
}

// Publish publishes an event to all subscribers of an auction via Redis
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionID string, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to marshal event")
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, channelName(auctionID), eventJSON)
	if err := result.Err(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to publish to Redis")
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to auction channel")

	return nil
}

// Subscribe delivers events for one auction on the returned channel until
// the cancel function is called
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionID string) (<-chan outbound.Event, func(), error) {
	pubsub := r.client.Subscribe(ctx, channelName(auctionID))

	// Confirm the subscription before events can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to auction channel: %w", err)
	}

	r.mu.Lock()
	r.subs[pubsub] = struct{}{}
	r.mu.Unlock()

	events := make(chan outbound.Event, 16)
	go r.forward(pubsub, auctionID, events)

	cancel := func() {
		r.mu.Lock()
		delete(r.subs, pubsub)
		r.mu.Unlock()

		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("auction_id", auctionID).Msg("Error closing Redis pubsub")
		}
	}

	return events, cancel, nil
}

// forward decodes Redis messages into events until the pubsub closes
func (r *RedisBroadcaster) forward(pubsub *redis.PubSub, auctionID string, events chan<- outbound.Event) {
	defer close(events)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Debug().Str("auction_id", auctionID).Msg("Redis channel closed")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("auction_id", auctionID).Msg("Failed to unmarshal broadcast event")
				continue
			}

			select {
			case events <- event:
			default:
				r.logger.Warn().Str("auction_id", auctionID).Msg("Subscriber channel full, dropping event")
			}

		case <-r.ctx.Done():
			r.logger.Debug().Str("auction_id", auctionID).Msg("Broadcaster context cancelled")
			return
		}
	}
}

// Close shuts down the broadcaster and every open subscription
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for pubsub := range r.subs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Msg("Error closing Redis pubsub")
		}
		delete(r.subs, pubsub)
	}

	return nil
}
