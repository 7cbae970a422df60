package outbound

import "context"

// EventType represents the type of event being broadcasted
type EventType string

const (
	EventTypeAuctionCreated EventType = "auction.created"
	EventTypeBidAccepted    EventType = "bid.accepted"
	EventTypeAuctionClosed  EventType = "auction.closed"
)

// Event represents a broadcast event
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID string                 `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster defines the interface for fanning out auction events to
// interested observers
type Broadcaster interface {
	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID string, event Event) error

	// Subscribe delivers events for a specific auction on the returned
	// channel until the cancel function is called
	Subscribe(ctx context.Context, auctionID string) (<-chan Event, func(), error)

	// Close shuts down the broadcaster and its subscriptions
	Close() error
}
