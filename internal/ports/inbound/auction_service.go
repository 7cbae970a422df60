package inbound

import (
	"context"

	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// OpenAuction creates a new open auction and returns its identifier
	OpenAuction(ctx context.Context, req OpenAuctionRequest) (*OpenAuctionResult, error)

	// SubmitBid places a bid on an open auction
	SubmitBid(ctx context.Context, req SubmitBidRequest) (*SubmitBidResult, error)

	// CloseAuction transitions an auction to its terminal state and fixes
	// the winner; closing an already closed auction is idempotent
	CloseAuction(ctx context.Context, req CloseAuctionRequest) (*CloseAuctionResult, error)

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID shared.ID) (*auction.Auction, error)

	// ListAuctions retrieves all auctions
	ListAuctions(ctx context.Context) ([]*auction.Auction, error)
}

// request to open an auction
type OpenAuctionRequest struct {
	ItemDesc      string  `json:"item_desc"`
	StartingPrice float64 `json:"starting_price"`
}

// OpenAuctionResult carries the identifier assigned to a new auction
type OpenAuctionResult struct {
	AuctionID shared.ID `json:"auction_id"`
}

// request to place a bid
type SubmitBidRequest struct {
	AuctionID shared.ID `json:"auction_id"`
	Amount    float64   `json:"amount"`
	BidderID  string    `json:"bidder_id"`
}

// SubmitBidResult reports the highest bid after a successful submission
type SubmitBidResult struct {
	AuctionID  shared.ID `json:"auction_id"`
	HighestBid float64   `json:"highest_bid"`
}

// request to close an auction
type CloseAuctionRequest struct {
	AuctionID shared.ID `json:"auction_id"`
	ClientID  string    `json:"client_id"`
}

// CloseAuctionResult reports the winner fixed at close time
type CloseAuctionResult struct {
	AuctionID     shared.ID `json:"auction_id"`
	Winner        string    `json:"winner"`
	AlreadyClosed bool      `json:"already_closed"`
}
