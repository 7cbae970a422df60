package auction

import (
	"time"

	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// Status represents the current status of an auction
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// NoBidsWinner is the winner sentinel recorded when an auction closes without
// a single accepted bid.
const NoBidsWinner = "no bids"

// AnonymousWinner is the winner sentinel recorded when the winning bid carried
// no bidder identity and the close request named no client either. A closed
// auction always has a non-empty winner.
const AnonymousWinner = "anonymous"

// Auction is the sole persisted entity: an item offered for sale, accepting
// bids until closed. ItemDesc and StartingPrice are immutable after creation;
// HighestBid is monotonically non-decreasing; Winner is set exactly once when
// the auction transitions to closed.
type Auction struct {
	ID            shared.ID `json:"id"`
	ItemDesc      string    `json:"item_desc"`
	StartingPrice float64   `json:"starting_price"`
	HighestBid    float64   `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	Winner        string    `json:"winner,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsOpen returns true if the auction is still accepting bids
func (a *Auction) IsOpen() bool {
	return a.Status == StatusOpen
}

// IsClosed returns true if the auction has reached its terminal state
func (a *Auction) IsClosed() bool {
	return a.Status == StatusClosed
}

// ApplyBid records a bid on the auction. The bid is accepted only while the
// auction is open and the amount exceeds the current highest bid; the bidder
// who placed the accepted bid is remembered so the winner can be determined
// at close time.
func (a *Auction) ApplyBid(amount float64, bidderID string) error {
	if a.IsClosed() {
		return shared.ErrAuctionClosed
	}
	if amount <= a.HighestBid {
		return shared.ErrBidTooLow
	}

	a.HighestBid = amount
	a.HighestBidder = bidderID
	a.UpdatedAt = time.Now()
	return nil
}

// Close transitions the auction to its terminal state and fixes the winner.
// The winner is the bidder who placed the highest accepted bid; fallback names
// the winner only for bids submitted without a bidder identity, and when it is
// empty too the AnonymousWinner sentinel is recorded. An auction with no
// accepted bids closes with the NoBidsWinner sentinel. Closing an already
// closed auction is a no-op.
func (a *Auction) Close(fallback string) {
	if a.IsClosed() {
		return
	}

	switch {
	case a.HighestBid <= 0:
		a.Winner = NoBidsWinner
	case a.HighestBidder != "":
		a.Winner = a.HighestBidder
	case fallback != "":
		a.Winner = fallback
	default:
		a.Winner = AnonymousWinner
	}

	a.Status = StatusClosed
	a.UpdatedAt = time.Now()
}
