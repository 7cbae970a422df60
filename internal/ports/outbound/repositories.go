package outbound

import (
	"context"

	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// AuctionRepository defines the interface for auction data operations
type AuctionRepository interface {
	// Create generates a fresh unique identifier, persists a new open
	// auction record and returns the identifier
	Create(ctx context.Context, itemDesc string, startingPrice float64) (shared.ID, error)

	// GetByID retrieves an auction by ID, or shared.ErrAuctionNotFound
	GetByID(ctx context.Context, id shared.ID) (*auction.Auction, error)

	// Update fetches the current record, applies mutate and persists the
	// result. The read-modify-write is atomic with respect to other Update
	// calls on the same identifier. When mutate returns shared.ErrUnchanged
	// the record is left untouched and Update reports success; any other
	// mutate error aborts without persisting.
	Update(ctx context.Context, id shared.ID, mutate func(*auction.Auction) error) error

	// List retrieves all auctions in identifier order
	List(ctx context.Context) ([]*auction.Auction, error)
}
