package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
	"github.com/iigoraya/p2p-auction/internal/ports/outbound"
)

// maxCreateAttempts bounds identifier re-derivation on collision. With
// 256-bit identifiers a second attempt is already vanishingly unlikely.
const maxCreateAttempts = 3

// AuctionRepository implements the auction repository interface on top of
// the durable ordered store. Records are stored as JSON keyed by the hex
// identifier, and every read-modify-write runs inside a per-identifier
// critical section so concurrent updates on one auction cannot lose writes.
type AuctionRepository struct {
	store  outbound.KeyValueStore
	locks  *keyedMutex
	logger zerolog.Logger
}

type AuctionRepositoryParams struct {
	Store  outbound.KeyValueStore
	Logger zerolog.Logger
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(params AuctionRepositoryParams) *AuctionRepository {
	return &AuctionRepository{
		store:  params.Store,
		locks:  newKeyedMutex(),
		logger: params.Logger.With().Str("component", "auction_repository").Logger(),
	}
}

// Create generates a fresh identifier and persists a new open auction with a
// conditional write. On the negligible-probability identifier collision the
// id is re-derived instead of overwriting an existing record.
func (r *AuctionRepository) Create(ctx context.Context, itemDesc string, startingPrice float64) (shared.ID, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := shared.NewID()
		if err != nil {
			return shared.ID{}, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}

		now := time.Now()
		record := &auction.Auction{
			ID:            id,
			ItemDesc:      itemDesc,
			StartingPrice: startingPrice,
			HighestBid:    0,
			Status:        auction.StatusOpen,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		value, err := json.Marshal(record)
		if err != nil {
			return shared.ID{}, fmt.Errorf("%w: failed to encode auction: %v", shared.ErrStorageFailure, err)
		}

		err = r.store.PutIfAbsent(ctx, id.String(), value)
		if errors.Is(err, shared.ErrKeyExists) {
			r.logger.Warn().
				Str("auction_id", id.String()).
				Int("attempt", attempt+1).
				Msg("Identifier collision, re-deriving")
			continue
		}
		if err != nil {
			r.logger.Error().Err(err).Str("auction_id", id.String()).Msg("Failed to persist auction")
			return shared.ID{}, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}

		return id, nil
	}

	return shared.ID{}, fmt.Errorf("%w: identifier collisions on %d consecutive attempts", shared.ErrStorageFailure, maxCreateAttempts)
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id shared.ID) (*auction.Auction, error) {
	value, err := r.store.Get(ctx, id.String())
	if err != nil {
		if errors.Is(err, shared.ErrKeyNotFound) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	return decodeAuction(id.String(), value)
}

// Update fetches the current record, applies mutate and persists the result
// atomically with respect to other updates on the same identifier. The
// decision inside mutate is always based on the value visible within the
// critical section, never on a stale earlier read.
func (r *AuctionRepository) Update(ctx context.Context, id shared.ID, mutate func(*auction.Auction) error) error {
	unlock := r.locks.lock(id.String())
	defer unlock()

	value, err := r.store.Get(ctx, id.String())
	if err != nil {
		if errors.Is(err, shared.ErrKeyNotFound) {
			return shared.ErrAuctionNotFound
		}
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	record, err := decodeAuction(id.String(), value)
	if err != nil {
		return err
	}

	if err := mutate(record); err != nil {
		if errors.Is(err, shared.ErrUnchanged) {
			return nil
		}
		return err
	}

	updated, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: failed to encode auction: %v", shared.ErrStorageFailure, err)
	}

	if err := r.store.Put(ctx, id.String(), updated); err != nil {
		r.logger.Error().Err(err).Str("auction_id", id.String()).Msg("Failed to persist auction update")
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	return nil
}

// List retrieves all auctions in identifier order
func (r *AuctionRepository) List(ctx context.Context) ([]*auction.Auction, error) {
	var auctions []*auction.Auction

	err := r.store.Scan(ctx, func(key string, value []byte) error {
		record, err := decodeAuction(key, value)
		if err != nil {
			return err
		}
		auctions = append(auctions, record)
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrStorageFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	return auctions, nil
}

func decodeAuction(key string, value []byte) (*auction.Auction, error) {
	var record auction.Auction
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, fmt.Errorf("%w: corrupt auction record %s: %v", shared.ErrStorageFailure, key, err)
	}
	return &record, nil
}
