package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
	"github.com/iigoraya/p2p-auction/internal/ports/inbound"
	"github.com/iigoraya/p2p-auction/internal/ports/outbound"
)

// AuctionService implements the auction state machine: auctions transition
// from open to closed exactly once, bids are serialized per auction through
// the repository's atomic update, and every business-rule rejection is
// returned to the caller as a structured error, never a transport fault.
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	broadcaster outbound.Broadcaster
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	Broadcaster outbound.Broadcaster
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		broadcaster: params.Broadcaster,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// OpenAuction creates a new open auction and returns its identifier
func (service *AuctionService) OpenAuction(ctx context.Context, req inbound.OpenAuctionRequest) (*inbound.OpenAuctionResult, error) {
	service.logger.Info().
		Str("item_desc", req.ItemDesc).
		Float64("starting_price", req.StartingPrice).
		Msg("Attempting to open auction")

	if strings.TrimSpace(req.ItemDesc) == "" {
		service.logger.Warn().Msg("Item description is required")
		return nil, shared.ErrItemDescRequired
	}

	if req.StartingPrice < 0 {
		service.logger.Warn().Float64("starting_price", req.StartingPrice).Msg("Starting price must not be negative")
		return nil, shared.ErrNegativeStartingPrice
	}

	auctionID, err := service.auctionRepo.Create(ctx, req.ItemDesc, req.StartingPrice)
	if err != nil {
		service.logger.Error().Err(err).Msg("Failed to create auction")
		return nil, err
	}

	service.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("item_desc", req.ItemDesc).
		Float64("starting_price", req.StartingPrice).
		Msg("Auction opened successfully")

	service.publish(ctx, auctionID, outbound.Event{
		Type:      outbound.EventTypeAuctionCreated,
		AuctionID: auctionID.String(),
		Data: map[string]interface{}{
			"item_desc":      req.ItemDesc,
			"starting_price": req.StartingPrice,
		},
	})

	return &inbound.OpenAuctionResult{AuctionID: auctionID}, nil
}

// SubmitBid places a bid on an open auction. The comparison against the
// current highest bid happens inside the repository's critical section, so
// concurrent submissions on one auction are linearizable.
func (service *AuctionService) SubmitBid(ctx context.Context, req inbound.SubmitBidRequest) (*inbound.SubmitBidResult, error) {
	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID).
		Float64("amount", req.Amount).
		Msg("Attempting to submit bid")

	if req.Amount <= 0 {
		service.logger.Warn().Float64("amount", req.Amount).Msg("Invalid bid amount (must be > 0)")
		return nil, shared.ErrInvalidAmount
	}

	err := service.auctionRepo.Update(ctx, req.AuctionID, func(a *auction.Auction) error {
		return a.ApplyBid(req.Amount, req.BidderID)
	})
	if err != nil {
		service.logBidRejection(req, err)
		return nil, err
	}

	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID).
		Float64("amount", req.Amount).
		Msg("Bid submitted successfully")

	service.publish(ctx, req.AuctionID, outbound.Event{
		Type:      outbound.EventTypeBidAccepted,
		AuctionID: req.AuctionID.String(),
		Data: map[string]interface{}{
			"bidder_id": req.BidderID,
			"amount":    req.Amount,
		},
	})

	return &inbound.SubmitBidResult{
		AuctionID:  req.AuctionID,
		HighestBid: req.Amount,
	}, nil
}

// CloseAuction transitions an auction to its terminal state and fixes the
// winner. Closing an already closed auction returns the recorded winner
// without mutating the record.
func (service *AuctionService) CloseAuction(ctx context.Context, req inbound.CloseAuctionRequest) (*inbound.CloseAuctionResult, error) {
	service.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("client_id", req.ClientID).
		Msg("Attempting to close auction")

	var winner string
	var alreadyClosed bool

	err := service.auctionRepo.Update(ctx, req.AuctionID, func(a *auction.Auction) error {
		if a.IsClosed() {
			winner = a.Winner
			alreadyClosed = true
			return shared.ErrUnchanged
		}

		a.Close(req.ClientID)
		winner = a.Winner
		return nil
	})
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to close auction")
		return nil, err
	}

	if alreadyClosed {
		service.logger.Warn().
			Str("auction_id", req.AuctionID.String()).
			Str("winner", winner).
			Msg("Auction already closed, returning recorded winner")
	} else {
		service.logger.Info().
			Str("auction_id", req.AuctionID.String()).
			Str("winner", winner).
			Msg("Auction closed successfully")

		service.publish(ctx, req.AuctionID, outbound.Event{
			Type:      outbound.EventTypeAuctionClosed,
			AuctionID: req.AuctionID.String(),
			Data: map[string]interface{}{
				"winner": winner,
			},
		})
	}

	return &inbound.CloseAuctionResult{
		AuctionID:     req.AuctionID,
		Winner:        winner,
		AlreadyClosed: alreadyClosed,
	}, nil
}

// GetAuction retrieves an auction by ID
func (service *AuctionService) GetAuction(ctx context.Context, auctionID shared.ID) (*auction.Auction, error) {
	service.logger.Debug().Str("auction_id", auctionID.String()).Msg("Retrieving auction")

	record, err := service.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		service.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction")
		return nil, err
	}

	return record, nil
}

// ListAuctions retrieves all auctions in identifier order
func (service *AuctionService) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	service.logger.Debug().Msg("Listing auctions")
	return service.auctionRepo.List(ctx)
}

func (service *AuctionService) logBidRejection(req inbound.SubmitBidRequest, err error) {
	switch err {
	case shared.ErrAuctionNotFound:
		service.logger.Warn().Str("auction_id", req.AuctionID.String()).Msg("Auction not found")
	case shared.ErrAuctionClosed:
		service.logger.Warn().Str("auction_id", req.AuctionID.String()).Msg("Bid rejected, auction is closed")
	case shared.ErrBidTooLow:
		service.logger.Warn().
			Str("auction_id", req.AuctionID.String()).
			Float64("amount", req.Amount).
			Msg("Bid rejected, amount not higher than current highest bid")
	default:
		service.logger.Error().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Failed to submit bid")
	}
}

// publish forwards an event to the broadcaster when one is configured. Event
// delivery is best effort and never fails the operation that produced it.
func (service *AuctionService) publish(ctx context.Context, auctionID shared.ID, event outbound.Event) {
	if service.broadcaster == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	if err := service.broadcaster.Publish(ctx, auctionID.String(), event); err != nil {
		service.logger.Error().Err(err).
			Str("auction_id", auctionID.String()).
			Str("event_type", string(event.Type)).
			Msg("Failed to broadcast event")
	}
}
