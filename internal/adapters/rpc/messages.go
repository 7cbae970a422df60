package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

// Operation names one remote operation per request
type Operation string

const (
	OpOpenAuction  Operation = "openAuction"
	OpSubmitBid    Operation = "submitBid"
	OpCloseAuction Operation = "closeAuction"
	OpGetAuction   Operation = "getAuction"
	OpListAuctions Operation = "listAuctions"
)

// Request is the envelope for one remote invocation: a correlation id, the
// operation name and the operation's payload.
type Request struct {
	ID      uuid.UUID       `json:"id"`
	Op      Operation       `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope for one reply. Business-rule rejections arrive as
// ok=false with a message; they are never transport faults.
type Response struct {
	ID      uuid.UUID       `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// OpenAuctionPayload is the request payload for openAuction
type OpenAuctionPayload struct {
	ItemDesc      string  `json:"itemDesc"`
	StartingPrice float64 `json:"startingPrice"`
}

// Validate validates the payload before it enters business logic
func (p *OpenAuctionPayload) Validate() error {
	if p.ItemDesc == "" {
		return shared.ErrItemDescRequired
	}
	if p.StartingPrice < 0 {
		return shared.ErrNegativeStartingPrice
	}
	return nil
}

// OpenAuctionResult is the success payload for openAuction
type OpenAuctionResult struct {
	AuctionID string `json:"auctionId"`
}

// SubmitBidPayload is the request payload for submitBid. BidderID identifies
// who placed the bid so the winner can be determined at close time.
type SubmitBidPayload struct {
	AuctionID string  `json:"auctionId"`
	Amount    float64 `json:"amount"`
	BidderID  string  `json:"bidderId,omitempty"`
}

// Validate validates the payload before it enters business logic
func (p *SubmitBidPayload) Validate() error {
	if p.AuctionID == "" {
		return shared.ErrAuctionIDRequired
	}
	if _, err := shared.ParseID(p.AuctionID); err != nil {
		return shared.ErrInvalidAuctionID
	}
	if p.Amount <= 0 {
		return shared.ErrInvalidAmount
	}
	return nil
}

// SubmitBidResult is the success payload for submitBid
type SubmitBidResult struct {
	Message string `json:"message"`
}

// CloseAuctionPayload is the request payload for closeAuction
type CloseAuctionPayload struct {
	AuctionID string `json:"auctionId"`
	ClientID  string `json:"clientId,omitempty"`
}

// Validate validates the payload before it enters business logic
func (p *CloseAuctionPayload) Validate() error {
	if p.AuctionID == "" {
		return shared.ErrAuctionIDRequired
	}
	if _, err := shared.ParseID(p.AuctionID); err != nil {
		return shared.ErrInvalidAuctionID
	}
	return nil
}

// CloseAuctionResult is the success payload for closeAuction
type CloseAuctionResult struct {
	Message string `json:"message"`
	Winner  string `json:"winner"`
}

// GetAuctionPayload is the request payload for getAuction
type GetAuctionPayload struct {
	AuctionID string `json:"auctionId"`
}

// Validate validates the payload before it enters business logic
func (p *GetAuctionPayload) Validate() error {
	if p.AuctionID == "" {
		return shared.ErrAuctionIDRequired
	}
	if _, err := shared.ParseID(p.AuctionID); err != nil {
		return shared.ErrInvalidAuctionID
	}
	return nil
}

// AuctionView is the wire representation of an auction record
type AuctionView struct {
	AuctionID     string  `json:"auctionId"`
	ItemDesc      string  `json:"itemDesc"`
	StartingPrice float64 `json:"startingPrice"`
	HighestBid    float64 `json:"highestBid"`
	Winner        string  `json:"winner,omitempty"`
	Status        string  `json:"status"`
}

// ListAuctionsResult is the success payload for listAuctions
type ListAuctionsResult struct {
	Auctions []AuctionView `json:"auctions"`
}

// NewAuctionView converts a domain record into its wire representation
func NewAuctionView(a *auction.Auction) AuctionView {
	return AuctionView{
		AuctionID:     a.ID.String(),
		ItemDesc:      a.ItemDesc,
		StartingPrice: a.StartingPrice,
		HighestBid:    a.HighestBid,
		Winner:        a.Winner,
		Status:        string(a.Status),
	}
}

// ParseRequest parses and structurally validates a request envelope
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	if req.Op == "" {
		return nil, shared.ErrOperationRequired
	}

	return &req, nil
}

func successResponse(id uuid.UUID, payload interface{}) *Response {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return failureResponse(id, "failed to encode response")
	}
	return &Response{ID: id, OK: true, Payload: encoded}
}

func failureResponse(id uuid.UUID, message string) *Response {
	return &Response{ID: id, OK: false, Message: message}
}
