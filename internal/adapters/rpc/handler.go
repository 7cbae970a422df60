package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/config"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
	"github.com/iigoraya/p2p-auction/internal/ports/inbound"
)

// Handler accepts websocket connections, reads request envelopes, dispatches
// them to the auction service by operation name and writes the responses
// back. Requests on one connection are served concurrently on a bounded
// worker pool; writes are serialized per connection.
type Handler struct {
	upgrader       websocket.Upgrader
	auctionService inbound.AuctionService
	logger         zerolog.Logger
}

type HandlerParams struct {
	Upgrader       websocket.Upgrader
	AuctionService inbound.AuctionService
	Logger         zerolog.Logger
}

// NewHandler creates a new RPC handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		upgrader:       params.Upgrader,
		auctionService: params.AuctionService,
		logger:         params.Logger.With().Str("component", "rpc_handler").Logger(),
	}
}

// HandleRPC handles one client connection for its whole lifetime
func (handler *Handler) HandleRPC(w http.ResponseWriter, r *http.Request) {
	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade RPC connection")
		return
	}
	defer conn.Close()

	handler.logger.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("RPC client connected")

	var writeMu sync.Mutex

	workerPool := pond.New(
		config.RPCMaxWorkers,
		config.RPCMaxCapacity,
		pond.Context(r.Context()),
		pond.Strategy(pond.Balanced()),
	)
	defer workerPool.StopAndWait()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				handler.logger.Warn().Err(err).Msg("RPC connection closed unexpectedly")
			}
			break
		}

		req, err := ParseRequest(data)
		if err != nil {
			handler.logger.Warn().Err(err).Msg("Rejecting malformed request")
			handler.write(conn, &writeMu, failureResponse(uuidOrZero(req), "malformed request: "+err.Error()))
			continue
		}

		workerPool.Submit(func() {
			resp := handler.dispatch(r.Context(), req)
			handler.write(conn, &writeMu, resp)
		})
	}

	handler.logger.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("RPC client disconnected")
}

// dispatch routes one request to the matching auction service operation
func (handler *Handler) dispatch(ctx context.Context, req *Request) *Response {
	switch req.Op {
	case OpOpenAuction:
		return handler.handleOpenAuction(ctx, req)

	case OpSubmitBid:
		return handler.handleSubmitBid(ctx, req)

	case OpCloseAuction:
		return handler.handleCloseAuction(ctx, req)

	case OpGetAuction:
		return handler.handleGetAuction(ctx, req)

	case OpListAuctions:
		return handler.handleListAuctions(ctx, req)

	default:
		handler.logger.Warn().Str("op", string(req.Op)).Msg("Unknown operation from client")
		return failureResponse(req.ID, shared.ErrUnknownOperation.Error())
	}
}

func (handler *Handler) handleOpenAuction(ctx context.Context, req *Request) *Response {
	var payload OpenAuctionPayload
	if resp := decodePayload(req, &payload); resp != nil {
		return resp
	}
	if err := payload.Validate(); err != nil {
		return failureResponse(req.ID, err.Error())
	}

	result, err := handler.auctionService.OpenAuction(ctx, inbound.OpenAuctionRequest{
		ItemDesc:      payload.ItemDesc,
		StartingPrice: payload.StartingPrice,
	})
	if err != nil {
		return handler.failure(req, err, "Failed to open auction")
	}

	return successResponse(req.ID, OpenAuctionResult{AuctionID: result.AuctionID.String()})
}

func (handler *Handler) handleSubmitBid(ctx context.Context, req *Request) *Response {
	var payload SubmitBidPayload
	if resp := decodePayload(req, &payload); resp != nil {
		return resp
	}
	if err := payload.Validate(); err != nil {
		return failureResponse(req.ID, err.Error())
	}

	auctionID, _ := shared.ParseID(payload.AuctionID)
	_, err := handler.auctionService.SubmitBid(ctx, inbound.SubmitBidRequest{
		AuctionID: auctionID,
		Amount:    payload.Amount,
		BidderID:  payload.BidderID,
	})
	if err != nil {
		return handler.failure(req, err, "Failed to submit bid")
	}

	return successResponse(req.ID, SubmitBidResult{Message: "Bid submitted successfully"})
}

func (handler *Handler) handleCloseAuction(ctx context.Context, req *Request) *Response {
	var payload CloseAuctionPayload
	if resp := decodePayload(req, &payload); resp != nil {
		return resp
	}
	if err := payload.Validate(); err != nil {
		return failureResponse(req.ID, err.Error())
	}

	auctionID, _ := shared.ParseID(payload.AuctionID)
	result, err := handler.auctionService.CloseAuction(ctx, inbound.CloseAuctionRequest{
		AuctionID: auctionID,
		ClientID:  payload.ClientID,
	})
	if err != nil {
		return handler.failure(req, err, "Failed to close auction")
	}

	return successResponse(req.ID, CloseAuctionResult{
		Message: "Auction closed successfully",
		Winner:  result.Winner,
	})
}

func (handler *Handler) handleGetAuction(ctx context.Context, req *Request) *Response {
	var payload GetAuctionPayload
	if resp := decodePayload(req, &payload); resp != nil {
		return resp
	}
	if err := payload.Validate(); err != nil {
		return failureResponse(req.ID, err.Error())
	}

	auctionID, _ := shared.ParseID(payload.AuctionID)
	record, err := handler.auctionService.GetAuction(ctx, auctionID)
	if err != nil {
		return handler.failure(req, err, "Failed to get auction")
	}

	return successResponse(req.ID, NewAuctionView(record))
}

func (handler *Handler) handleListAuctions(ctx context.Context, req *Request) *Response {
	records, err := handler.auctionService.ListAuctions(ctx)
	if err != nil {
		return handler.failure(req, err, "Failed to list auctions")
	}

	views := make([]AuctionView, 0, len(records))
	for _, record := range records {
		views = append(views, NewAuctionView(record))
	}

	return successResponse(req.ID, ListAuctionsResult{Auctions: views})
}

// failure maps a service error to a structured failure response. Business
// rejections surface their own message; storage failures are logged and
// reported generically.
func (handler *Handler) failure(req *Request, err error, generic string) *Response {
	switch {
	case errors.Is(err, shared.ErrAuctionNotFound):
		return failureResponse(req.ID, "Auction not found")
	case errors.Is(err, shared.ErrAuctionClosed),
		errors.Is(err, shared.ErrBidTooLow),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrItemDescRequired),
		errors.Is(err, shared.ErrNegativeStartingPrice),
		errors.Is(err, shared.ErrInvalidAuctionID):
		return failureResponse(req.ID, err.Error())
	default:
		handler.logger.Error().Err(err).Str("op", string(req.Op)).Msg("Operation failed")
		return failureResponse(req.ID, generic)
	}
}

func (handler *Handler) write(conn *websocket.Conn, writeMu *sync.Mutex, resp *Response) {
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := conn.WriteJSON(resp); err != nil {
		handler.logger.Error().Err(err).Msg("Failed to write RPC response")
	}
}

func decodePayload(req *Request, out interface{}) *Response {
	if len(req.Payload) == 0 {
		return failureResponse(req.ID, shared.ErrInvalidRequest.Error())
	}
	if err := json.Unmarshal(req.Payload, out); err != nil {
		return failureResponse(req.ID, "malformed payload: "+err.Error())
	}
	return nil
}

func uuidOrZero(req *Request) uuid.UUID {
	if req != nil {
		return req.ID
	}
	return uuid.Nil
}
