package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iigoraya/p2p-auction/internal/adapters/db"
	"github.com/iigoraya/p2p-auction/internal/adapters/store"
	"github.com/iigoraya/p2p-auction/internal/app"
	"github.com/iigoraya/p2p-auction/internal/config"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
)

func newTestEndpoint(t *testing.T) *Invoker {
	t.Helper()

	repo := db.NewAuctionRepository(db.AuctionRepositoryParams{
		Store:  store.NewMemoryStore(),
		Logger: zerolog.Nop(),
	})
	service := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: repo,
		Logger:      zerolog.Nop(),
	})
	handler := NewHandler(HandlerParams{
		AuctionService: service,
		Logger:         zerolog.Nop(),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", handler.HandleRPC)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	invoker, err := NewInvoker(ctx, InvokerParams{
		Identity: ServerIdentity{Addr: strings.TrimPrefix(ts.URL, "http://")},
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { invoker.Close() })

	return invoker
}

func callOK(t *testing.T, inv *Invoker, op Operation, payload interface{}, out interface{}) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := inv.Call(ctx, op, payload)
	require.NoError(t, err)
	require.True(t, resp.OK, "unexpected failure: %s", resp.Message)
	if out != nil {
		require.NoError(t, json.Unmarshal(resp.Payload, out))
	}
}

func callFail(t *testing.T, inv *Invoker, op Operation, payload interface{}) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := inv.Call(ctx, op, payload)
	require.NoError(t, err)
	require.False(t, resp.OK)
	return resp.Message
}

func TestEndpointRoundTrip(t *testing.T) {
	inv := newTestEndpoint(t)

	var opened OpenAuctionResult
	callOK(t, inv, OpOpenAuction, OpenAuctionPayload{ItemDesc: "Vintage Clock", StartingPrice: 100}, &opened)
	require.Len(t, opened.AuctionID, shared.IDSize*2)

	var bid SubmitBidResult
	callOK(t, inv, OpSubmitBid, SubmitBidPayload{AuctionID: opened.AuctionID, Amount: 50, BidderID: "bidderX"}, &bid)
	assert.Equal(t, "Bid submitted successfully", bid.Message)

	msg := callFail(t, inv, OpSubmitBid, SubmitBidPayload{AuctionID: opened.AuctionID, Amount: 30, BidderID: "bidderY"})
	assert.Equal(t, "bid amount must be higher than current highest bid", msg)

	var closed CloseAuctionResult
	callOK(t, inv, OpCloseAuction, CloseAuctionPayload{AuctionID: opened.AuctionID, ClientID: "closer"}, &closed)
	assert.Equal(t, "Auction closed successfully", closed.Message)
	assert.Equal(t, "bidderX", closed.Winner)

	msg = callFail(t, inv, OpSubmitBid, SubmitBidPayload{AuctionID: opened.AuctionID, Amount: 1000})
	assert.Equal(t, "auction is closed", msg)

	var view AuctionView
	callOK(t, inv, OpGetAuction, GetAuctionPayload{AuctionID: opened.AuctionID}, &view)
	assert.Equal(t, 50.0, view.HighestBid)
	assert.Equal(t, "closed", view.Status)
	assert.Equal(t, "bidderX", view.Winner)
}

func TestEndpointUnknownAuction(t *testing.T) {
	inv := newTestEndpoint(t)

	id, err := shared.NewID()
	require.NoError(t, err)

	msg := callFail(t, inv, OpSubmitBid, SubmitBidPayload{AuctionID: id.String(), Amount: 10})
	assert.Equal(t, "Auction not found", msg)

	msg = callFail(t, inv, OpCloseAuction, CloseAuctionPayload{AuctionID: id.String()})
	assert.Equal(t, "Auction not found", msg)
}

func TestEndpointValidationFailures(t *testing.T) {
	inv := newTestEndpoint(t)

	msg := callFail(t, inv, OpOpenAuction, OpenAuctionPayload{ItemDesc: "", StartingPrice: 5})
	assert.Equal(t, "item description is required", msg)

	msg = callFail(t, inv, OpSubmitBid, SubmitBidPayload{AuctionID: "zz", Amount: 5})
	assert.Equal(t, "invalid auction id", msg)

	msg = callFail(t, inv, Operation("transferFunds"), struct{}{})
	assert.Equal(t, "unknown operation", msg)
}

func TestEndpointConcurrentCalls(t *testing.T) {
	inv := newTestEndpoint(t)

	var opened OpenAuctionResult
	callOK(t, inv, OpOpenAuction, OpenAuctionPayload{ItemDesc: "contended", StartingPrice: 0}, &opened)

	const callers = 20
	var wg sync.WaitGroup
	for i := 1; i <= callers; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			resp, err := inv.Call(ctx, OpSubmitBid, SubmitBidPayload{
				AuctionID: opened.AuctionID,
				Amount:    amount,
				BidderID:  "bidder",
			})
			assert.NoError(t, err)
			assert.NotNil(t, resp)
		}(float64(i))
	}
	wg.Wait()

	var view AuctionView
	callOK(t, inv, OpGetAuction, GetAuctionPayload{AuctionID: opened.AuctionID}, &view)
	assert.Equal(t, float64(callers), view.HighestBid)
}

// A burst larger than the dispatch pool's worker count must still be answered
// in full; requests beyond the worker limit queue instead of being dropped.
func TestEndpointAnswersBurstBeyondWorkerLimit(t *testing.T) {
	inv := newTestEndpoint(t)

	var opened OpenAuctionResult
	callOK(t, inv, OpOpenAuction, OpenAuctionPayload{ItemDesc: "burst", StartingPrice: 1}, &opened)

	const calls = 4 * config.RPCMaxWorkers
	var wg sync.WaitGroup
	answered := make(chan *Response, calls)

	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			resp, err := inv.Call(ctx, OpGetAuction, GetAuctionPayload{AuctionID: opened.AuctionID})
			assert.NoError(t, err)
			if resp != nil {
				answered <- resp
			}
		}()
	}
	wg.Wait()
	close(answered)

	var count int
	for resp := range answered {
		assert.True(t, resp.OK, "unexpected failure: %s", resp.Message)
		count++
	}
	assert.Equal(t, calls, count)
}
