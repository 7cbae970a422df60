package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ServerIdentity names the server a client talks to: its public key rendered
// as hex and the address resolved for it. The identity is injected at
// construction instead of being discovered into ambient state.
type ServerIdentity struct {
	PublicKey string
	Addr      string
}

// Invoker issues requests against one server and correlates responses by
// request id. Calls may be issued concurrently from multiple goroutines.
type Invoker struct {
	identity ServerIdentity
	conn     *websocket.Conn
	writeMu  sync.Mutex

	mu      sync.Mutex
	pending map[uuid.UUID]chan *Response
	readErr error
	closed  bool

	logger zerolog.Logger
}

type InvokerParams struct {
	Identity ServerIdentity
	Logger   zerolog.Logger
}

// NewInvoker dials the server and starts the response reader
func NewInvoker(ctx context.Context, params InvokerParams) (*Invoker, error) {
	url := fmt.Sprintf("ws://%s/rpc", params.Identity.Addr)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial server at %s: %w", params.Identity.Addr, err)
	}

	invoker := &Invoker{
		identity: params.Identity,
		conn:     conn,
		pending:  make(map[uuid.UUID]chan *Response),
		logger:   params.Logger.With().Str("component", "rpc_invoker").Logger(),
	}

	go invoker.readLoop()

	return invoker, nil
}

// Identity returns the server identity this invoker was constructed with
func (inv *Invoker) Identity() ServerIdentity {
	return inv.identity
}

// Call issues one request and waits for the matching response. The returned
// error covers transport failures only; business-rule rejections arrive as a
// response with OK=false and are for the caller to interpret.
func (inv *Invoker) Call(ctx context.Context, op Operation, payload interface{}) (*Response, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req := &Request{
		ID:      uuid.New(),
		Op:      op,
		Payload: encoded,
	}

	respChan := make(chan *Response, 1)

	inv.mu.Lock()
	if inv.closed {
		readErr := inv.readErr
		inv.mu.Unlock()
		return nil, fmt.Errorf("connection closed: %w", readErr)
	}
	inv.pending[req.ID] = respChan
	inv.mu.Unlock()

	defer func() {
		inv.mu.Lock()
		delete(inv.pending, req.ID)
		inv.mu.Unlock()
	}()

	inv.writeMu.Lock()
	err = inv.conn.WriteJSON(req)
	inv.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp, ok := <-respChan:
		if !ok {
			inv.mu.Lock()
			readErr := inv.readErr
			inv.mu.Unlock()
			return nil, fmt.Errorf("connection closed: %w", readErr)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts down the connection
func (inv *Invoker) Close() error {
	return inv.conn.Close()
}

// readLoop forwards responses to their waiting callers until the connection
// dies, then fails every pending call.
func (inv *Invoker) readLoop() {
	for {
		var resp Response
		if err := inv.conn.ReadJSON(&resp); err != nil {
			inv.mu.Lock()
			inv.closed = true
			inv.readErr = err
			for id, ch := range inv.pending {
				close(ch)
				delete(inv.pending, id)
			}
			inv.mu.Unlock()
			return
		}

		inv.mu.Lock()
		respChan, ok := inv.pending[resp.ID]
		inv.mu.Unlock()

		if !ok {
			inv.logger.Warn().Str("request_id", resp.ID.String()).Msg("Dropping response with no pending call")
			continue
		}

		respChan <- &resp
	}
}
