package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/config"
	"github.com/iigoraya/p2p-auction/internal/ports/inbound"
)

// Server exposes the auction RPC endpoint over HTTP/websocket
type Server struct {
	handler    *Handler
	httpServer *http.Server
	config     *config.Config
	logger     zerolog.Logger
}

type ServerParams struct {
	Config         *config.Config
	AuctionService inbound.AuctionService
	Logger         zerolog.Logger
}

func NewServer(params ServerParams) *Server {
	handler := NewHandler(HandlerParams{
		AuctionService: params.AuctionService,
		Logger:         params.Logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", handler.HandleRPC)
	mux.HandleFunc("/health", handleHealth)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", params.Config.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Minute,
	}

	return &Server{
		handler:    handler,
		httpServer: httpServer,
		config:     params.Config,
		logger:     params.Logger,
	}
}

// Start starts the RPC server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Server.Port).Msg("Starting RPC server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start RPC server: %w", err)
	}

	return nil
}

// Stop gracefully stops the RPC server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping RPC server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown RPC server: %w", err)
	}

	s.logger.Info().Msg("RPC server stopped")
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok", "service": "p2p-auction"}`))
}
