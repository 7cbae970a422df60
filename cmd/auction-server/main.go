package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iigoraya/p2p-auction/internal/adapters/broadcaster"
	"github.com/iigoraya/p2p-auction/internal/adapters/db"
	"github.com/iigoraya/p2p-auction/internal/adapters/discovery"
	"github.com/iigoraya/p2p-auction/internal/adapters/redis"
	"github.com/iigoraya/p2p-auction/internal/adapters/rpc"
	"github.com/iigoraya/p2p-auction/internal/adapters/store"
	"github.com/iigoraya/p2p-auction/internal/app"
	"github.com/iigoraya/p2p-auction/internal/config"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting auction server...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the durable store; failure here aborts startup
	kvStore, err := store.NewStore(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open durable store")
	}
	defer kvStore.Close()

	log.Info().Str("backend", cfg.Store.Backend).Msg("Durable store opened")

	auctionRepo := db.NewAuctionRepository(db.AuctionRepositoryParams{
		Store:  kvStore,
		Logger: log.Logger,
	})

	// Create Redis client for discovery and event broadcasting
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	redisBroadcaster := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      log.Logger,
	})
	defer redisBroadcaster.Close()

	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionRepo: auctionRepo,
		Broadcaster: redisBroadcaster,
		Logger:      log.Logger,
	})

	log.Info().Msg("Auction service initialized")

	// Load the server identity and announce it at the rendezvous
	identity, err := discovery.LoadOrCreateIdentity(cfg.Discovery.ServerKeyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load server identity")
	}

	log.Info().Str("public_key", identity.PublicHex()).Msg("Server listening on public key")

	registry := discovery.NewRegistry(discovery.RedisRegistryParams{
		RedisClient: redisClient,
		Topic:       cfg.Discovery.RendezvousTopic,
		TTL:         cfg.Discovery.AnnounceTTL,
		Logger:      log.Logger,
	})

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	if err := registry.Announce(ctx, identity, serverAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to announce at rendezvous")
	}
	registry.StartAnnouncing(ctx, identity, serverAddr)

	log.Info().
		Str("topic", cfg.Discovery.RendezvousTopic).
		Str("addr", serverAddr).
		Msg("Announced at rendezvous")

	rpcServer := rpc.NewServer(rpc.ServerParams{
		Config:         cfg,
		AuctionService: auctionService,
		Logger:         log.Logger,
	})

	// Start RPC server
	go func() {
		if err := rpcServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start RPC server")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := rpcServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping RPC server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
