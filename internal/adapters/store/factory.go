package store

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iigoraya/p2p-auction/internal/config"
	"github.com/iigoraya/p2p-auction/internal/ports/outbound"
)

// NewStore creates the configured store backend. A failure here means the
// service cannot persist anything and startup must abort.
func NewStore(cfg *config.Config, logger zerolog.Logger) (outbound.KeyValueStore, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendBadger:
		return NewBadgerStore(BadgerStoreParams{
			Dir:        cfg.Store.BadgerDir,
			SyncWrites: cfg.Store.SyncWrites,
			Logger:     logger,
		})
	case config.StoreBackendPostgres:
		return NewPostgresStore(PostgresStoreParams{
			URL:    cfg.Store.PostgresURL,
			Logger: logger,
		})
	case config.StoreBackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}
