package discovery

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Registry errors
var (
	ErrServerNotFound    = errors.New("server not found at rendezvous")
	ErrBadAnnouncement   = errors.New("announcement signature verification failed")
	ErrServerKeyMismatch = errors.New("announced server key does not match expected key")
)

// Announcement is the record a server publishes at the rendezvous so clients
// can locate it without a pre-shared address. The signature covers public
// key and address so a client holding the key out-of-band can verify the
// resolved record.
type Announcement struct {
	PublicKey string `json:"public_key"`
	Addr      string `json:"addr"`
	Signature string `json:"signature"`
}

func (a *Announcement) signedMessage() []byte {
	return []byte(a.PublicKey + "|" + a.Addr)
}

// Verify checks the announcement signature against its own public key
func (a *Announcement) Verify() error {
	pub, err := hex.DecodeString(a.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return ErrBadAnnouncement
	}

	sig, err := hex.DecodeString(a.Signature)
	if err != nil {
		return ErrBadAnnouncement
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), a.signedMessage(), sig) {
		return ErrBadAnnouncement
	}
	return nil
}

// RedisRegistry implements rendezvous discovery on Redis: the server keeps a
// signed announcement alive under a well-known topic with a TTL, clients
// read and verify it.
type RedisRegistry struct {
	client *redis.Client
	topic  string
	ttl    time.Duration
	logger zerolog.Logger
}

type RedisRegistryParams struct {
	RedisClient *redis.Client
	Topic       string
	TTL         time.Duration
	Logger      zerolog.Logger
}

// NewRegistry creates a new rendezvous registry
func NewRegistry(params RedisRegistryParams) *RedisRegistry {
	return &RedisRegistry{
		client: params.RedisClient,
		topic:  params.Topic,
		ttl:    params.TTL,
		logger: params.Logger.With().Str("component", "redis_registry").Logger(),
	}
}

func (r *RedisRegistry) rendezvousKey() string {
	return fmt.Sprintf("auction:rendezvous:%s", r.topic)
}

// Announce publishes the signed announcement at the rendezvous with the
// configured TTL
func (r *RedisRegistry) Announce(ctx context.Context, identity *Identity, addr string) error {
	record := Announcement{
		PublicKey: identity.PublicHex(),
		Addr:      addr,
	}
	record.Signature = hex.EncodeToString(identity.Sign(record.signedMessage()))

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	if err := r.client.Set(ctx, r.rendezvousKey(), encoded, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to announce at rendezvous: %w", err)
	}

	return nil
}

// StartAnnouncing keeps the announcement alive until the context is
// cancelled, refreshing well inside the TTL window.
func (r *RedisRegistry) StartAnnouncing(ctx context.Context, identity *Identity, addr string) {
	interval := r.ttl / 3
	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Announce(ctx, identity, addr); err != nil {
					r.logger.Error().Err(err).Msg("Failed to refresh rendezvous announcement")
				}
			case <-ctx.Done():
				r.logger.Debug().Msg("Stopping rendezvous announcements")
				return
			}
		}
	}()
}

// Resolve reads and verifies the announcement at the rendezvous. When
// expectedKeyHex is non-empty (the operator provided the server key
// out-of-band) the announced key must match.
func (r *RedisRegistry) Resolve(ctx context.Context, expectedKeyHex string) (*Announcement, error) {
	encoded, err := r.client.Get(ctx, r.rendezvousKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrServerNotFound
		}
		return nil, fmt.Errorf("failed to resolve rendezvous: %w", err)
	}

	var record Announcement
	if err := json.Unmarshal([]byte(encoded), &record); err != nil {
		return nil, fmt.Errorf("corrupt announcement at rendezvous: %w", err)
	}

	if err := record.Verify(); err != nil {
		return nil, err
	}

	if expectedKeyHex != "" && record.PublicKey != expectedKeyHex {
		return nil, ErrServerKeyMismatch
	}

	r.logger.Info().
		Str("public_key", record.PublicKey).
		Str("addr", record.Addr).
		Msg("Resolved server at rendezvous")

	return &record, nil
}
