package db

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iigoraya/p2p-auction/internal/adapters/store"
	"github.com/iigoraya/p2p-auction/internal/domain/auction"
	"github.com/iigoraya/p2p-auction/internal/domain/shared"
	"github.com/iigoraya/p2p-auction/internal/ports/outbound"
)

func newTestRepository(t *testing.T) *AuctionRepository {
	t.Helper()

	badgerStore, err := store.NewBadgerStore(store.BadgerStoreParams{
		Dir:        t.TempDir(),
		SyncWrites: false,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })

	return NewAuctionRepository(AuctionRepositoryParams{
		Store:  badgerStore,
		Logger: zerolog.Nop(),
	})
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "Vintage Clock", 100)
	require.NoError(t, err)

	record, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
	assert.Equal(t, "Vintage Clock", record.ItemDesc)
	assert.Equal(t, 100.0, record.StartingPrice)
	assert.Equal(t, 0.0, record.HighestBid)
	assert.Empty(t, record.Winner)
	assert.Equal(t, auction.StatusOpen, record.Status)
}

func TestCreateAssignsFreshIdentifiers(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seen := make(map[shared.ID]bool)
	for i := 0; i < 50; i++ {
		id, err := repo.Create(ctx, "item", 1)
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestGetMissingAuction(t *testing.T) {
	repo := newTestRepository(t)

	id, err := shared.NewID()
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestUpdateMissingAuction(t *testing.T) {
	repo := newTestRepository(t)

	id, err := shared.NewID()
	require.NoError(t, err)

	err = repo.Update(context.Background(), id, func(a *auction.Auction) error {
		t.Fatal("mutate must not run for a missing auction")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestUpdateAbortsWithoutPersistingOnMutateError(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "item", 10)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, func(a *auction.Auction) error {
		return a.ApplyBid(50, "bidder-1")
	}))

	err = repo.Update(ctx, id, func(a *auction.Auction) error {
		return a.ApplyBid(30, "bidder-2")
	})
	assert.ErrorIs(t, err, shared.ErrBidTooLow)

	record, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 50.0, record.HighestBid)
	assert.Equal(t, "bidder-1", record.HighestBidder)
}

func TestUpdateUnchangedSkipsPersist(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "item", 10)
	require.NoError(t, err)

	before, err := repo.GetByID(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, id, func(a *auction.Auction) error {
		a.HighestBid = 999 // must never be written
		return shared.ErrUnchanged
	}))

	after, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.HighestBid, after.HighestBid)
}

// Concurrent updates on one auction must serialize: after N concurrent bids
// with distinct amounts the stored highest bid equals the maximum, and the
// accepted count matches the bids that actually raised the running maximum.
func TestConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, "contended", 0)
	require.NoError(t, err)

	const bidders = 64
	var wg sync.WaitGroup
	var acceptedMu sync.Mutex
	accepted := 0

	for i := 1; i <= bidders; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			err := repo.Update(ctx, id, func(a *auction.Auction) error {
				return a.ApplyBid(amount, "bidder")
			})
			if err == nil {
				acceptedMu.Lock()
				accepted++
				acceptedMu.Unlock()
			} else {
				assert.ErrorIs(t, err, shared.ErrBidTooLow)
			}
		}(float64(i))
	}
	wg.Wait()

	record, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, float64(bidders), record.HighestBid)
	assert.GreaterOrEqual(t, accepted, 1)
	assert.LessOrEqual(t, accepted, bidders)
}

// collidingStore rejects the first conditional write to force an identifier
// re-derivation
type collidingStore struct {
	outbound.KeyValueStore
	mu       sync.Mutex
	rejected bool
}

func (s *collidingStore) PutIfAbsent(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	first := !s.rejected
	s.rejected = true
	s.mu.Unlock()

	if first {
		return shared.ErrKeyExists
	}
	return s.KeyValueStore.PutIfAbsent(ctx, key, value)
}

func TestCreateRederivesOnCollision(t *testing.T) {
	colliding := &collidingStore{KeyValueStore: store.NewMemoryStore()}
	repo := NewAuctionRepository(AuctionRepositoryParams{
		Store:  colliding,
		Logger: zerolog.Nop(),
	})

	id, err := repo.Create(context.Background(), "item", 1)
	require.NoError(t, err)

	record, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, record.ID)
}

func TestListReturnsAllAuctions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ids := make(map[shared.ID]bool)
	for i := 0; i < 5; i++ {
		id, err := repo.Create(ctx, "item", float64(i))
		require.NoError(t, err)
		ids[id] = true
	}

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, record := range records {
		assert.True(t, ids[record.ID])
	}
}
