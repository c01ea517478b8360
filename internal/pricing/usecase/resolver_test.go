package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precios-app/pricingservice/internal/cache"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

func TestResolveNoActiveList(t *testing.T) {
	store := repo.NewMemoryStore()
	r := NewListResolver(store.PriceLists(), nil, 0)

	list, err := r.Resolve(context.Background(), uuid.New(), uuid.New(), nil, day("2026-06-15"))
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestResolveExcludesInactiveAndExpired(t *testing.T) {
	f := newFixture(t)

	draft := f.list
	draft.ID = uuid.New()
	draft.Status = domain.ListStatusDraft
	draft.StartDate = day("2026-06-01")
	f.store.AddPriceList(draft)

	expired := f.list
	expired.ID = uuid.New()
	expired.StartDate = day("2025-01-01")
	expired.EndDate = day("2025-12-31")
	f.store.AddPriceList(expired)

	r := NewListResolver(f.store.PriceLists(), nil, 0)
	got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.list.ID, got.ID)
}

func TestResolveValidityBoundsInclusive(t *testing.T) {
	f := newFixture(t)
	r := NewListResolver(f.store.PriceLists(), nil, 0)

	for _, on := range []time.Time{f.list.StartDate, f.list.EndDate} {
		got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, on)
		require.NoError(t, err)
		require.NotNil(t, got, "date %s should be covered", on)
		assert.Equal(t, f.list.ID, got.ID)
	}

	got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, day("2027-01-01"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolveChannelPreference(t *testing.T) {
	f := newFixture(t) // store channel, starts 2026-01-01

	web := f.list
	web.ID = uuid.New()
	web.Name = "Web"
	web.Channel = domain.ChannelWeb
	// Older start date; channel preference must still win over recency.
	web.StartDate = day("2025-06-01")
	f.store.AddPriceList(web)

	r := NewListResolver(f.store.PriceLists(), nil, 0)

	got, err := r.Resolve(context.Background(), f.companyID, f.branchID, chPtr(domain.ChannelWeb), f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, web.ID, got.ID)

	// No channel match falls back to the whole candidate set.
	got, err = r.Resolve(context.Background(), f.companyID, f.branchID, chPtr(domain.ChannelDistributor), f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.list.ID, got.ID)
}

func TestResolveLatestStartWins(t *testing.T) {
	f := newFixture(t)

	newer := f.list
	newer.ID = uuid.New()
	newer.Name = "Summer"
	newer.StartDate = day("2026-06-01")
	f.store.AddPriceList(newer)

	r := NewListResolver(f.store.PriceLists(), nil, 0)
	got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)
}

func TestResolveTieBreakDeterministic(t *testing.T) {
	f := newFixture(t)

	twin := f.list
	twin.ID = uuid.New()
	twin.Name = "Twin"
	f.store.AddPriceList(twin)

	wantID := f.list.ID
	if twin.ID.String() < wantID.String() {
		wantID = twin.ID
	}

	r := NewListResolver(f.store.PriceLists(), nil, 0)
	for i := 0; i < 20; i++ {
		got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, wantID, got.ID)
	}
}

func TestResolveCacheHitBypassesRepository(t *testing.T) {
	f := newFixture(t)

	mr := miniredis.RunT(t)
	c := cache.NewCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	r := NewListResolver(f.store.PriceLists(), c, time.Minute)
	got, err := r.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)

	// A resolver over an empty store but the same cache still finds the
	// list, proving the repository is bypassed on a hit.
	empty := NewListResolver(repo.NewMemoryStore().PriceLists(), c, time.Minute)
	got, err = empty.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.list.ID, got.ID)

	// Expired cache entries fall through to the repository again.
	mr.FastForward(2 * time.Minute)
	got, err = empty.Resolve(context.Background(), f.companyID, f.branchID, nil, f.asOf())
	require.NoError(t, err)
	assert.Nil(t, got)
}
