package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/precios-app/pricingservice/internal/cache"
	"github.com/precios-app/pricingservice/internal/log"
	"github.com/precios-app/pricingservice/internal/pricing/domain"
	"github.com/precios-app/pricingservice/internal/pricing/repo"
)

// ListResolver selects the single price list governing a sale for a
// company/branch/channel on a given date.
type ListResolver struct {
	lists repo.PriceListRepository
	cache *cache.Cache // nil when Redis is not configured
	ttl   time.Duration
}

// NewListResolver creates a new list resolver. cache may be nil.
func NewListResolver(lists repo.PriceListRepository, c *cache.Cache, ttl time.Duration) *ListResolver {
	return &ListResolver{lists: lists, cache: c, ttl: ttl}
}

// Resolve returns the governing list, or nil when no active list covers
// the date. With a channel given, lists on that channel win over the rest;
// within either group the latest start date wins, ties broken by ascending
// list ID so resolution is deterministic.
func (r *ListResolver) Resolve(ctx context.Context, companyID, branchID uuid.UUID, channel *domain.Channel, asOf time.Time) (*domain.PriceList, error) {
	key := ""
	if r.cache != nil && r.ttl > 0 {
		ch := ""
		if channel != nil {
			ch = string(*channel)
		}
		key = cache.ListKey(companyID, branchID, ch, asOf)

		var cached domain.PriceList
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if err != cache.ErrMiss {
			log.Warn(ctx, "List cache read failed", zap.Error(err))
		}
	}

	candidates, err := r.lists.ListActive(ctx, companyID, branchID, asOf)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if channel != nil {
		var onChannel []domain.PriceList
		for _, l := range candidates {
			if l.Channel == *channel {
				onChannel = append(onChannel, l)
			}
		}
		if len(onChannel) > 0 {
			candidates = onChannel
		}
	}

	best := pickLatest(candidates)

	if r.cache != nil && key != "" {
		if err := r.cache.Set(ctx, key, best, r.ttl); err != nil {
			log.Warn(ctx, "List cache write failed", zap.Error(err))
		}
	}

	return &best, nil
}

// pickLatest returns the candidate with the latest start date. Equal start
// dates fall back to the smaller UUID string, a stable secondary key.
func pickLatest(lists []domain.PriceList) domain.PriceList {
	sorted := make([]domain.PriceList, len(lists))
	copy(sorted, lists)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := domain.DateOnly(sorted[i].StartDate), domain.DateOnly(sorted[j].StartDate)
		if !si.Equal(sj) {
			return si.After(sj)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted[0]
}
