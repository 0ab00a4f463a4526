// internal/exclusion/filter.go
package exclusion

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/repository"
)

// Mode says which data source produced the effective exclusion set.
type Mode string

const (
	ModeLive  Mode = "live"  // live query succeeded, cache replaced
	ModeEmpty Mode = "empty" // live query returned nothing, cache retained
	ModeCache Mode = "cache" // live query failed, cached list in effect
)

// Result is the effective externally-managed exclusion set for one run,
// with the degradation reason when the live source was not usable.
type Result struct {
	Excluded map[string]struct{}
	Mode     Mode
	Reason   string // machine-readable, empty on a fully clean live refresh
}

// Filter resolves the externally-managed item set with a site-then-cache
// fallback. Resolution never fails: whatever goes wrong, the pipeline gets a
// usable (possibly empty) set and a reason code.
type Filter struct {
	source LiveSource
	repo   repository.ExclusionRepository
}

func NewFilter(source LiveSource, repo repository.ExclusionRepository) *Filter {
	return &Filter{source: source, repo: repo}
}

// Resolve runs the state machine from the live source downward.
//
// Live success with items: apply and atomically replace the cache.
// Live success with zero items: apply the empty set but keep the cache,
// because a transient empty response must not erase known-good data.
// Live failure (or no source configured): fall back to the cache and say so.
func (f *Filter) Resolve(ctx context.Context, storeID int64) Result {
	if f.source != nil {
		entries, err := f.source.FetchManagedItems(ctx, storeID)
		if err == nil {
			if len(entries) > 0 {
				if repErr := f.repo.ReplaceAll(ctx, storeID, entries); repErr != nil {
					// live data still usable this run even if caching failed,
					// but the stale cache is now a reportable degradation
					log.Warn().Err(repErr).
						Str("reason", domain.ReasonCacheRefreshFailed).
						Int64("store_id", storeID).
						Msg("failed to refresh exclusion cache")
					return Result{
						Excluded: toSet(entries),
						Mode:     ModeLive,
						Reason:   domain.ReasonCacheRefreshFailed,
					}
				}
				return Result{Excluded: toSet(entries), Mode: ModeLive}
			}

			log.Info().
				Str("reason", domain.ReasonEmptyLiveResult).
				Int64("store_id", storeID).
				Msg("live exclusion query returned no items, cache retained")

			return Result{
				Excluded: map[string]struct{}{},
				Mode:     ModeEmpty,
				Reason:   domain.ReasonEmptyLiveResult,
			}
		}

		log.Warn().Err(err).
			Str("reason", domain.ReasonCacheFallback).
			Int64("store_id", storeID).
			Msg("live exclusion query failed, falling back to cache")
	}

	cached, err := f.repo.ListByStore(ctx, storeID)
	if err != nil {
		// absence of evidence is not a blocking error: exclude nothing extra
		log.Warn().Err(err).
			Str("reason", domain.ReasonExclusionSkipped).
			Int64("store_id", storeID).
			Msg("exclusion cache unreadable, excluding nothing extra")

		return Result{
			Excluded: map[string]struct{}{},
			Mode:     ModeCache,
			Reason:   domain.ReasonExclusionSkipped,
		}
	}

	return Result{
		Excluded: toSet(cached),
		Mode:     ModeCache,
		Reason:   domain.ReasonCacheFallback,
	}
}

// Apply removes every candidate whose item code is a member of any of the
// given sets. The same subtraction serves store-unavailable, discontinued
// and externally-managed exclusions.
func Apply(candidates []*domain.Product, sets ...map[string]struct{}) (kept []*domain.Product, dropped int) {
	kept = make([]*domain.Product, 0, len(candidates))

outer:
	for _, c := range candidates {
		for _, set := range sets {
			if _, ok := set[c.ItemCode]; ok {
				dropped++
				continue outer
			}
		}
		kept = append(kept, c)
	}

	return kept, dropped
}

func toSet(entries []domain.ExclusionEntry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.ItemCode] = struct{}{}
	}
	return set
}
