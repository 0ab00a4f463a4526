// internal/cache/run_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/koyomart/autoorder-go/internal/config"
	"github.com/koyomart/autoorder-go/internal/domain"
)

const (
	runReportKeyPrefix = "autoorder:run_report"
	proposalsKeyPrefix = "autoorder:proposals"
	runScanBatchSize   = 100
)

// RunCache holds the latest run report and proposal list per store for the
// operational API, so reads don't touch the batch tables. Purely an
// accelerator: a miss falls through to the repository.
type RunCache interface {
	GetReport(ctx context.Context, storeID int64) (*domain.RunReport, bool, error)
	SetReport(ctx context.Context, report *domain.RunReport) error
	GetProposals(ctx context.Context, storeID int64) ([]domain.OrderProposal, bool, error)
	SetProposals(ctx context.Context, storeID int64, proposals []domain.OrderProposal) error
	InvalidateAll(ctx context.Context) error
}

type redisRunCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRunCache struct{}

func NewRunCache(cfg config.CacheConfig) (RunCache, error) {
	if !cfg.Enabled {
		return &noopRunCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRunCache{client: client, ttl: ttl}, nil
}

func NewNoopRunCache() RunCache {
	return &noopRunCache{}
}

func (c *redisRunCache) GetReport(ctx context.Context, storeID int64) (*domain.RunReport, bool, error) {
	payload, err := c.client.Get(ctx, reportKey(storeID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode run report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisRunCache) SetReport(ctx context.Context, report *domain.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report cache: %w", err)
	}

	if err := c.client.Set(ctx, reportKey(report.StoreID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRunCache) GetProposals(ctx context.Context, storeID int64) ([]domain.OrderProposal, bool, error) {
	payload, err := c.client.Get(ctx, proposalsKey(storeID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var proposals []domain.OrderProposal
	if err := json.Unmarshal(payload, &proposals); err != nil {
		return nil, false, fmt.Errorf("decode proposals cache: %w", err)
	}

	return proposals, true, nil
}

func (c *redisRunCache) SetProposals(ctx context.Context, storeID int64, proposals []domain.OrderProposal) error {
	payload, err := json.Marshal(proposals)
	if err != nil {
		return fmt.Errorf("encode proposals cache: %w", err)
	}

	if err := c.client.Set(ctx, proposalsKey(storeID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRunCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, runReportKeyPrefix, runScanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, proposalsKeyPrefix, runScanBatchSize)
}

func reportKey(storeID int64) string {
	return fmt.Sprintf("%s:%d", runReportKeyPrefix, storeID)
}

func proposalsKey(storeID int64) string {
	return fmt.Sprintf("%s:%d", proposalsKeyPrefix, storeID)
}

func (noopRunCache) GetReport(context.Context, int64) (*domain.RunReport, bool, error) {
	return nil, false, nil
}

func (noopRunCache) SetReport(context.Context, *domain.RunReport) error { return nil }

func (noopRunCache) GetProposals(context.Context, int64) ([]domain.OrderProposal, bool, error) {
	return nil, false, nil
}

func (noopRunCache) SetProposals(context.Context, int64, []domain.OrderProposal) error { return nil }

func (noopRunCache) InvalidateAll(context.Context) error { return nil }
