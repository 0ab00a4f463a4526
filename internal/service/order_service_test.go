package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/exclusion"
	"github.com/koyomart/autoorder-go/internal/forecast"
	"github.com/koyomart/autoorder-go/internal/pipeline"
	"github.com/koyomart/autoorder-go/internal/repository"
	"github.com/koyomart/autoorder-go/internal/storage"
)

// Monday; every shipped weekday pattern is at or near neutral.
var svcTestDate = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

type stubStoreRepo struct {
	stores []*domain.Store
}

func (r *stubStoreRepo) List(_ context.Context) ([]*domain.Store, error) { return r.stores, nil }
func (r *stubStoreRepo) Get(_ context.Context, id int64) (*domain.Store, error) {
	for _, st := range r.stores {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, errors.New("store not found")
}

type stubProductRepo struct{}

func (stubProductRepo) List(_ context.Context) ([]*domain.Product, error) {
	return []*domain.Product{
		{ItemCode: "4901000001", CategoryCode: "41", Name: "tissue", OrderUnit: 1, Available: true},
	}, nil
}

type stubInventoryRepo struct{}

func (stubInventoryRepo) Get(_ context.Context, storeID int64, itemCode string) (*domain.RealtimeInventory, error) {
	return &domain.RealtimeInventory{StoreID: storeID, ItemCode: itemCode}, nil
}

func (stubInventoryRepo) Upsert(_ context.Context, _ *domain.RealtimeInventory) error { return nil }

type stubSalesRepo struct{}

func (stubSalesRepo) Stats(_ context.Context, _ int64, _ string, _ int, _ time.Time) (int, int, error) {
	return 140, 14, nil
}

type stubOrderRepo struct{}

func (stubOrderRepo) Insert(_ context.Context, _ *domain.OrderTracking) error { return nil }
func (stubOrderRepo) MarkManualReceipts(_ context.Context, _ int64, _ time.Time) (int, error) {
	return 0, nil
}

type stubExclusionRepo struct{}

func (stubExclusionRepo) ReplaceAll(_ context.Context, _ int64, _ []domain.ExclusionEntry) error {
	return nil
}

func (stubExclusionRepo) ListByStore(_ context.Context, _ int64) ([]domain.ExclusionEntry, error) {
	return nil, nil
}

func (stubExclusionRepo) CountByStore(_ context.Context, _ int64) (int, error) { return 0, nil }

type stubParamRepo struct{}

func (stubParamRepo) LoadParamSet(_ context.Context, storeID int64) (*forecast.ParamSet, error) {
	cal := domain.CalibrationParams{StoreID: storeID, SafetyStockRatio: 0.5, WasteDamping: 1.0}
	return forecast.NewParamSet(storeID, cal, nil, nil), nil
}

type stubPredictionRepo struct{}

func (stubPredictionRepo) Log(_ context.Context, _ *domain.PredictionLog) error         { return nil }
func (stubPredictionRepo) RecordOutcome(_ context.Context, _ *domain.EvalOutcome) error { return nil }
func (stubPredictionRepo) PairedWindow(_ context.Context, _ int64, _, _ time.Time) ([]repository.PredictionPair, error) {
	return nil, nil
}

type recordingRunCache struct {
	invalidations int
	reports       map[int64]*domain.RunReport
	proposals     map[int64][]domain.OrderProposal
}

func newRecordingRunCache() *recordingRunCache {
	return &recordingRunCache{
		reports:   map[int64]*domain.RunReport{},
		proposals: map[int64][]domain.OrderProposal{},
	}
}

func (c *recordingRunCache) GetReport(_ context.Context, storeID int64) (*domain.RunReport, bool, error) {
	r, ok := c.reports[storeID]
	return r, ok, nil
}

func (c *recordingRunCache) SetReport(_ context.Context, report *domain.RunReport) error {
	c.reports[report.StoreID] = report
	return nil
}

func (c *recordingRunCache) GetProposals(_ context.Context, storeID int64) ([]domain.OrderProposal, bool, error) {
	p, ok := c.proposals[storeID]
	return p, ok, nil
}

func (c *recordingRunCache) SetProposals(_ context.Context, storeID int64, proposals []domain.OrderProposal) error {
	c.proposals[storeID] = proposals
	return nil
}

func (c *recordingRunCache) InvalidateAll(_ context.Context) error {
	c.invalidations++
	c.reports = map[int64]*domain.RunReport{}
	c.proposals = map[int64][]domain.OrderProposal{}
	return nil
}

type recordingExporter struct {
	uploaded  map[string][]byte
	uploadErr error
}

func newRecordingExporter() *recordingExporter {
	return &recordingExporter{uploaded: map[string][]byte{}}
}

func (e *recordingExporter) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for key, data := range e.uploaded {
		if strings.HasPrefix(key, prefix) {
			out = append(out, storage.ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (e *recordingExporter) UploadObject(_ context.Context, key string, data []byte) error {
	if e.uploadErr != nil {
		return e.uploadErr
	}
	e.uploaded[key] = data
	return nil
}

func newTestOrderService(t *testing.T, cache *recordingRunCache, exporter storage.ObjectStorage) *OrderService {
	t.Helper()

	repos := pipeline.Repos{
		Products:    stubProductRepo{},
		Inventory:   stubInventoryRepo{},
		Sales:       stubSalesRepo{},
		Orders:      stubOrderRepo{},
		Exclusions:  stubExclusionRepo{},
		Params:      stubParamRepo{},
		Predictions: stubPredictionRepo{},
	}
	filter := exclusion.NewFilter(nil, stubExclusionRepo{})
	storeRunner := pipeline.NewStoreRunner(repos, filter, pipeline.Config{AnalysisDays: 14})
	runner := pipeline.NewRunner(storeRunner, 2)
	stores := &stubStoreRepo{stores: []*domain.Store{{ID: 1, Name: "north"}, {ID: 2, Name: "south"}}}

	return NewOrderService(runner, stores, stubExclusionRepo{}, cache, exporter, t.TempDir())
}

func TestRunStores_FleetRunInvalidatesAndRepopulatesCache(t *testing.T) {
	cache := newRecordingRunCache()
	cache.reports[99] = &domain.RunReport{StoreID: 99} // a store that no longer exists
	exporter := newRecordingExporter()
	svc := newTestOrderService(t, cache, exporter)

	outcomes, err := svc.RunStores(context.Background(), nil, svcTestDate, 1)
	require.NoError(t, err)
	require.Len(t, outcomes, 2, "empty store list means the whole fleet")

	assert.Equal(t, 1, cache.invalidations, "fleet run supersedes stale cache entries")
	_, found, _ := cache.GetReport(context.Background(), 99)
	assert.False(t, found)

	for _, storeID := range []int64{1, 2} {
		report, found, _ := cache.GetReport(context.Background(), storeID)
		require.True(t, found, "store %d report cached", storeID)
		assert.Equal(t, 1, report.Proposals)

		proposals, found, _ := cache.GetProposals(context.Background(), storeID)
		require.True(t, found)
		assert.Len(t, proposals, 1)
	}

	// one CSV per store landed in object storage under the date prefix
	assert.Len(t, exporter.uploaded, 2)
	for key := range exporter.uploaded {
		assert.True(t, strings.HasPrefix(key, "orders/2026-08-24/"), "key %q", key)
	}
}

func TestRunStores_SingleStoreKeepsCacheOfOthers(t *testing.T) {
	cache := newRecordingRunCache()
	cache.reports[2] = &domain.RunReport{StoreID: 2}
	svc := newTestOrderService(t, cache, nil)

	_, err := svc.RunStores(context.Background(), []int64{1}, svcTestDate, 1)
	require.NoError(t, err)

	assert.Zero(t, cache.invalidations, "a targeted run must not flush the fleet cache")
	_, found, _ := cache.GetReport(context.Background(), 2)
	assert.True(t, found)
}

func TestRunStores_WritesOrderCSV(t *testing.T) {
	cache := newRecordingRunCache()
	svc := newTestOrderService(t, cache, nil)

	_, err := svc.RunStores(context.Background(), []int64{1}, svcTestDate, 1)
	require.NoError(t, err)

	path := filepath.Join(svc.outputDir, "orders_1_20260824_w1.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "header plus one proposal")
	assert.Equal(t, "item_code,product_name,category_code,wave,quantity", lines[0])
	assert.Equal(t, "4901000001,tissue,41,1,20", lines[1])
}

func TestRunStores_UploadFailureDegradesReport(t *testing.T) {
	cache := newRecordingRunCache()
	exporter := newRecordingExporter()
	exporter.uploadErr = errors.New("bucket unreachable")
	svc := newTestOrderService(t, cache, exporter)

	outcomes, err := svc.RunStores(context.Background(), []int64{1}, svcTestDate, 1)
	require.NoError(t, err, "delivery problems never undo the run")
	require.Len(t, outcomes, 1)

	report := outcomes[0].Report
	assert.Equal(t, domain.RunDegraded, report.Status)

	var delivery bool
	for _, s := range report.Safeguards {
		if s.Reason == domain.ReasonDeliveryFailed {
			delivery = true
			assert.Empty(t, s.ItemCode, "delivery failures are store-level, not item-level")
		}
		assert.NotEqual(t, domain.ReasonItemSkipped, s.Reason,
			"no item was skipped in this run")
	}
	assert.True(t, delivery, "the delivery failure carries its own reason code")
}

func TestExports(t *testing.T) {
	cache := newRecordingRunCache()
	exporter := newRecordingExporter()
	svc := newTestOrderService(t, cache, exporter)

	_, err := svc.RunStores(context.Background(), []int64{1}, svcTestDate, 1)
	require.NoError(t, err)

	objects, err := svc.Exports(context.Background(), svcTestDate)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "orders/2026-08-24/orders_1_20260824_w1.csv", objects[0].Key)
	assert.Greater(t, objects[0].Size, int64(0))

	// a date with no runs lists nothing
	objects, err = svc.Exports(context.Background(), svcTestDate.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestExports_UnconfiguredExporter(t *testing.T) {
	svc := newTestOrderService(t, newRecordingRunCache(), nil)

	_, err := svc.Exports(context.Background(), svcTestDate)
	assert.Error(t, err)
}
