package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/exclusion"
	"github.com/koyomart/autoorder-go/internal/forecast"
	"github.com/koyomart/autoorder-go/internal/repository"
)

// Monday, so every shipped weekday pattern sits at or near neutral.
var testDate = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

type fakeProductRepo struct {
	products []*domain.Product
}

func (r *fakeProductRepo) List(_ context.Context) ([]*domain.Product, error) {
	return r.products, nil
}

type fakeInventoryRepo struct {
	positions map[string]*domain.RealtimeInventory // item code -> position
}

func (r *fakeInventoryRepo) Get(_ context.Context, storeID int64, itemCode string) (*domain.RealtimeInventory, error) {
	if inv, ok := r.positions[itemCode]; ok {
		cp := *inv
		return &cp, nil
	}
	return &domain.RealtimeInventory{StoreID: storeID, ItemCode: itemCode}, nil
}

func (r *fakeInventoryRepo) Upsert(_ context.Context, inv *domain.RealtimeInventory) error {
	r.positions[inv.ItemCode] = inv
	return nil
}

type salesStat struct {
	total int
	days  int
}

type fakeSalesRepo struct {
	stats map[string]salesStat // item code -> window stats
	fail  map[string]error     // item code -> forced error
}

func (r *fakeSalesRepo) Stats(_ context.Context, _ int64, itemCode string, _ int, _ time.Time) (int, int, error) {
	if err, ok := r.fail[itemCode]; ok {
		return 0, 0, err
	}
	s := r.stats[itemCode]
	return s.total, s.days, nil
}

type fakeOrderRepo struct {
	mu       sync.Mutex
	inserted []*domain.OrderTracking
	err      error
}

func (r *fakeOrderRepo) Insert(_ context.Context, ot *domain.OrderTracking) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.inserted = append(r.inserted, ot)
	r.mu.Unlock()
	return nil
}

func (r *fakeOrderRepo) MarkManualReceipts(_ context.Context, _ int64, _ time.Time) (int, error) {
	return 0, nil
}

type fakeExclusionRepo struct {
	cached []domain.ExclusionEntry
}

func (r *fakeExclusionRepo) ReplaceAll(_ context.Context, _ int64, entries []domain.ExclusionEntry) error {
	r.cached = entries
	return nil
}

func (r *fakeExclusionRepo) ListByStore(_ context.Context, _ int64) ([]domain.ExclusionEntry, error) {
	return r.cached, nil
}

func (r *fakeExclusionRepo) CountByStore(_ context.Context, _ int64) (int, error) {
	return len(r.cached), nil
}

type fakeParamRepo struct {
	calibration domain.CalibrationParams
	failStores  map[int64]error
}

func (r *fakeParamRepo) LoadParamSet(_ context.Context, storeID int64) (*forecast.ParamSet, error) {
	if err, ok := r.failStores[storeID]; ok {
		return nil, err
	}
	cal := r.calibration
	cal.StoreID = storeID
	return forecast.NewParamSet(storeID, cal, nil, nil), nil
}

type fakePredictionRepo struct {
	mu     sync.Mutex
	logged []*domain.PredictionLog
}

func (r *fakePredictionRepo) Log(_ context.Context, p *domain.PredictionLog) error {
	r.mu.Lock()
	r.logged = append(r.logged, p)
	r.mu.Unlock()
	return nil
}

func (r *fakePredictionRepo) RecordOutcome(_ context.Context, _ *domain.EvalOutcome) error {
	return nil
}

func (r *fakePredictionRepo) PairedWindow(_ context.Context, _ int64, _, _ time.Time) ([]repository.PredictionPair, error) {
	return nil, nil
}

type testFixture struct {
	products    *fakeProductRepo
	inventory   *fakeInventoryRepo
	sales       *fakeSalesRepo
	orders      *fakeOrderRepo
	exclusions  *fakeExclusionRepo
	params      *fakeParamRepo
	predictions *fakePredictionRepo
}

func newFixture() *testFixture {
	return &testFixture{
		products: &fakeProductRepo{products: []*domain.Product{
			{ItemCode: "4901000001", CategoryCode: "41", Name: "tissue", OrderUnit: 1, Available: true},
			{ItemCode: "4901000002", CategoryCode: "41", Name: "soap", OrderUnit: 1, Available: true},
		}},
		inventory: &fakeInventoryRepo{positions: map[string]*domain.RealtimeInventory{
			"4901000001": {ItemCode: "4901000001", StockQty: 5, PendingQty: 0},
		}},
		sales: &fakeSalesRepo{
			stats: map[string]salesStat{
				"4901000001": {total: 140, days: 14},
				"4901000002": {total: 28, days: 14},
			},
			fail: map[string]error{},
		},
		orders:      &fakeOrderRepo{},
		exclusions:  &fakeExclusionRepo{},
		params:      &fakeParamRepo{calibration: domain.CalibrationParams{SafetyStockRatio: 0.5, WasteDamping: 1.0}},
		predictions: &fakePredictionRepo{},
	}
}

func (f *testFixture) runner() *StoreRunner {
	repos := Repos{
		Products:    f.products,
		Inventory:   f.inventory,
		Sales:       f.sales,
		Orders:      f.orders,
		Exclusions:  f.exclusions,
		Params:      f.params,
		Predictions: f.predictions,
	}
	filter := exclusion.NewFilter(nil, f.exclusions) // no live source, cache only
	return NewStoreRunner(repos, filter, Config{AnalysisDays: 14, FloorRatio: forecast.DefaultFloorRatio})
}

func TestStoreRun_HappyPath(t *testing.T) {
	f := newFixture()

	proposals, report, err := f.runner().Run(context.Background(), 1, testDate, 1)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	// item 1: mature, 140/14 = 10 daily; necessity coefficients are neutral
	// on a Monday, safety = 10*0.5*2 = 10, minus 5 on hand = 15
	assert.Equal(t, "4901000001", proposals[0].ItemCode)
	assert.Equal(t, domain.Qty(15), proposals[0].Quantity)

	// item 2: 28/14 = 2 daily, safety 2, nothing on hand = 4
	assert.Equal(t, "4901000002", proposals[1].ItemCode)
	assert.Equal(t, domain.Qty(4), proposals[1].Quantity)

	assert.Equal(t, domain.RunDegraded, report.Status,
		"cache-only exclusion resolution is a recorded degradation")
	assert.Equal(t, 2, report.Proposals)

	// every forecast reaches the prediction log, ordered or not
	assert.Len(t, f.predictions.logged, 2)
	assert.InDelta(t, 10.0, f.predictions.logged[0].BaseValue, 1e-9)
	assert.Contains(t, f.predictions.logged[0].Coefficients, "weekday")

	// tracking rows carry arrival, expiry and the auto source tag
	require.Len(t, f.orders.inserted, 2)
	row := f.orders.inserted[0]
	assert.Equal(t, domain.OrderSourceAuto, row.OrderSource)
	assert.Equal(t, "ordered", row.Status)
	assert.Equal(t, testDate.AddDate(0, 0, 1).Day(), row.ArrivalAt.Day())
	assert.True(t, row.ExpiryAt.After(row.ArrivalAt))
}

func TestStoreRun_ExclusionsAndFlagsFilterCandidates(t *testing.T) {
	f := newFixture()
	f.exclusions.cached = []domain.ExclusionEntry{{StoreID: 1, ItemCode: "4901000001"}}
	f.products.products = append(f.products.products,
		&domain.Product{ItemCode: "4901000003", CategoryCode: "41", OrderUnit: 1, Available: false},
		&domain.Product{ItemCode: "4901000004", CategoryCode: "41", OrderUnit: 1, Available: true, Discontinued: true},
	)

	proposals, report, err := f.runner().Run(context.Background(), 1, testDate, 1)
	require.NoError(t, err)

	require.Len(t, proposals, 1, "only the unexcluded available item survives")
	assert.Equal(t, "4901000002", proposals[0].ItemCode)
	assert.Equal(t, 3, report.Excluded)
}

func TestStoreRun_ItemFailureIsIsolated(t *testing.T) {
	f := newFixture()
	f.sales.fail["4901000001"] = errors.New("sales partition offline")

	proposals, report, err := f.runner().Run(context.Background(), 1, testDate, 1)
	require.NoError(t, err, "one bad item never fails the run")

	require.Len(t, proposals, 1)
	assert.Equal(t, "4901000002", proposals[0].ItemCode)
	assert.Equal(t, domain.RunDegraded, report.Status)

	var skipped bool
	for _, s := range report.Safeguards {
		if s.Reason == domain.ReasonItemSkipped && s.ItemCode == "4901000001" {
			skipped = true
		}
	}
	assert.True(t, skipped, "the skipped item is named in the report")
}

func TestStoreRun_NeverSoldItemIsSilentlySkipped(t *testing.T) {
	f := newFixture()
	f.sales.stats["4901000002"] = salesStat{}

	proposals, _, err := f.runner().Run(context.Background(), 1, testDate, 1)
	require.NoError(t, err)

	require.Len(t, proposals, 1)
	assert.Equal(t, "4901000001", proposals[0].ItemCode)
	assert.Len(t, f.predictions.logged, 1, "no prediction logged without history")
}

func TestStoreRun_ParamLoadFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.params.failStores = map[int64]error{1: errors.New("coefficient table missing")}

	proposals, report, err := f.runner().Run(context.Background(), 1, testDate, 1)
	assert.Error(t, err)
	assert.Nil(t, proposals)
	require.NotNil(t, report)
	assert.Equal(t, domain.RunFatal, report.Status)
	assert.NotEmpty(t, report.Error)
}

func TestStoreRun_PersistFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.orders.err = errors.New("disk full")

	_, report, err := f.runner().Run(context.Background(), 1, testDate, 1)
	assert.Error(t, err)
	assert.Equal(t, domain.RunFatal, report.Status)
}

func TestRunAll_StoreIsolation(t *testing.T) {
	f := newFixture()
	f.params.failStores = map[int64]error{2: errors.New("store 2 params gone")}

	runner := NewRunner(f.runner(), 4)
	outcomes := runner.RunAll(context.Background(), []int64{1, 2, 3}, testDate, 1)

	require.Len(t, outcomes, 3)
	byStore := map[int64]StoreOutcome{}
	for _, o := range outcomes {
		byStore[o.StoreID] = o
	}

	assert.Equal(t, domain.RunFatal, byStore[2].Report.Status)
	assert.NotEqual(t, domain.RunFatal, byStore[1].Report.Status, "store 1 unaffected by store 2")
	assert.NotEqual(t, domain.RunFatal, byStore[3].Report.Status)
	assert.Len(t, byStore[1].Proposals, 2)
	assert.Len(t, byStore[3].Proposals, 2)
}

func TestRunAll_SequentialWhenLimitOne(t *testing.T) {
	f := newFixture()

	runner := NewRunner(f.runner(), 0) // invalid limit is coerced to 1
	outcomes := runner.RunAll(context.Background(), []int64{1}, testDate, 1)

	require.Len(t, outcomes, 1)
	assert.Equal(t, int64(1), outcomes[0].StoreID)
}
