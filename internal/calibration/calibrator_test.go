package calibration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/repository"
)

type fakePredictionRepo struct {
	pairs []repository.PredictionPair
	err   error
}

func (r *fakePredictionRepo) Log(_ context.Context, _ *domain.PredictionLog) error     { return nil }
func (r *fakePredictionRepo) RecordOutcome(_ context.Context, _ *domain.EvalOutcome) error { return nil }
func (r *fakePredictionRepo) PairedWindow(_ context.Context, _ int64, _, _ time.Time) ([]repository.PredictionPair, error) {
	return r.pairs, r.err
}

type fakeCalibrationRepo struct {
	current domain.CalibrationParams

	updates []domain.CalibrationParams
	reasons []string
}

func (r *fakeCalibrationRepo) Current(_ context.Context, _ int64) (domain.CalibrationParams, error) {
	return r.current, nil
}

func (r *fakeCalibrationRepo) Update(_ context.Context, params domain.CalibrationParams, reason string) error {
	r.updates = append(r.updates, params)
	r.reasons = append(r.reasons, reason)
	r.current = params
	return nil
}

func (r *fakeCalibrationRepo) History(_ context.Context, _ int64, _ int) ([]domain.CalibrationVersion, error) {
	history := make([]domain.CalibrationVersion, 0, len(r.updates))
	for i, u := range r.updates {
		history = append(history, domain.CalibrationVersion{
			StoreID:          u.StoreID,
			Version:          i + 1,
			SafetyStockRatio: u.SafetyStockRatio,
			WasteDamping:     u.WasteDamping,
			MaxDailyCap:      u.MaxDailyCap,
			Reason:           r.reasons[i],
		})
	}
	return history, nil
}

func (r *fakeCalibrationRepo) FleetParams(_ context.Context) ([]domain.CalibrationParams, error) {
	return []domain.CalibrationParams{r.current}, nil
}

func pair(finalValue float64, sold, waste int, floorApplied bool) repository.PredictionPair {
	return repository.PredictionPair{
		Prediction: domain.PredictionLog{FinalValue: finalValue, FloorApplied: floorApplied},
		Outcome:    domain.EvalOutcome{SoldQty: sold, WasteQty: waste},
	}
}

func baseParams() domain.CalibrationParams {
	return domain.CalibrationParams{StoreID: 1, SafetyStockRatio: 0.5, WasteDamping: 0.7}
}

func TestSummarize(t *testing.T) {
	m := Summarize([]repository.PredictionPair{
		pair(10, 8, 2, false),
		pair(20, 19, 0, true),
		pair(5, 3, 1, false),
	})

	assert.Equal(t, 3, m.Pairs)
	assert.InDelta(t, 35.0, m.TotalPredicted, 1e-9)
	assert.Equal(t, 30, m.TotalSold)
	assert.Equal(t, 3, m.TotalWaste)
	assert.Equal(t, 1, m.FloorCount)
	assert.Equal(t, 19, m.MaxItemDaySold)

	assert.InDelta(t, 30.0/35.0, m.SellThrough(), 1e-9)
	assert.InDelta(t, 3.0/33.0, m.WasteRate(), 1e-9)
	assert.InDelta(t, 1.0/3.0, m.FloorShare(), 1e-9)
}

func TestAdjust_HighWasteTrimsSafetyStock(t *testing.T) {
	m := WindowMetrics{Pairs: 10, TotalPredicted: 100, TotalSold: 80, TotalWaste: 20, MaxItemDaySold: 12}

	next, reason := Adjust(baseParams(), m)

	assert.InDelta(t, 0.5*0.95, next.SafetyStockRatio, 1e-9)
	assert.InDelta(t, 0.7*1.05, next.WasteDamping, 1e-9)
	assert.InDelta(t, 18.0, next.MaxDailyCap, 1e-9, "cap follows peak demand with headroom")
	assert.Contains(t, reason, "waste rate")
}

func TestAdjust_HighSellThroughRaisesSafetyStock(t *testing.T) {
	m := WindowMetrics{Pairs: 10, TotalPredicted: 100, TotalSold: 98, TotalWaste: 1, MaxItemDaySold: 30}

	next, reason := Adjust(baseParams(), m)

	assert.InDelta(t, 0.5*1.05, next.SafetyStockRatio, 1e-9)
	assert.InDelta(t, 0.7*0.95, next.WasteDamping, 1e-9)
	assert.Contains(t, reason, "sell-through")
}

func TestAdjust_ClampsAtBounds(t *testing.T) {
	// already at the ratio floor with waste pressure: stays pinned
	current := domain.CalibrationParams{StoreID: 1, SafetyStockRatio: 0.1, WasteDamping: 1.0}
	m := WindowMetrics{Pairs: 5, TotalPredicted: 50, TotalSold: 30, TotalWaste: 20}

	next, _ := Adjust(current, m)
	assert.InDelta(t, 0.1, next.SafetyStockRatio, 1e-9)
	assert.InDelta(t, 1.0, next.WasteDamping, 1e-9, "damping ceiling holds")
}

func TestCalibrateStore_NoPairsSkips(t *testing.T) {
	paramRepo := &fakeCalibrationRepo{current: baseParams()}
	cal := NewCalibrator(&fakePredictionRepo{}, paramRepo)

	got, changed, err := cal.CalibrateStore(context.Background(), 1, 14, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, baseParams(), got)
	assert.Empty(t, paramRepo.updates)
}

func TestCalibrateStore_WindowErrorKeepsParams(t *testing.T) {
	paramRepo := &fakeCalibrationRepo{current: baseParams()}
	cal := NewCalibrator(&fakePredictionRepo{err: errors.New("query timeout")}, paramRepo)

	_, changed, err := cal.CalibrateStore(context.Background(), 1, 14, time.Now())
	assert.Error(t, err)
	assert.False(t, changed)
	assert.Empty(t, paramRepo.updates)
}

func TestCalibrateStore_AppendsNewVersionPerAdjustment(t *testing.T) {
	paramRepo := &fakeCalibrationRepo{current: baseParams()}
	predRepo := &fakePredictionRepo{pairs: []repository.PredictionPair{
		pair(50, 30, 20, false), // waste rate 0.4, way above target
	}}
	cal := NewCalibrator(predRepo, paramRepo)

	_, changed, err := cal.CalibrateStore(context.Background(), 1, 14, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	// a second window with more waste appends another version; nothing is
	// edited in place
	_, changed, err = cal.CalibrateStore(context.Background(), 1, 14, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	history, err := paramRepo.History(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, 2, history[1].Version)
	assert.Greater(t, history[0].SafetyStockRatio, history[1].SafetyStockRatio,
		"repeated waste pressure keeps trimming")
}

func TestDivergence(t *testing.T) {
	fleet := []domain.CalibrationParams{
		{StoreID: 1, SafetyStockRatio: 0.5},
		{StoreID: 2, SafetyStockRatio: 0.52},
		{StoreID: 3, SafetyStockRatio: 0.48},
		{StoreID: 4, SafetyStockRatio: 1.2}, // way off the median
	}

	divergent := Divergence(fleet, 0.3)
	require.Len(t, divergent, 1)
	assert.Equal(t, int64(4), divergent[0].StoreID)

	assert.Empty(t, Divergence(nil, 0.3))
}
