// internal/calibration/calibrator.go
package calibration

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/repository"
)

// Clamp bounds for the tunables. Calibration nudges, it never jumps: a bad
// week of data can shift a parameter a few percent, not reset the store.
const (
	minSafetyStockRatio = 0.1
	maxSafetyStockRatio = 2.0
	minWasteDamping     = 0.2
	maxWasteDamping     = 1.0

	wasteRateTarget  = 0.08
	sellThroughHigh  = 0.95
	floorAlertShare  = 0.10
	adjustmentFactor = 0.05
)

// Calibrator closes the feedback loop between predicted and realized demand
// for one store at a time. It runs out of band and never blocks the order
// path.
type Calibrator struct {
	predictions repository.PredictionRepository
	params      repository.CalibrationRepository
}

func NewCalibrator(predictions repository.PredictionRepository, params repository.CalibrationRepository) *Calibrator {
	return &Calibrator{predictions: predictions, params: params}
}

// WindowMetrics summarizes one store's prediction/outcome pairs.
type WindowMetrics struct {
	Pairs          int
	TotalPredicted float64
	TotalSold      int
	TotalWaste     int
	FloorCount     int
	MaxItemDaySold int
}

// SellThrough is realized sales as a fraction of predicted quantity.
func (m WindowMetrics) SellThrough() float64 {
	if m.TotalPredicted <= 0 {
		return 0
	}
	return float64(m.TotalSold) / m.TotalPredicted
}

// WasteRate is waste as a fraction of everything that left the shelf.
func (m WindowMetrics) WasteRate() float64 {
	moved := m.TotalSold + m.TotalWaste
	if moved <= 0 {
		return 0
	}
	return float64(m.TotalWaste) / float64(moved)
}

// FloorShare is the fraction of predictions that needed the floor.
func (m WindowMetrics) FloorShare() float64 {
	if m.Pairs == 0 {
		return 0
	}
	return float64(m.FloorCount) / float64(m.Pairs)
}

// CalibrateStore reads the closed prediction/outcome pairs in the window,
// derives an adjustment and persists it as a new parameter version. A store
// with no closed pairs keeps its current parameters untouched.
func (c *Calibrator) CalibrateStore(ctx context.Context, storeID int64, windowDays int, asOf time.Time) (domain.CalibrationParams, bool, error) {
	current, err := c.params.Current(ctx, storeID)
	if err != nil {
		return domain.CalibrationParams{}, false, fmt.Errorf("failed to load current params: %w", err)
	}

	if windowDays <= 0 {
		windowDays = 14
	}
	from := asOf.AddDate(0, 0, -windowDays)

	pairs, err := c.predictions.PairedWindow(ctx, storeID, from, asOf)
	if err != nil {
		return current, false, fmt.Errorf("failed to load prediction window: %w", err)
	}
	if len(pairs) == 0 {
		log.Info().Int64("store_id", storeID).Msg("no closed prediction pairs, skipping calibration")
		return current, false, nil
	}

	metrics := Summarize(pairs)
	next, reason := Adjust(current, metrics)

	if metrics.FloorShare() > floorAlertShare {
		// distinguishable signal for offline review, not auto-corrected here
		log.Warn().
			Str("reason", domain.ReasonFloorTriggered).
			Int64("store_id", storeID).
			Float64("floor_share", metrics.FloorShare()).
			Msg("coefficient floor triggered unusually often in window")
	}

	if next == current {
		log.Info().Int64("store_id", storeID).Msg("calibration window within targets, no change")
		return current, false, nil
	}

	if err := c.params.Update(ctx, next, reason); err != nil {
		return current, false, fmt.Errorf("failed to persist calibration update: %w", err)
	}

	log.Info().
		Int64("store_id", storeID).
		Float64("safety_stock_ratio", next.SafetyStockRatio).
		Float64("waste_damping", next.WasteDamping).
		Float64("max_daily_cap", next.MaxDailyCap).
		Str("adjustment", reason).
		Msg("calibration parameters updated")

	return next, true, nil
}

// Summarize folds the pairs into window metrics.
func Summarize(pairs []repository.PredictionPair) WindowMetrics {
	var m WindowMetrics
	m.Pairs = len(pairs)
	for _, p := range pairs {
		m.TotalPredicted += p.Prediction.FinalValue
		m.TotalSold += p.Outcome.SoldQty
		m.TotalWaste += p.Outcome.WasteQty
		if p.Prediction.FloorApplied {
			m.FloorCount++
		}
		if p.Outcome.SoldQty > m.MaxItemDaySold {
			m.MaxItemDaySold = p.Outcome.SoldQty
		}
	}
	return m
}

// Adjust derives the next parameter set from the window metrics. High waste
// loosens the waste damping and trims safety stock; near-complete sell
// through tightens the other way because it usually means shelves ran empty.
func Adjust(current domain.CalibrationParams, m WindowMetrics) (domain.CalibrationParams, string) {
	next := current
	reason := "within targets"

	switch {
	case m.WasteRate() > wasteRateTarget:
		next.SafetyStockRatio = clamp(current.SafetyStockRatio*(1-adjustmentFactor), minSafetyStockRatio, maxSafetyStockRatio)
		next.WasteDamping = clamp(current.WasteDamping*(1+adjustmentFactor), minWasteDamping, maxWasteDamping)
		reason = fmt.Sprintf("waste rate %.3f above target %.3f", m.WasteRate(), wasteRateTarget)

	case m.SellThrough() > sellThroughHigh:
		next.SafetyStockRatio = clamp(current.SafetyStockRatio*(1+adjustmentFactor), minSafetyStockRatio, maxSafetyStockRatio)
		next.WasteDamping = clamp(current.WasteDamping*(1-adjustmentFactor), minWasteDamping, maxWasteDamping)
		reason = fmt.Sprintf("sell-through %.3f above %.2f, likely stockouts", m.SellThrough(), sellThroughHigh)
	}

	// daily cap follows peak observed demand with headroom
	if m.MaxItemDaySold > 0 {
		next.MaxDailyCap = float64(m.MaxItemDaySold) * 1.5
	}

	return next, reason
}

// Divergence flags stores whose safety-stock ratio drifts beyond threshold
// from the fleet median. Offline analysis only; it controls nothing.
func Divergence(fleet []domain.CalibrationParams, threshold float64) []domain.CalibrationParams {
	if len(fleet) == 0 {
		return nil
	}

	ratios := make([]float64, 0, len(fleet))
	for _, p := range fleet {
		ratios = append(ratios, p.SafetyStockRatio)
	}
	med := median(ratios)

	var divergent []domain.CalibrationParams
	for _, p := range fleet {
		if med > 0 && abs(p.SafetyStockRatio-med)/med > threshold {
			divergent = append(divergent, p)
		}
	}
	return divergent
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
