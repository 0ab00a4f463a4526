// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/forecast"
)

// StoreRepository lists the stores the batch runs over.
type StoreRepository interface {
	List(ctx context.Context) ([]*domain.Store, error)
	Get(ctx context.Context, id int64) (*domain.Store, error)
}

// ProductRepository reads the product master. The availability and
// discontinuation flags are refreshed by an external sync; the core only
// reads them.
type ProductRepository interface {
	List(ctx context.Context) ([]*domain.Product, error)
}

// InventoryRepository reads and writes the realtime stock position. Both
// sides enforce the non-negative invariant independently of the caller.
type InventoryRepository interface {
	Get(ctx context.Context, storeID int64, itemCode string) (*domain.RealtimeInventory, error)
	Upsert(ctx context.Context, inv *domain.RealtimeInventory) error
}

// SalesRepository reads the append-only sales history.
type SalesRepository interface {
	// Stats returns the sales total inside the lookback window ending at
	// asOf, and the number of days the item has actually existed in history
	// (capped at analysisDays).
	Stats(ctx context.Context, storeID int64, itemCode string, analysisDays int, asOf time.Time) (totalSales int, actualDataDays int, err error)
}

// OrderTrackingRepository appends to the order-tracking history. Rows are
// mutated as stock is consumed but never deleted; calibration depends on the
// full record.
type OrderTrackingRepository interface {
	Insert(ctx context.Context, ot *domain.OrderTracking) error
	// MarkManualReceipts backfills tracking rows for receipts that have no
	// matching auto order, tagging them with the manual order source.
	MarkManualReceipts(ctx context.Context, storeID int64, day time.Time) (int, error)
}

// ExclusionRepository persists the externally-managed item cache with
// full-replace semantics.
type ExclusionRepository interface {
	// ReplaceAll atomically swaps the store's cache for the given entries.
	ReplaceAll(ctx context.Context, storeID int64, entries []domain.ExclusionEntry) error
	ListByStore(ctx context.Context, storeID int64) ([]domain.ExclusionEntry, error)
	CountByStore(ctx context.Context, storeID int64) (int, error)
}

// CalibrationRepository owns the per-store tunables: one authoritative
// current row plus an append-only version history.
type CalibrationRepository interface {
	Current(ctx context.Context, storeID int64) (domain.CalibrationParams, error)
	Update(ctx context.Context, params domain.CalibrationParams, reason string) error
	History(ctx context.Context, storeID int64, limit int) ([]domain.CalibrationVersion, error)
	FleetParams(ctx context.Context) ([]domain.CalibrationParams, error)
}

// PredictionPair joins a logged prediction with its realized outcome.
type PredictionPair struct {
	Prediction domain.PredictionLog
	Outcome    domain.EvalOutcome
}

// PredictionRepository persists prediction traces and outcomes and serves
// the joined window the calibration loop consumes.
type PredictionRepository interface {
	Log(ctx context.Context, p *domain.PredictionLog) error
	RecordOutcome(ctx context.Context, o *domain.EvalOutcome) error
	PairedWindow(ctx context.Context, storeID int64, from, to time.Time) ([]PredictionPair, error)
}

// ParamRepository loads the per-run coefficient snapshot for one store
// (store partition plus the legacy shared partition).
type ParamRepository interface {
	LoadParamSet(ctx context.Context, storeID int64) (*forecast.ParamSet, error)
}
