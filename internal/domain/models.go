// internal/domain/models.go
package domain

import "time"

// Store represents a store location
type Store struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Product is the immutable item identity plus the mutable availability flags
// refreshed by the periodic master sync.
type Product struct {
	ItemCode     string    `json:"item_code" db:"item_code"`
	CategoryCode string    `json:"category_code" db:"category_code"`
	Name         string    `json:"name" db:"name"`
	OrderUnit    int       `json:"order_unit" db:"order_unit"`
	Available    bool      `json:"available" db:"available"`
	Discontinued bool      `json:"discontinued" db:"discontinued"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// RealtimeInventory is the current stock position for a (store, item) pair.
// Both quantities satisfy the non-negative invariant at rest and at read.
type RealtimeInventory struct {
	StoreID    int64     `json:"store_id" db:"store_id"`
	ItemCode   string    `json:"item_code" db:"item_code"`
	StockQty   Qty       `json:"stock_qty" db:"stock_qty"`
	PendingQty Qty       `json:"pending_qty" db:"pending_qty"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SalesRecord is one observed daily sales figure. Append-only, owned by the
// ingestion collaborator; the core only reads it.
type SalesRecord struct {
	StoreID   int64     `json:"store_id" db:"store_id"`
	ItemCode  string    `json:"item_code" db:"item_code"`
	SalesDate time.Time `json:"sales_date" db:"sales_date"`
	UnitsSold int       `json:"units_sold" db:"units_sold"`
}

// OrderTracking is one order-tracking unit: created when an order is placed
// or detected, mutated as stock is consumed or expires, never deleted.
type OrderTracking struct {
	ID           int64     `json:"id" db:"id"`
	StoreID      int64     `json:"store_id" db:"store_id"`
	ItemCode     string    `json:"item_code" db:"item_code"`
	CategoryCode string    `json:"category_code" db:"category_code"`
	OrderDate    time.Time `json:"order_date" db:"order_date"`
	Wave         int       `json:"wave" db:"wave"`
	OrderedQty   Qty       `json:"ordered_qty" db:"ordered_qty"`
	RemainingQty Qty       `json:"remaining_qty" db:"remaining_qty"`
	ArrivalAt    time.Time `json:"arrival_at" db:"arrival_at"`
	ExpiryAt     time.Time `json:"expiry_at" db:"expiry_at"`
	Status       string    `json:"status" db:"status"`
	OrderSource  int       `json:"order_source" db:"order_source"`
}

// ExclusionEntry is one cached externally-managed item. The cache is fully
// replaced on a successful live refresh and retained untouched otherwise.
type ExclusionEntry struct {
	StoreID         int64     `json:"store_id" db:"store_id"`
	ItemCode        string    `json:"item_code" db:"item_code"`
	Name            string    `json:"name" db:"name"`
	CategoryCode    string    `json:"category_code" db:"category_code"`
	FirstDetectedAt time.Time `json:"first_detected_at" db:"first_detected_at"`
	LastConfirmedAt time.Time `json:"last_confirmed_at" db:"last_confirmed_at"`
}

// CalibrationParams is the authoritative tunable set for one store.
type CalibrationParams struct {
	StoreID          int64     `json:"store_id" db:"store_id"`
	SafetyStockRatio float64   `json:"safety_stock_ratio" db:"safety_stock_ratio"`
	WasteDamping     float64   `json:"waste_damping" db:"waste_damping"`
	MaxDailyCap      float64   `json:"max_daily_cap" db:"max_daily_cap"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// CalibrationVersion is one append-only audit row of a parameter update.
type CalibrationVersion struct {
	ID               int64     `json:"id" db:"id"`
	StoreID          int64     `json:"store_id" db:"store_id"`
	Version          int       `json:"version" db:"version"`
	SafetyStockRatio float64   `json:"safety_stock_ratio" db:"safety_stock_ratio"`
	WasteDamping     float64   `json:"waste_damping" db:"waste_damping"`
	MaxDailyCap      float64   `json:"max_daily_cap" db:"max_daily_cap"`
	Reason           string    `json:"reason" db:"reason"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// PredictionLog records a prediction with every coefficient that shaped it,
// so that the calibration loop can later pair it with the realized outcome.
type PredictionLog struct {
	StoreID        int64              `json:"store_id" db:"store_id"`
	ItemCode       string             `json:"item_code" db:"item_code"`
	PredictionDate time.Time          `json:"prediction_date" db:"prediction_date"`
	BaseValue      float64            `json:"base_value" db:"base_value"`
	Coefficients   map[string]float64 `json:"coefficients" db:"-"`
	FloorApplied   bool               `json:"floor_applied" db:"floor_applied"`
	FinalValue     float64            `json:"final_value" db:"final_value"`
}

// EvalOutcome is the ground truth joined against PredictionLog by
// (store, item, date) once known.
type EvalOutcome struct {
	StoreID        int64     `json:"store_id" db:"store_id"`
	ItemCode       string    `json:"item_code" db:"item_code"`
	PredictionDate time.Time `json:"prediction_date" db:"prediction_date"`
	SoldQty        int       `json:"sold_qty" db:"sold_qty"`
	WasteQty       int       `json:"waste_qty" db:"waste_qty"`
}

// OrderProposal is one line of the final per-store order list handed to the
// external order executor.
type OrderProposal struct {
	StoreID      int64   `json:"store_id"`
	ItemCode     string  `json:"item_code"`
	ProductName  string  `json:"product_name"`
	CategoryCode string  `json:"category_code"`
	Wave         int     `json:"wave"`
	Quantity     Qty     `json:"quantity"`
	BaseValue    float64 `json:"base_value"`
	FinalValue   float64 `json:"final_value"`
	SafetyStock  float64 `json:"safety_stock"`
	FloorApplied bool    `json:"floor_applied"`
}
