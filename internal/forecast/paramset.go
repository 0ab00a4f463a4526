package forecast

import (
	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
)

// Lookup kinds for coefficient rows. Each kind has its own key shape,
// documented next to the consumer.
const (
	KindWeekday       = "weekday"        // key: category prefix + ":" + weekday digit (0=Sunday)
	KindEventBoost    = "event_boost"    // key: date as 2006-01-02
	KindWaste         = "waste"          // key: item code
	KindDeliveryWaste = "delivery_waste" // key: category prefix + ":" + wave digit
	KindSafetyStock   = "safety_stock"   // key: item code (override, takes precedence)
	KindExpiryDays    = "expiry_days"    // key: category prefix
)

// ParamSet is the per-run snapshot of one store's tunables: the calibration
// scalars plus the coefficient rows of the store's partition and of the
// legacy shared partition. A ParamSet is built once at the start of a store
// run and discarded at run end; concurrent store runs never share one.
type ParamSet struct {
	StoreID     int64
	Calibration domain.CalibrationParams

	values map[string]float64 // store-specific partition
	legacy map[string]float64 // shared partition, backward compatibility only
}

// NewParamSet builds a snapshot from raw coefficient rows. values holds the
// store partition, legacy the shared one; both map kind+"|"+key to a value.
func NewParamSet(storeID int64, cal domain.CalibrationParams, values, legacy map[string]float64) *ParamSet {
	if values == nil {
		values = map[string]float64{}
	}
	if legacy == nil {
		legacy = map[string]float64{}
	}
	return &ParamSet{
		StoreID:     storeID,
		Calibration: cal,
		values:      values,
		legacy:      legacy,
	}
}

// Lookup resolves one coefficient. The store partition always wins; a miss
// falls through to the legacy shared partition with a diagnostic, so a store
// that has never been seeded still orders with the fleet-wide values.
func (p *ParamSet) Lookup(kind, key string) (float64, bool) {
	k := kind + "|" + key

	if v, ok := p.values[k]; ok {
		return v, true
	}

	if v, ok := p.legacy[k]; ok {
		log.Debug().
			Str("reason", domain.ReasonLegacyPartition).
			Int64("store_id", p.StoreID).
			Str("kind", kind).
			Str("key", key).
			Msg("coefficient resolved from legacy shared partition")
		return v, true
	}

	return 0, false
}

// lookupOr resolves a coefficient with a built-in default for configuration gaps.
func (p *ParamSet) lookupOr(kind, key string, def float64) float64 {
	if v, ok := p.Lookup(kind, key); ok {
		return v
	}
	return def
}
