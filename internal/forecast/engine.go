package forecast

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
)

// DefaultFloorRatio is the minimum fraction of the base prediction the
// adjusted prediction may not fall below. Independent coefficients can each
// depress demand, and their product has been observed near 5% of base;
// ordering that little guarantees a stockout, so the floor cuts the tail off.
const DefaultFloorRatio = 0.15

// Coefficient is one named multiplicative demand adjustor.
type Coefficient struct {
	Name  string
	Value float64
}

// Composition is the result of applying a coefficient sequence to a base
// prediction. Applied keeps the full trace for the prediction log.
type Composition struct {
	Base         float64
	Adjusted     float64
	FloorApplied bool
	Applied      []Coefficient
}

// Engine composes independent multiplicative coefficients onto a base
// prediction with the floor guarantee.
type Engine struct {
	floorRatio float64
}

func NewEngine(floorRatio float64) *Engine {
	if floorRatio <= 0 || floorRatio >= 1 {
		floorRatio = DefaultFloorRatio
	}
	return &Engine{floorRatio: floorRatio}
}

// Compose multiplies the coefficients onto base in order and clamps the
// result to the floor. A triggered floor is not silent: frequent triggering
// means the coefficient catalog is miscalibrated and someone should look.
func (e *Engine) Compose(storeID int64, itemCode string, base float64, coeffs []Coefficient) Composition {
	adjusted := base
	for _, c := range coeffs {
		adjusted *= c.Value
	}

	comp := Composition{
		Base:     base,
		Adjusted: adjusted,
		Applied:  coeffs,
	}

	floor := base * e.floorRatio
	if base > 0 && adjusted < floor {
		log.Warn().
			Str("reason", domain.ReasonFloorTriggered).
			Int64("store_id", storeID).
			Str("item_code", itemCode).
			Float64("base", base).
			Float64("adjusted", adjusted).
			Float64("floor", floor).
			Msg("coefficient floor engaged")

		comp.Adjusted = floor
		comp.FloorApplied = true
	}

	return comp
}

// FinalOrderQty turns an adjusted prediction into an orderable quantity:
// add safety stock, net out what the store already has on hand or on the
// way, bound by the daily cap, then round up to the item's order unit.
func FinalOrderQty(adjusted, safetyStock, available, maxDailyCap float64, orderUnit int) domain.Qty {
	qty := adjusted + safetyStock - available
	if qty <= 0 {
		return 0
	}

	if maxDailyCap > 0 && qty > maxDailyCap {
		qty = maxDailyCap
	}

	if orderUnit < 1 {
		orderUnit = 1
	}
	units := math.Ceil(qty / float64(orderUnit))

	return domain.Qty(int(units) * orderUnit)
}
