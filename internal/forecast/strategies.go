package forecast

import "fmt"

// Default weekday patterns per category family, indexed by time.Weekday
// (0 = Sunday). These are the shipped baselines; stores override them row by
// row through the coefficient partition.
var (
	perishableWeekday = [7]float64{1.15, 0.95, 0.92, 0.94, 0.98, 1.10, 1.20}
	beverageWeekday   = [7]float64{1.10, 0.96, 0.95, 0.96, 1.00, 1.08, 1.15}
	alcoholWeekday    = [7]float64{1.05, 0.85, 0.85, 0.90, 1.05, 1.35, 1.40}
	snackWeekday      = [7]float64{1.12, 0.95, 0.95, 0.95, 1.00, 1.10, 1.18}
	instantWeekday    = [7]float64{1.05, 1.00, 1.00, 1.00, 1.02, 1.05, 1.08}
	necessityWeekday  = [7]float64{1.02, 1.00, 1.00, 1.00, 1.00, 1.02, 1.05}
	neutralWeekday    = [7]float64{1.00, 1.00, 1.00, 1.00, 1.00, 1.00, 1.00}
)

// weekdayCoeff resolves the weekday coefficient from the store partition,
// falling back to the strategy's shipped pattern.
func weekdayCoeff(ctx ItemContext, defaults [7]float64) float64 {
	wd := int(ctx.Date.Weekday())
	key := fmt.Sprintf("%s:%d", categoryPrefix(ctx.Product.CategoryCode), wd)
	return ctx.Params.lookupOr(KindWeekday, key, defaults[wd])
}

// eventBoost resolves the weather/event boost configured for the forecast
// date. Neutral unless the store has an entry for that day.
func eventBoost(ctx ItemContext) float64 {
	return ctx.Params.lookupOr(KindEventBoost, ctx.Date.Format("2006-01-02"), 1.0)
}

// wasteCoeff resolves the item's waste/disuse rate and softens it with the
// store's calibrated damping so one bad week cannot starve an item.
func wasteCoeff(ctx ItemContext, def float64) float64 {
	raw := ctx.Params.lookupOr(KindWaste, ctx.Product.ItemCode, def)

	damping := ctx.Params.Calibration.WasteDamping
	if damping <= 0 || damping > 1 {
		damping = 1
	}

	return 1 - (1-raw)*damping
}

// safetyOverride returns the calibration-supplied per-item safety stock,
// which takes precedence over any statistically derived value.
func safetyOverride(ctx ItemContext) (float64, bool) {
	return ctx.Params.Lookup(KindSafetyStock, ctx.Product.ItemCode)
}

// flatSafety is the non-perishable safety stock: average demand over the
// cover horizon scaled by the store's calibrated ratio.
func flatSafety(ctx ItemContext, coverDays float64) float64 {
	if v, ok := safetyOverride(ctx); ok {
		return v
	}
	return ctx.DailyAvg * ctx.Params.Calibration.SafetyStockRatio * coverDays
}

// perishableStrategy covers deli, bread and chilled daily food. Demand is
// weekend-heavy and the safety stock must not outlive the freshness window
// of the delivery wave it rides on.
type perishableStrategy struct{}

func (perishableStrategy) Name() string { return "perishable" }

func (perishableStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, perishableWeekday)
}

func (perishableStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (perishableStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 0.92)
}

func (perishableStrategy) SafetyStock(ctx ItemContext) float64 {
	if v, ok := safetyOverride(ctx); ok {
		return v
	}

	cover := waveCoverDays(ctx.Wave)
	if freshness := float64(ExpiryDays(ctx.Params, ctx.Product.CategoryCode)); freshness < cover {
		// stock may never outlive its freshness window
		cover = freshness
	}

	return ctx.DailyAvg * ctx.Params.Calibration.SafetyStockRatio * cover
}

// beverageStrategy covers soft drinks and water. Long shelf life, mild
// weekend lift, weather-sensitive.
type beverageStrategy struct{}

func (beverageStrategy) Name() string { return "beverage" }

func (beverageStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, beverageWeekday)
}

func (beverageStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (beverageStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 0.99)
}

func (beverageStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 1.0)
}

// alcoholStrategy covers beer, sake and liquor. Strongly weekend-skewed.
type alcoholStrategy struct{}

func (alcoholStrategy) Name() string { return "alcohol" }

func (alcoholStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, alcoholWeekday)
}

func (alcoholStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (alcoholStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 0.99)
}

func (alcoholStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 1.0)
}

// snackStrategy covers snacks and confections.
type snackStrategy struct{}

func (snackStrategy) Name() string { return "snack" }

func (snackStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, snackWeekday)
}

func (snackStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (snackStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 0.97)
}

func (snackStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 1.0)
}

// instantMealStrategy covers cup noodles and other shelf-stable meals.
type instantMealStrategy struct{}

func (instantMealStrategy) Name() string { return "instant_meal" }

func (instantMealStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, instantWeekday)
}

func (instantMealStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (instantMealStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 0.98)
}

func (instantMealStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 1.5)
}

// necessityStrategy covers daily necessities. Near-flat demand.
type necessityStrategy struct{}

func (necessityStrategy) Name() string { return "necessity" }

func (necessityStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, necessityWeekday)
}

func (necessityStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (necessityStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 1.0)
}

func (necessityStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 2.0)
}

// defaultStrategy is the conservative fallback for unmapped categories:
// neutral coefficients, a modest buffer, no category-specific shaping.
type defaultStrategy struct{}

func (defaultStrategy) Name() string { return "default" }

func (defaultStrategy) WeekdayCoefficient(ctx ItemContext) float64 {
	return weekdayCoeff(ctx, neutralWeekday)
}

func (defaultStrategy) EventBoost(ctx ItemContext) float64 {
	return eventBoost(ctx)
}

func (defaultStrategy) WasteCoefficient(ctx ItemContext) float64 {
	return wasteCoeff(ctx, 1.0)
}

func (defaultStrategy) SafetyStock(ctx ItemContext) float64 {
	return flatSafety(ctx, 0.5)
}
