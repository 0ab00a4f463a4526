package forecast

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
)

// ItemContext carries everything a strategy needs to shape one item's demand
// for one day. It is plain data; strategies keep no state of their own.
type ItemContext struct {
	StoreID  int64
	Product  domain.Product
	Date     time.Time
	Wave     int
	DailyAvg float64
	Params   *ParamSet
}

// CategoryStrategy shapes demand for one category family. The set of
// implementations is closed: each is an independent rendering of the same
// capability set, with no shared mutable state and no dependencies between
// categories.
type CategoryStrategy interface {
	Name() string
	WeekdayCoefficient(ctx ItemContext) float64
	EventBoost(ctx ItemContext) float64
	WasteCoefficient(ctx ItemContext) float64
	SafetyStock(ctx ItemContext) float64
}

// Category code prefixes. Codes are exact-matched first, then matched on the
// two-character major prefix.
var strategyTable = map[string]CategoryStrategy{
	"11": perishableStrategy{},
	"12": perishableStrategy{},
	"13": perishableStrategy{},
	"21": beverageStrategy{},
	"22": alcoholStrategy{},
	"31": snackStrategy{},
	"32": instantMealStrategy{},
	"41": necessityStrategy{},
}

// ResolveStrategy returns the strategy responsible for a category code.
// Unmapped codes never fail; they get the conservative default strategy.
func ResolveStrategy(categoryCode string) CategoryStrategy {
	if s, ok := strategyTable[categoryCode]; ok {
		return s
	}
	if len(categoryCode) > 2 {
		if s, ok := strategyTable[categoryCode[:2]]; ok {
			return s
		}
	}

	log.Debug().
		Str("reason", domain.ReasonUnmappedCategory).
		Str("category_code", categoryCode).
		Msg("category not mapped, using default strategy")

	return defaultStrategy{}
}

// Coefficients assembles the ordered multiplicative sequence the engine
// composes for one item. The catalog is business-tuned and store-configured;
// the four named entries are the current baseline, not a fixed ceiling.
func Coefficients(strat CategoryStrategy, ctx ItemContext) []Coefficient {
	return []Coefficient{
		{Name: "weekday", Value: strat.WeekdayCoefficient(ctx)},
		{Name: "event_boost", Value: strat.EventBoost(ctx)},
		{Name: "waste", Value: strat.WasteCoefficient(ctx)},
		{Name: "delivery_waste", Value: DeliveryWasteAdjustment(ctx)},
	}
}
