package forecast

import (
	"fmt"
	"time"
)

// DeliveryWave is one scheduled daily delivery slot. Perishable arrival and
// expiry timestamps are computed per wave because each wave carries its own
// freshness runway.
type DeliveryWave struct {
	Wave        int
	ArrivalHour int // local hour the truck reaches the store
}

// Waves lists the chain's daily delivery slots in order.
var Waves = []DeliveryWave{
	{Wave: 1, ArrivalHour: 9},
	{Wave: 2, ArrivalHour: 15},
}

// expiryDayFallback is the fallback freshness window in days per category
// prefix, used when no finer-grained duration is configured for the store.
// This table is the single source of the fallback; every consumer goes
// through ExpiryDays.
var expiryDayFallback = map[string]int{
	"11": 1,  // deli / bento
	"12": 2,  // bread
	"13": 4,  // dairy and chilled daily food
	"21": 90, // beverage
	"22": 90, // alcohol
	"31": 60, // snack / confection
	"32": 45, // instant meal
	"41": 90, // daily necessity
}

const defaultExpiryDays = 30

// ExpiryDays resolves the freshness window for a category: store-partitioned
// configuration first, then the shared fallback table.
func ExpiryDays(p *ParamSet, categoryCode string) int {
	prefix := categoryPrefix(categoryCode)

	if v, ok := p.Lookup(KindExpiryDays, prefix); ok && v > 0 {
		return int(v)
	}
	if d, ok := expiryDayFallback[prefix]; ok {
		return d
	}
	return defaultExpiryDays
}

// ArrivalExpiry computes when an order placed on orderDate for the given
// wave reaches the store and when it stops being sellable.
func ArrivalExpiry(orderDate time.Time, wave int, expiryDays int) (arrival, expiry time.Time) {
	hour := Waves[0].ArrivalHour
	for _, w := range Waves {
		if w.Wave == wave {
			hour = w.ArrivalHour
			break
		}
	}

	day := orderDate.AddDate(0, 0, 1) // ordered today, on the truck tomorrow
	arrival = time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, orderDate.Location())
	expiry = arrival.Add(time.Duration(expiryDays) * 24 * time.Hour)
	return arrival, expiry
}

// waveCoverDays is the fraction of a day one wave's delivery has to cover
// before the next delivery arrives.
func waveCoverDays(wave int) float64 {
	if len(Waves) < 2 {
		return 1
	}
	for i, w := range Waves {
		if w.Wave != wave {
			continue
		}
		next := Waves[(i+1)%len(Waves)]
		gap := next.ArrivalHour - w.ArrivalHour
		if gap <= 0 {
			gap += 24
		}
		return float64(gap) / 24.0
	}
	return 1
}

// DeliveryWasteAdjustment is the multiplicative correction for waste
// historically observed in a category's deliveries for one wave. Neutral
// when unconfigured.
func DeliveryWasteAdjustment(ctx ItemContext) float64 {
	key := fmt.Sprintf("%s:%d", categoryPrefix(ctx.Product.CategoryCode), ctx.Wave)
	return ctx.Params.lookupOr(KindDeliveryWaste, key, 1.0)
}

func categoryPrefix(code string) string {
	if len(code) > 2 {
		return code[:2]
	}
	return code
}
