package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiryDays_FallbackTable(t *testing.T) {
	params := testParamSet(nil, nil)

	tests := []struct {
		code string
		want int
	}{
		{"11", 1},
		{"1203", 2},
		{"13", 4},
		{"21", 90},
		{"3150", 60},
		{"32", 45},
		{"99", defaultExpiryDays},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpiryDays(params, tt.code), "code=%q", tt.code)
	}
}

func TestExpiryDays_StoreConfiguredOverride(t *testing.T) {
	params := testParamSet(map[string]float64{"expiry_days|12": 3}, nil)
	assert.Equal(t, 3, ExpiryDays(params, "1201"))

	// non-positive configured values fall back to the table
	params = testParamSet(map[string]float64{"expiry_days|12": 0}, nil)
	assert.Equal(t, 2, ExpiryDays(params, "1201"))
}

func TestArrivalExpiry(t *testing.T) {
	orderDate := time.Date(2026, 8, 21, 22, 30, 0, 0, time.UTC)

	arrival, expiry := ArrivalExpiry(orderDate, 1, 2)
	assert.Equal(t, time.Date(2026, 8, 22, 9, 0, 0, 0, time.UTC), arrival)
	assert.Equal(t, arrival.Add(48*time.Hour), expiry)

	arrival, _ = ArrivalExpiry(orderDate, 2, 2)
	assert.Equal(t, time.Date(2026, 8, 22, 15, 0, 0, 0, time.UTC), arrival)

	// unknown wave falls back to the first slot's hour
	arrival, _ = ArrivalExpiry(orderDate, 9, 2)
	assert.Equal(t, 9, arrival.Hour())
}

func TestWaveCoverDays(t *testing.T) {
	assert.InDelta(t, 6.0/24.0, waveCoverDays(1), 1e-9)
	assert.InDelta(t, 18.0/24.0, waveCoverDays(2), 1e-9)
	assert.InDelta(t, 1.0, waveCoverDays(99), 1e-9, "unknown wave covers a full day")
}

func TestDeliveryWasteAdjustment(t *testing.T) {
	params := testParamSet(map[string]float64{"delivery_waste|11:2": 0.9}, nil)

	ctx := testCtx("1105", params)
	ctx.Wave = 2
	assert.InDelta(t, 0.9, DeliveryWasteAdjustment(ctx), 1e-9)

	ctx.Wave = 1
	assert.InDelta(t, 1.0, DeliveryWasteAdjustment(ctx), 1e-9, "unconfigured wave is neutral")
}
