package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeQty(t *testing.T) {
	assert.Equal(t, Qty(12), SanitizeQty(12, "stock_qty", 1, "4901000001"))
	assert.Equal(t, Qty(0), SanitizeQty(0, "stock_qty", 1, "4901000001"))
	assert.Equal(t, Qty(0), SanitizeQty(-3, "stock_qty", 1, "4901000001"))
}

func TestRealtimeInventorySanitize(t *testing.T) {
	// a sync glitch reporting stock -100 and pending -50 must read as an
	// empty position, never as negative availability
	inv := RealtimeInventory{StoreID: 1, ItemCode: "4901000001", StockQty: -100, PendingQty: -50}
	inv.Sanitize()

	assert.Equal(t, Qty(0), inv.StockQty)
	assert.Equal(t, Qty(0), inv.PendingQty)

	// sanitizing twice changes nothing
	before := inv
	inv.Sanitize()
	assert.Equal(t, before, inv)

	// valid positions pass through untouched
	inv = RealtimeInventory{StockQty: 7, PendingQty: 3}
	inv.Sanitize()
	assert.Equal(t, Qty(7), inv.StockQty)
	assert.Equal(t, Qty(3), inv.PendingQty)
}

func TestRunReport_SafeguardDowngradesStatus(t *testing.T) {
	report := &RunReport{StoreID: 1, Status: RunSuccess}

	report.AddSafeguard(ReasonCacheFallback, "", "live source unreachable")
	assert.Equal(t, RunDegraded, report.Status)
	assert.Len(t, report.Safeguards, 1)

	// fatal is sticky; safeguards cannot promote it back
	report.Status = RunFatal
	report.AddSafeguard(ReasonItemSkipped, "4901000001", "sales query failed")
	assert.Equal(t, RunFatal, report.Status)
}
