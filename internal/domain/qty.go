package domain

import "github.com/rs/zerolog/log"

// Qty is a physical stock or pending-receipt quantity. A negative value is
// always a data-quality defect introduced upstream (portal scrape glitches,
// manual DB edits), never a valid business state, so every boundary crossing
// funnels through Sanitize instead of re-implementing the clamp per call site.
type Qty int

// Int returns the quantity as a plain int.
func (q Qty) Int() int { return int(q) }

// SanitizeQty clamps a negative quantity to zero and emits a diagnostic.
// It never fails: the corrected value is always usable. Sanitizing an
// already-sanitized value is a no-op.
func SanitizeQty(v int, field string, storeID int64, itemCode string) Qty {
	if v >= 0 {
		return Qty(v)
	}

	log.Warn().
		Str("reason", ReasonNegativeQty).
		Str("field", field).
		Int64("store_id", storeID).
		Str("item_code", itemCode).
		Int("value", v).
		Msg("negative quantity corrected to zero")

	return 0
}

// Sanitize applies the non-negative invariant to both inventory fields.
// Called on write, on read and immediately before use so a defect introduced
// at any layer cannot propagate.
func (inv *RealtimeInventory) Sanitize() {
	inv.StockQty = SanitizeQty(inv.StockQty.Int(), "stock_qty", inv.StoreID, inv.ItemCode)
	inv.PendingQty = SanitizeQty(inv.PendingQty.Int(), "pending_qty", inv.StoreID, inv.ItemCode)
}
