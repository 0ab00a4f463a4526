// internal/repository/postgres/order_repository.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/koyomart/autoorder-go/internal/domain"
)

type orderTrackingRepository struct {
	db *DB
}

func NewOrderTrackingRepository(db *DB) *orderTrackingRepository {
	return &orderTrackingRepository{db: db}
}

func (r *orderTrackingRepository) Insert(ctx context.Context, ot *domain.OrderTracking) error {
	ot.OrderedQty = domain.SanitizeQty(ot.OrderedQty.Int(), "ordered_qty", ot.StoreID, ot.ItemCode)
	ot.RemainingQty = domain.SanitizeQty(ot.RemainingQty.Int(), "remaining_qty", ot.StoreID, ot.ItemCode)

	query := `
		INSERT INTO order_tracking (
			store_id, item_code, category_code, order_date, wave,
			ordered_qty, remaining_qty, arrival_at, expiry_at, status, order_source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	if err := r.db.QueryRowContext(ctx, query,
		ot.StoreID, ot.ItemCode, ot.CategoryCode, ot.OrderDate, ot.Wave,
		ot.OrderedQty.Int(), ot.RemainingQty.Int(), ot.ArrivalAt, ot.ExpiryAt,
		ot.Status, ot.OrderSource,
	).Scan(&ot.ID); err != nil {
		return fmt.Errorf("failed to insert order tracking: %w", err)
	}

	return nil
}

// MarkManualReceipts creates tracking rows for receipts on the given day
// that have no matching auto order, tagged with the manual order source so
// calibration can tell them apart. Returns the number of rows detected.
func (r *orderTrackingRepository) MarkManualReceipts(ctx context.Context, storeID int64, day time.Time) (int, error) {
	query := `
		INSERT INTO order_tracking (
			store_id, item_code, category_code, order_date, wave,
			ordered_qty, remaining_qty, arrival_at, expiry_at, status, order_source
		)
		SELECT
			rr.store_id, rr.item_code, COALESCE(p.category_code, ''), rr.received_at::date, rr.wave,
			GREATEST(rr.received_qty, 0), GREATEST(rr.received_qty, 0),
			rr.received_at, rr.received_at + INTERVAL '30 days', 'received', $3
		FROM receiving_records rr
		LEFT JOIN products p ON p.item_code = rr.item_code
		WHERE rr.store_id = $1
			AND rr.received_at::date = $2::date
			AND NOT EXISTS (
				SELECT 1 FROM order_tracking ot
				WHERE ot.store_id = rr.store_id
					AND ot.item_code = rr.item_code
					AND ot.order_date = rr.received_at::date - 1
			)
	`

	res, err := r.db.ExecContext(ctx, query, storeID, day, domain.OrderSourceManual)
	if err != nil {
		return 0, fmt.Errorf("failed to mark manual receipts: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count marked receipts: %w", err)
	}

	return int(n), nil
}
