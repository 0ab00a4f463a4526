// internal/repository/postgres/inventory_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/koyomart/autoorder-go/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

// Get reads the current stock position. The row is sanitized after the scan
// so that a defect written around this layer (direct DB edits included)
// still comes out non-negative.
func (r *inventoryRepository) Get(ctx context.Context, storeID int64, itemCode string) (*domain.RealtimeInventory, error) {
	query := `
		SELECT store_id, item_code, stock_qty, pending_qty, updated_at
		FROM realtime_inventory
		WHERE store_id = $1 AND item_code = $2
	`

	var row struct {
		StoreID    int64     `db:"store_id"`
		ItemCode   string    `db:"item_code"`
		StockQty   int       `db:"stock_qty"`
		PendingQty int       `db:"pending_qty"`
		UpdatedAt  time.Time `db:"updated_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, storeID, itemCode); err != nil {
		if err == sql.ErrNoRows {
			// no position yet: an empty shelf, not an error
			return &domain.RealtimeInventory{StoreID: storeID, ItemCode: itemCode}, nil
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}

	inv := &domain.RealtimeInventory{
		StoreID:    row.StoreID,
		ItemCode:   row.ItemCode,
		StockQty:   domain.SanitizeQty(row.StockQty, "stock_qty", row.StoreID, row.ItemCode),
		PendingQty: domain.SanitizeQty(row.PendingQty, "pending_qty", row.StoreID, row.ItemCode),
		UpdatedAt:  row.UpdatedAt,
	}

	return inv, nil
}

// Upsert writes the stock position, sanitizing before persisting so a
// negative never reaches disk.
func (r *inventoryRepository) Upsert(ctx context.Context, inv *domain.RealtimeInventory) error {
	inv.Sanitize()

	query := `
		INSERT INTO realtime_inventory (store_id, item_code, stock_qty, pending_qty, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (store_id, item_code)
		DO UPDATE SET
			stock_qty = EXCLUDED.stock_qty,
			pending_qty = EXCLUDED.pending_qty,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, inv.StoreID, inv.ItemCode, inv.StockQty.Int(), inv.PendingQty.Int()); err != nil {
		return fmt.Errorf("failed to upsert inventory: %w", err)
	}

	return nil
}
