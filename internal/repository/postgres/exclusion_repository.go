// internal/repository/postgres/exclusion_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/koyomart/autoorder-go/internal/domain"
)

type exclusionRepository struct {
	db *DB
}

func NewExclusionRepository(db *DB) *exclusionRepository {
	return &exclusionRepository{db: db}
}

// ReplaceAll swaps the store's cached exclusion list in one transaction.
// Delete-then-insert runs as a single atomic unit: a failed refresh leaves
// the previous cache intact, a successful one leaves exactly the new rows.
func (r *exclusionRepository) ReplaceAll(ctx context.Context, storeID int64, entries []domain.ExclusionEntry) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM exclusion_cache WHERE store_id = $1`, storeID); err != nil {
			return fmt.Errorf("failed to clear exclusion cache: %w", err)
		}

		query := `
			INSERT INTO exclusion_cache (
				store_id, item_code, name, category_code, first_detected_at, last_confirmed_at
			) VALUES ($1, $2, $3, $4, $5, $6)
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.ExecContext(
				ctx,
				storeID,
				e.ItemCode,
				e.Name,
				e.CategoryCode,
				e.FirstDetectedAt,
				e.LastConfirmedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert exclusion entry: %w", err)
			}
		}

		return nil
	})
}

func (r *exclusionRepository) ListByStore(ctx context.Context, storeID int64) ([]domain.ExclusionEntry, error) {
	query := `
		SELECT store_id, item_code, name, category_code, first_detected_at, last_confirmed_at
		FROM exclusion_cache
		WHERE store_id = $1
		ORDER BY item_code
	`

	var entries []domain.ExclusionEntry
	if err := sqlx.SelectContext(ctx, r.db, &entries, query, storeID); err != nil {
		return nil, fmt.Errorf("failed to list exclusion cache: %w", err)
	}

	return entries, nil
}

func (r *exclusionRepository) CountByStore(ctx context.Context, storeID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM exclusion_cache WHERE store_id = $1`, storeID); err != nil {
		return 0, fmt.Errorf("failed to count exclusion cache: %w", err)
	}

	return count, nil
}
