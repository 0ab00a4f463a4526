// internal/repository/postgres/sales_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

// Stats returns the window sales total and the item's real data age in days.
// The age counts from the first recorded sale, not the window start, so a
// two-day-old item is not averaged over a thirty-day window.
func (r *salesRepository) Stats(ctx context.Context, storeID int64, itemCode string, analysisDays int, asOf time.Time) (int, int, error) {
	from := asOf.AddDate(0, 0, -analysisDays)

	query := `
		SELECT COALESCE(SUM(units_sold), 0) AS total, MIN(sales_date) AS first_date
		FROM sales_history
		WHERE store_id = $1 AND item_code = $2 AND sales_date > $3 AND sales_date <= $4
	`

	var row struct {
		Total     int          `db:"total"`
		FirstDate sql.NullTime `db:"first_date"`
	}
	if err := r.db.GetContext(ctx, &row, query, storeID, itemCode, from, asOf); err != nil {
		return 0, 0, fmt.Errorf("failed to get sales stats: %w", err)
	}

	if !row.FirstDate.Valid {
		return 0, 0, nil
	}

	// Age from the earliest sale on record, independent of the window, so
	// that a long-established item entering a fresh window still counts as
	// mature.
	var earliest time.Time
	firstQuery := `
		SELECT MIN(sales_date) FROM sales_history
		WHERE store_id = $1 AND item_code = $2
	`
	if err := r.db.GetContext(ctx, &earliest, firstQuery, storeID, itemCode); err != nil {
		return 0, 0, fmt.Errorf("failed to get first sale date: %w", err)
	}

	age := int(asOf.Sub(earliest).Hours()/24) + 1
	if age > analysisDays {
		age = analysisDays
	}
	if age < 1 {
		age = 1
	}

	return row.Total, age, nil
}
