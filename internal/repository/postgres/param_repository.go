// internal/repository/postgres/param_repository.go
package postgres

import (
	"context"
	"fmt"

	"github.com/koyomart/autoorder-go/internal/forecast"
)

// legacyStoreID marks rows in the shared coefficient partition kept for
// stores predating per-store partitioning.
const legacyStoreID = 0

type paramRepository struct {
	db  *DB
	cal *calibrationRepository
}

func NewParamRepository(db *DB) *paramRepository {
	return &paramRepository{db: db, cal: NewCalibrationRepository(db)}
}

// LoadParamSet snapshots one store's coefficient rows plus the legacy shared
// partition and the store's current calibration scalars. The snapshot is
// immutable for the duration of a run.
func (r *paramRepository) LoadParamSet(ctx context.Context, storeID int64) (*forecast.ParamSet, error) {
	cal, err := r.cal.Current(ctx, storeID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT store_id, kind, key, value
		FROM coefficient_values
		WHERE store_id = $1 OR store_id = $2
	`

	rows, err := r.db.QueryxContext(ctx, query, storeID, legacyStoreID)
	if err != nil {
		return nil, fmt.Errorf("failed to load coefficient values: %w", err)
	}
	defer rows.Close()

	values := map[string]float64{}
	legacy := map[string]float64{}
	for rows.Next() {
		var (
			rowStore  int64
			kind, key string
			value     float64
		)
		if err := rows.Scan(&rowStore, &kind, &key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan coefficient row: %w", err)
		}

		if rowStore == storeID && storeID != legacyStoreID {
			values[kind+"|"+key] = value
		} else {
			legacy[kind+"|"+key] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading coefficient rows: %w", err)
	}

	return forecast.NewParamSet(storeID, cal, values, legacy), nil
}
