// internal/repository/postgres/calibration_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/koyomart/autoorder-go/internal/domain"
)

// Shipped defaults for a store that has never been calibrated.
const (
	defaultSafetyStockRatio = 0.5
	defaultWasteDamping     = 0.7
	defaultMaxDailyCap      = 0 // uncapped until calibration sets one
)

type calibrationRepository struct {
	db *DB
}

func NewCalibrationRepository(db *DB) *calibrationRepository {
	return &calibrationRepository{db: db}
}

// Current returns the authoritative parameter row for a store, or the
// shipped defaults when the store was never calibrated.
func (r *calibrationRepository) Current(ctx context.Context, storeID int64) (domain.CalibrationParams, error) {
	query := `
		SELECT store_id, safety_stock_ratio, waste_damping, max_daily_cap, updated_at
		FROM calibration_params
		WHERE store_id = $1
	`

	var params domain.CalibrationParams
	if err := r.db.GetContext(ctx, &params, query, storeID); err != nil {
		if err == sql.ErrNoRows {
			return domain.CalibrationParams{
				StoreID:          storeID,
				SafetyStockRatio: defaultSafetyStockRatio,
				WasteDamping:     defaultWasteDamping,
				MaxDailyCap:      defaultMaxDailyCap,
			}, nil
		}
		return domain.CalibrationParams{}, fmt.Errorf("failed to get calibration params: %w", err)
	}

	return params, nil
}

// Update writes the new current row and appends a history version in the
// same transaction. History rows are never deleted or rewritten.
func (r *calibrationRepository) Update(ctx context.Context, params domain.CalibrationParams, reason string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		upsert := `
			INSERT INTO calibration_params (store_id, safety_stock_ratio, waste_damping, max_daily_cap, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (store_id)
			DO UPDATE SET
				safety_stock_ratio = EXCLUDED.safety_stock_ratio,
				waste_damping = EXCLUDED.waste_damping,
				max_daily_cap = EXCLUDED.max_daily_cap,
				updated_at = NOW()
		`
		if _, err := tx.ExecContext(ctx, upsert,
			params.StoreID, params.SafetyStockRatio, params.WasteDamping, params.MaxDailyCap); err != nil {
			return fmt.Errorf("failed to upsert calibration params: %w", err)
		}

		history := `
			INSERT INTO calibration_history (
				store_id, version, safety_stock_ratio, waste_damping, max_daily_cap, reason, created_at
			)
			SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $5, NOW()
			FROM calibration_history
			WHERE store_id = $1
		`
		if _, err := tx.ExecContext(ctx, history,
			params.StoreID, params.SafetyStockRatio, params.WasteDamping, params.MaxDailyCap, reason); err != nil {
			return fmt.Errorf("failed to append calibration history: %w", err)
		}

		return nil
	})
}

func (r *calibrationRepository) History(ctx context.Context, storeID int64, limit int) ([]domain.CalibrationVersion, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, store_id, version, safety_stock_ratio, waste_damping, max_daily_cap, reason, created_at
		FROM calibration_history
		WHERE store_id = $1
		ORDER BY version DESC
		LIMIT $2
	`

	var versions []domain.CalibrationVersion
	if err := sqlx.SelectContext(ctx, r.db, &versions, query, storeID, limit); err != nil {
		return nil, fmt.Errorf("failed to list calibration history: %w", err)
	}

	return versions, nil
}

func (r *calibrationRepository) FleetParams(ctx context.Context) ([]domain.CalibrationParams, error) {
	query := `
		SELECT store_id, safety_stock_ratio, waste_damping, max_daily_cap, updated_at
		FROM calibration_params
		ORDER BY store_id
	`

	var params []domain.CalibrationParams
	if err := sqlx.SelectContext(ctx, r.db, &params, query); err != nil {
		return nil, fmt.Errorf("failed to list fleet calibration params: %w", err)
	}

	return params, nil
}
