// internal/repository/postgres/prediction_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/repository"
)

type predictionRepository struct {
	db *DB
}

func NewPredictionRepository(db *DB) *predictionRepository {
	return &predictionRepository{db: db}
}

// Log writes one prediction trace. The coefficient map is stored as JSONB so
// calibration and offline review see every adjustor that shaped the value.
func (r *predictionRepository) Log(ctx context.Context, p *domain.PredictionLog) error {
	coeffs, err := json.Marshal(p.Coefficients)
	if err != nil {
		return fmt.Errorf("failed to encode coefficients: %w", err)
	}

	query := `
		INSERT INTO prediction_log (
			store_id, item_code, prediction_date, base_value, coefficients, floor_applied, final_value
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (store_id, item_code, prediction_date)
		DO UPDATE SET
			base_value = EXCLUDED.base_value,
			coefficients = EXCLUDED.coefficients,
			floor_applied = EXCLUDED.floor_applied,
			final_value = EXCLUDED.final_value
	`

	if _, err := r.db.ExecContext(ctx, query,
		p.StoreID, p.ItemCode, p.PredictionDate, p.BaseValue, coeffs, p.FloorApplied, p.FinalValue); err != nil {
		return fmt.Errorf("failed to insert prediction log: %w", err)
	}

	return nil
}

func (r *predictionRepository) RecordOutcome(ctx context.Context, o *domain.EvalOutcome) error {
	query := `
		INSERT INTO eval_outcome (store_id, item_code, prediction_date, sold_qty, waste_qty)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (store_id, item_code, prediction_date)
		DO UPDATE SET sold_qty = EXCLUDED.sold_qty, waste_qty = EXCLUDED.waste_qty
	`

	if _, err := r.db.ExecContext(ctx, query,
		o.StoreID, o.ItemCode, o.PredictionDate, o.SoldQty, o.WasteQty); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

// PairedWindow joins predictions with outcomes on (store, item, date).
// Predictions without ground truth yet are left out; calibration only
// learns from closed pairs.
func (r *predictionRepository) PairedWindow(ctx context.Context, storeID int64, from, to time.Time) ([]repository.PredictionPair, error) {
	query := `
		SELECT
			p.store_id, p.item_code, p.prediction_date,
			p.base_value, p.coefficients, p.floor_applied, p.final_value,
			o.sold_qty, o.waste_qty
		FROM prediction_log p
		JOIN eval_outcome o
			ON o.store_id = p.store_id
			AND o.item_code = p.item_code
			AND o.prediction_date = p.prediction_date
		WHERE p.store_id = $1 AND p.prediction_date >= $2 AND p.prediction_date < $3
		ORDER BY p.prediction_date, p.item_code
	`

	rows, err := r.db.QueryxContext(ctx, query, storeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction window: %w", err)
	}
	defer rows.Close()

	var pairs []repository.PredictionPair
	for rows.Next() {
		var (
			pair      repository.PredictionPair
			rawCoeffs []byte
		)
		if err := rows.Scan(
			&pair.Prediction.StoreID,
			&pair.Prediction.ItemCode,
			&pair.Prediction.PredictionDate,
			&pair.Prediction.BaseValue,
			&rawCoeffs,
			&pair.Prediction.FloorApplied,
			&pair.Prediction.FinalValue,
			&pair.Outcome.SoldQty,
			&pair.Outcome.WasteQty,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction pair: %w", err)
		}

		if len(rawCoeffs) > 0 {
			if err := json.Unmarshal(rawCoeffs, &pair.Prediction.Coefficients); err != nil {
				return nil, fmt.Errorf("failed to decode coefficients: %w", err)
			}
		}

		pair.Outcome.StoreID = pair.Prediction.StoreID
		pair.Outcome.ItemCode = pair.Prediction.ItemCode
		pair.Outcome.PredictionDate = pair.Prediction.PredictionDate
		pairs = append(pairs, pair)
	}

	return pairs, rows.Err()
}
