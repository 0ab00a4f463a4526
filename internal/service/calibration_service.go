// internal/service/calibration_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/calibration"
	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/repository"
)

// CalibrationService runs the scheduled feedback loop over stores and
// serves parameter reads for the API.
type CalibrationService struct {
	calibrator *calibration.Calibrator
	params     repository.CalibrationRepository
	stores     repository.StoreRepository
}

func NewCalibrationService(
	calibrator *calibration.Calibrator,
	params repository.CalibrationRepository,
	stores repository.StoreRepository,
) *CalibrationService {
	return &CalibrationService{calibrator: calibrator, params: params, stores: stores}
}

// CalibrateAll calibrates every given store independently (all stores when
// the list is empty). One store's failure is logged and skipped; the rest of
// the fleet still calibrates.
func (s *CalibrationService) CalibrateAll(ctx context.Context, storeIDs []int64, windowDays int) (updated int, err error) {
	if len(storeIDs) == 0 {
		stores, err := s.stores.List(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list stores: %w", err)
		}
		for _, st := range stores {
			storeIDs = append(storeIDs, st.ID)
		}
	}

	now := time.Now()
	for _, storeID := range storeIDs {
		_, changed, err := s.calibrator.CalibrateStore(ctx, storeID, windowDays, now)
		if err != nil {
			log.Error().Err(err).Int64("store_id", storeID).Msg("calibration failed for store")
			continue
		}
		if changed {
			updated++
		}
	}

	return updated, nil
}

// Current returns the store's authoritative parameters.
func (s *CalibrationService) Current(ctx context.Context, storeID int64) (domain.CalibrationParams, error) {
	return s.params.Current(ctx, storeID)
}

// History returns the append-only version trail for a store.
func (s *CalibrationService) History(ctx context.Context, storeID int64, limit int) ([]domain.CalibrationVersion, error) {
	return s.params.History(ctx, storeID, limit)
}

// Divergent lists stores whose parameters drift beyond threshold from the
// fleet median.
func (s *CalibrationService) Divergent(ctx context.Context, threshold float64) ([]domain.CalibrationParams, error) {
	fleet, err := s.params.FleetParams(ctx)
	if err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = 0.3
	}
	return calibration.Divergence(fleet, threshold), nil
}
