// internal/service/order_service.go
package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/cache"
	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/pipeline"
	"github.com/koyomart/autoorder-go/internal/repository"
	"github.com/koyomart/autoorder-go/internal/storage"
)

// OrderService wires the multi-store pipeline to its sinks: the order CSV
// handed to the executor, the optional object-storage upload, and the run
// cache the operational API reads.
type OrderService struct {
	runner    *pipeline.Runner
	stores    repository.StoreRepository
	exclRepo  repository.ExclusionRepository
	runCache  cache.RunCache
	exporter  storage.ObjectStorage // nil when export is disabled
	outputDir string
}

func NewOrderService(
	runner *pipeline.Runner,
	stores repository.StoreRepository,
	exclRepo repository.ExclusionRepository,
	runCache cache.RunCache,
	exporter storage.ObjectStorage,
	outputDir string,
) *OrderService {
	return &OrderService{
		runner:    runner,
		stores:    stores,
		exclRepo:  exclRepo,
		runCache:  runCache,
		exporter:  exporter,
		outputDir: outputDir,
	}
}

// RunStores executes the batch for the given stores (all stores when the
// list is empty) and delivers each store's order list to the sinks.
func (s *OrderService) RunStores(ctx context.Context, storeIDs []int64, date time.Time, wave int) ([]pipeline.StoreOutcome, error) {
	if len(storeIDs) == 0 {
		stores, err := s.stores.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list stores: %w", err)
		}
		for _, st := range stores {
			storeIDs = append(storeIDs, st.ID)
		}

		// a fleet run supersedes everything cached, including entries for
		// stores that no longer exist
		if err := s.runCache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate run cache")
		}
	}

	outcomes := s.runner.RunAll(ctx, storeIDs, date, wave)

	for _, outcome := range outcomes {
		if outcome.Report == nil || outcome.Report.Status == domain.RunFatal {
			continue
		}

		if err := s.deliver(ctx, outcome, date, wave); err != nil {
			// delivery problems degrade the report, they don't undo the run
			log.Error().Err(err).
				Str("reason", domain.ReasonDeliveryFailed).
				Int64("store_id", outcome.StoreID).
				Msg("failed to deliver order list")
			outcome.Report.AddSafeguard(domain.ReasonDeliveryFailed, "", err.Error())
		}

		if err := s.runCache.SetReport(ctx, outcome.Report); err != nil {
			log.Warn().Err(err).Int64("store_id", outcome.StoreID).Msg("failed to cache run report")
		}
		if err := s.runCache.SetProposals(ctx, outcome.StoreID, outcome.Proposals); err != nil {
			log.Warn().Err(err).Int64("store_id", outcome.StoreID).Msg("failed to cache proposals")
		}
	}

	return outcomes, nil
}

// deliver writes the order CSV locally and mirrors it to object storage
// when an exporter is configured.
func (s *OrderService) deliver(ctx context.Context, outcome pipeline.StoreOutcome, date time.Time, wave int) error {
	name := fmt.Sprintf("orders_%d_%s_w%d.csv", outcome.StoreID, date.Format("20060102"), wave)
	path := filepath.Join(s.outputDir, name)

	if err := writeOrderCSV(path, outcome.Proposals); err != nil {
		return err
	}

	if s.exporter != nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to re-read order csv: %w", err)
		}
		key := fmt.Sprintf("orders/%s/%s", date.Format("2006-01-02"), name)
		if err := s.exporter.UploadObject(ctx, key, data); err != nil {
			return err
		}
	}

	return nil
}

func writeOrderCSV(path string, proposals []domain.OrderProposal) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create order csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"item_code", "product_name", "category_code", "wave", "quantity"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, p := range proposals {
		record := []string{
			p.ItemCode,
			p.ProductName,
			p.CategoryCode,
			strconv.Itoa(p.Wave),
			strconv.Itoa(p.Quantity.Int()),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	return w.Error()
}

// LatestReport returns the most recent cached run report for a store.
func (s *OrderService) LatestReport(ctx context.Context, storeID int64) (*domain.RunReport, bool, error) {
	return s.runCache.GetReport(ctx, storeID)
}

// LatestProposals returns the most recent cached order list for a store.
func (s *OrderService) LatestProposals(ctx context.Context, storeID int64) ([]domain.OrderProposal, bool, error) {
	return s.runCache.GetProposals(ctx, storeID)
}

// ExclusionStats exposes the cached externally-managed list for inspection.
func (s *OrderService) ExclusionStats(ctx context.Context, storeID int64) (int, []domain.ExclusionEntry, error) {
	entries, err := s.exclRepo.ListByStore(ctx, storeID)
	if err != nil {
		return 0, nil, err
	}
	return len(entries), entries, nil
}

// Stores lists all stores for the API.
func (s *OrderService) Stores(ctx context.Context) ([]*domain.Store, error) {
	return s.stores.List(ctx)
}

// Exports lists the order CSVs uploaded to object storage for one date.
func (s *OrderService) Exports(ctx context.Context, date time.Time) ([]storage.ObjectInfo, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("export is not configured")
	}
	return s.exporter.ListObjects(ctx, "orders/"+date.Format("2006-01-02")+"/")
}
