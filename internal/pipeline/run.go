// internal/pipeline/run.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/internal/exclusion"
	"github.com/koyomart/autoorder-go/internal/forecast"
	"github.com/koyomart/autoorder-go/internal/repository"
)

// Repos bundles everything a store run reads and writes. The bundle itself
// is shared read-only; all mutable per-run state lives in runContext.
type Repos struct {
	Products    repository.ProductRepository
	Inventory   repository.InventoryRepository
	Sales       repository.SalesRepository
	Orders      repository.OrderTrackingRepository
	Exclusions  repository.ExclusionRepository
	Params      repository.ParamRepository
	Predictions repository.PredictionRepository
}

// Config is the deployment-wide pipeline configuration.
type Config struct {
	AnalysisDays     int
	FloorRatio       float64
	StoreParallelism int
}

// runContext is the private state of one store's run: built at run start,
// discarded at run end, never shared between stores.
type runContext struct {
	storeID   int64
	date      time.Time
	params    *forecast.ParamSet
	exclusion exclusion.Result
	report    *domain.RunReport
}

// StoreRunner executes the linear per-store sequence: sanitize, strategize,
// compute coefficients, filter, finalize.
type StoreRunner struct {
	repos  Repos
	filter *exclusion.Filter
	engine *forecast.Engine
	cfg    Config
}

func NewStoreRunner(repos Repos, filter *exclusion.Filter, cfg Config) *StoreRunner {
	if cfg.AnalysisDays <= 0 {
		cfg.AnalysisDays = 30
	}
	return &StoreRunner{
		repos:  repos,
		filter: filter,
		engine: forecast.NewEngine(cfg.FloorRatio),
		cfg:    cfg,
	}
}

// Run produces the store's order proposals for one day and wave. It always
// returns a report; only a persistence-layer failure makes the run fatal.
func (r *StoreRunner) Run(ctx context.Context, storeID int64, date time.Time, wave int) ([]domain.OrderProposal, *domain.RunReport, error) {
	report := &domain.RunReport{
		StoreID: storeID,
		RunDate: date.Format("2006-01-02"),
		Status:  domain.RunSuccess,
	}

	params, err := r.repos.Params.LoadParamSet(ctx, storeID)
	if err != nil {
		report.Status = domain.RunFatal
		report.Error = err.Error()
		return nil, report, fmt.Errorf("failed to load param set: %w", err)
	}

	rc := &runContext{
		storeID: storeID,
		date:    date,
		params:  params,
		report:  report,
	}

	// Exclusion resolution degrades, it never blocks.
	rc.exclusion = r.filter.Resolve(ctx, storeID)
	if rc.exclusion.Reason != "" {
		report.AddSafeguard(rc.exclusion.Reason, "", string(rc.exclusion.Mode))
	}

	candidates, err := r.candidates(ctx, rc)
	if err != nil {
		report.Status = domain.RunFatal
		report.Error = err.Error()
		return nil, report, err
	}

	proposals := make([]domain.OrderProposal, 0, len(candidates))
	for _, product := range candidates {
		proposal, err := r.forecastItem(ctx, rc, product, wave)
		if err != nil {
			// one bad item never aborts the batch for the rest
			log.Error().Err(err).
				Int64("store_id", storeID).
				Str("item_code", product.ItemCode).
				Msg("failed to forecast item")
			report.AddSafeguard(domain.ReasonItemSkipped, product.ItemCode, err.Error())
			continue
		}
		if proposal == nil || proposal.Quantity == 0 {
			continue
		}
		proposals = append(proposals, *proposal)
	}

	if err := r.persist(ctx, rc, wave, proposals); err != nil {
		report.Status = domain.RunFatal
		report.Error = err.Error()
		return nil, report, err
	}

	report.Proposals = len(proposals)

	log.Info().
		Int64("store_id", storeID).
		Str("status", string(report.Status)).
		Int("proposals", len(proposals)).
		Int("excluded", report.Excluded).
		Int("safeguards", len(report.Safeguards)).
		Msg("store run completed")

	return proposals, report, nil
}

// candidates lists orderable products: the full master minus the
// store-unavailable, discontinued and externally-managed sets. All three are
// the same membership subtraction keyed by item code.
func (r *StoreRunner) candidates(ctx context.Context, rc *runContext) ([]*domain.Product, error) {
	products, err := r.repos.Products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	unavailable := map[string]struct{}{}
	discontinued := map[string]struct{}{}
	for _, p := range products {
		if !p.Available {
			unavailable[p.ItemCode] = struct{}{}
		}
		if p.Discontinued {
			discontinued[p.ItemCode] = struct{}{}
		}
	}

	kept, dropped := exclusion.Apply(products, unavailable, discontinued, rc.exclusion.Excluded)
	rc.report.Excluded = dropped

	return kept, nil
}

// forecastItem runs the full per-item sequence and returns nil when the
// store needs nothing.
func (r *StoreRunner) forecastItem(ctx context.Context, rc *runContext, product *domain.Product, wave int) (*domain.OrderProposal, error) {
	totalSales, dataDays, err := r.repos.Sales.Stats(ctx, rc.storeID, product.ItemCode, r.cfg.AnalysisDays, rc.date)
	if err != nil {
		return nil, fmt.Errorf("sales stats: %w", err)
	}
	if totalSales == 0 && dataDays == 0 {
		// never sold here, nothing to project from
		return nil, nil
	}

	dailyAvg := forecast.BlendedDailyAverage(float64(totalSales), dataDays, r.cfg.AnalysisDays)

	itemCtx := forecast.ItemContext{
		StoreID:  rc.storeID,
		Product:  *product,
		Date:     rc.date,
		Wave:     wave,
		DailyAvg: dailyAvg,
		Params:   rc.params,
	}

	strat := forecast.ResolveStrategy(product.CategoryCode)
	comp := r.engine.Compose(rc.storeID, product.ItemCode, dailyAvg, forecast.Coefficients(strat, itemCtx))
	if comp.FloorApplied {
		rc.report.AddSafeguard(domain.ReasonFloorTriggered, product.ItemCode, "")
	}

	safety := strat.SafetyStock(itemCtx)

	inv, err := r.repos.Inventory.Get(ctx, rc.storeID, product.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	// third defense point: sanitize immediately before use
	inv.Sanitize()
	available := float64(inv.StockQty.Int() + inv.PendingQty.Int())

	qty := forecast.FinalOrderQty(comp.Adjusted, safety, available, rc.params.Calibration.MaxDailyCap, product.OrderUnit)

	coeffs := make(map[string]float64, len(comp.Applied))
	for _, c := range comp.Applied {
		coeffs[c.Name] = c.Value
	}
	if err := r.repos.Predictions.Log(ctx, &domain.PredictionLog{
		StoreID:        rc.storeID,
		ItemCode:       product.ItemCode,
		PredictionDate: rc.date,
		BaseValue:      comp.Base,
		Coefficients:   coeffs,
		FloorApplied:   comp.FloorApplied,
		FinalValue:     comp.Adjusted + safety,
	}); err != nil {
		return nil, fmt.Errorf("prediction log: %w", err)
	}

	if qty == 0 {
		return nil, nil
	}

	return &domain.OrderProposal{
		StoreID:      rc.storeID,
		ItemCode:     product.ItemCode,
		ProductName:  product.Name,
		CategoryCode: product.CategoryCode,
		Wave:         wave,
		Quantity:     qty,
		BaseValue:    comp.Base,
		FinalValue:   comp.Adjusted,
		SafetyStock:  safety,
		FloorApplied: comp.FloorApplied,
	}, nil
}

// persist appends one order-tracking row per proposal.
func (r *StoreRunner) persist(ctx context.Context, rc *runContext, wave int, proposals []domain.OrderProposal) error {
	for _, p := range proposals {
		days := forecast.ExpiryDays(rc.params, p.CategoryCode)
		arrival, expiry := forecast.ArrivalExpiry(rc.date, wave, days)

		if err := r.repos.Orders.Insert(ctx, &domain.OrderTracking{
			StoreID:      rc.storeID,
			ItemCode:     p.ItemCode,
			CategoryCode: p.CategoryCode,
			OrderDate:    rc.date,
			Wave:         wave,
			OrderedQty:   p.Quantity,
			RemainingQty: p.Quantity,
			ArrivalAt:    arrival,
			ExpiryAt:     expiry,
			Status:       "ordered",
			OrderSource:  domain.OrderSourceAuto,
		}); err != nil {
			return fmt.Errorf("failed to persist order tracking: %w", err)
		}
	}

	return nil
}
