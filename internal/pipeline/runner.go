// internal/pipeline/runner.go
package pipeline

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/koyomart/autoorder-go/internal/domain"
	"github.com/koyomart/autoorder-go/pkg/logger"
)

// StoreOutcome is one store's result inside a multi-store batch.
type StoreOutcome struct {
	StoreID   int64
	Proposals []domain.OrderProposal
	Report    *domain.RunReport
}

// Runner fans a batch out across stores. Each store run owns its own
// runContext and parameter snapshot, so runs cannot cross-contaminate;
// one store failing never aborts the others.
type Runner struct {
	store *StoreRunner
	limit int
}

func NewRunner(store *StoreRunner, parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{store: store, limit: parallelism}
}

// RunAll executes one batch for every store id, sequentially or in parallel
// up to the configured limit. Fatal per-store errors are captured in that
// store's report instead of propagating.
func (r *Runner) RunAll(ctx context.Context, storeIDs []int64, date time.Time, wave int) []StoreOutcome {
	outcomes := make([]StoreOutcome, len(storeIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)

	var mu sync.Mutex
	for i, storeID := range storeIDs {
		i, storeID := i, storeID
		g.Go(func() error {
			storeLog := logger.ForStore(storeID)
			storeLog.Info().Str("date", date.Format("2006-01-02")).Int("wave", wave).Msg("starting store run")

			proposals, report, err := r.store.Run(gctx, storeID, date, wave)
			if err != nil {
				storeLog.Error().Err(err).Msg("store run failed")
			}

			mu.Lock()
			outcomes[i] = StoreOutcome{StoreID: storeID, Proposals: proposals, Report: report}
			mu.Unlock()

			// a fatal store run is isolated, not propagated
			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}
