// cmd/orderd/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/koyomart/autoorder-go/internal/cache"
	"github.com/koyomart/autoorder-go/internal/calibration"
	"github.com/koyomart/autoorder-go/internal/config"
	"github.com/koyomart/autoorder-go/internal/exclusion"
	"github.com/koyomart/autoorder-go/internal/pipeline"
	"github.com/koyomart/autoorder-go/internal/repository/postgres"
	"github.com/koyomart/autoorder-go/internal/service"
	"github.com/koyomart/autoorder-go/internal/storage"
	"github.com/koyomart/autoorder-go/pkg/logger"
)

type dbKeyType struct{}

var dbKey = dbKeyType{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newStoresFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "stores",
		Usage: "Comma-separated store IDs (default: all stores)",
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	db, _ := c.Context.Value(dbKey).(*postgres.DB)
	return db
}

func parseStoreIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err != nil {
			return nil, fmt.Errorf("invalid store ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// buildOrderService assembles the full pipeline on top of the CLI's database
// handle. The run cache is skipped: batch invocations read nothing back.
func buildOrderService(c *cli.Context, cfg *config.Config) *service.OrderService {
	db := dbFrom(c)

	exclusionRepo := postgres.NewExclusionRepository(db)
	portal := exclusion.NewPortalSource(cfg.Source.BaseURL, time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	filter := exclusion.NewFilter(portal, exclusionRepo)

	repos := pipeline.Repos{
		Products:    postgres.NewProductRepository(db),
		Inventory:   postgres.NewInventoryRepository(db),
		Sales:       postgres.NewSalesRepository(db),
		Orders:      postgres.NewOrderTrackingRepository(db),
		Exclusions:  exclusionRepo,
		Params:      postgres.NewParamRepository(db),
		Predictions: postgres.NewPredictionRepository(db),
	}
	storeRunner := pipeline.NewStoreRunner(repos, filter, pipeline.Config{
		AnalysisDays: cfg.Forecast.AnalysisDays,
		FloorRatio:   cfg.Forecast.FloorRatio,
	})
	runner := pipeline.NewRunner(storeRunner, cfg.Forecast.StoreParallelism)

	var exporter storage.ObjectStorage
	if cfg.Export.Enabled {
		mc, err := storage.NewMinioClient(cfg.Export)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Object storage unavailable, export disabled")
		} else {
			exporter = mc
		}
	}

	return service.NewOrderService(
		runner,
		postgres.NewStoreRepository(db),
		exclusionRepo,
		cache.NewNoopRunCache(),
		exporter,
		cfg.Forecast.OutputDir,
	)
}

func runOrders(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	storeIDs, err := parseStoreIDs(c.String("stores"))
	if err != nil {
		return err
	}

	date := time.Now()
	if raw := c.String("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
	}

	svc := buildOrderService(c, cfg)
	outcomes, err := svc.RunStores(c.Context, storeIDs, date, c.Int("wave"))
	if err != nil {
		return err
	}

	var fatal int
	for _, outcome := range outcomes {
		if outcome.Report == nil {
			fatal++
			continue
		}
		logger.Log.Info().
			Int64("store_id", outcome.StoreID).
			Str("status", string(outcome.Report.Status)).
			Int("proposals", len(outcome.Proposals)).
			Int("safeguards", len(outcome.Report.Safeguards)).
			Msg("Store run finished")
	}
	if fatal == len(outcomes) && len(outcomes) > 0 {
		return fmt.Errorf("all %d store runs failed", fatal)
	}
	return nil
}

func runCalibration(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)
	db := dbFrom(c)

	storeIDs, err := parseStoreIDs(c.String("stores"))
	if err != nil {
		return err
	}

	predictionRepo := postgres.NewPredictionRepository(db)
	calibrationRepo := postgres.NewCalibrationRepository(db)
	calibrator := calibration.NewCalibrator(predictionRepo, calibrationRepo)
	svc := service.NewCalibrationService(calibrator, calibrationRepo, postgres.NewStoreRepository(db))

	updated, err := svc.CalibrateAll(c.Context, storeIDs, c.Int("window-days"))
	if err != nil {
		return err
	}
	logger.Log.Info().Int("updated", updated).Msg("Calibration finished")
	return nil
}

func refreshExclusions(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)
	db := dbFrom(c)

	storeIDs, err := parseStoreIDs(c.String("stores"))
	if err != nil {
		return err
	}
	if len(storeIDs) == 0 {
		stores, err := postgres.NewStoreRepository(db).List(c.Context)
		if err != nil {
			return fmt.Errorf("failed to list stores: %w", err)
		}
		for _, st := range stores {
			storeIDs = append(storeIDs, st.ID)
		}
	}

	exclusionRepo := postgres.NewExclusionRepository(db)
	portal := exclusion.NewPortalSource(cfg.Source.BaseURL, time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	filter := exclusion.NewFilter(portal, exclusionRepo)

	for _, storeID := range storeIDs {
		result := filter.Resolve(c.Context, storeID)
		logger.Log.Info().
			Int64("store_id", storeID).
			Str("mode", string(result.Mode)).
			Int("excluded", len(result.Excluded)).
			Msg("Exclusion snapshot refreshed")
	}
	return nil
}

func markManualOrders(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)
	db := dbFrom(c)

	storeIDs, err := parseStoreIDs(c.String("stores"))
	if err != nil {
		return err
	}
	if len(storeIDs) == 0 {
		stores, err := postgres.NewStoreRepository(db).List(c.Context)
		if err != nil {
			return fmt.Errorf("failed to list stores: %w", err)
		}
		for _, st := range stores {
			storeIDs = append(storeIDs, st.ID)
		}
	}

	orderRepo := postgres.NewOrderTrackingRepository(db)
	day := time.Now()
	if raw := c.String("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
	}

	var total int
	for _, storeID := range storeIDs {
		marked, err := orderRepo.MarkManualReceipts(c.Context, storeID, day)
		if err != nil {
			logger.Log.Error().Err(err).Int64("store_id", storeID).Msg("Manual receipt tagging failed for store")
			continue
		}
		total += marked
	}
	logger.Log.Info().Int("marked", total).Time("day", day).Msg("Manual receipts tagged")
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "orderd",
		Usage: "Multi-store replenishment batch runner",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Compute and persist order proposals for stores",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newStoresFlag(),
					&cli.StringFlag{
						Name:  "date",
						Usage: "Order date (YYYY-MM-DD, default: today)",
					},
					&cli.IntFlag{
						Name:  "wave",
						Usage: "Delivery wave (1 or 2)",
						Value: 1,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runOrders,
			},
			{
				Name:  "calibrate",
				Usage: "Run the closed-loop parameter calibration",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newStoresFlag(),
					&cli.IntFlag{
						Name:  "window-days",
						Usage: "Evaluation window in days",
						Value: 14,
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runCalibration,
			},
			{
				Name:  "refresh-exclusions",
				Usage: "Pull managed-item lists and rebuild the exclusion cache",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newStoresFlag(),
				},
				Before: initDB,
				After:  closeDB,
				Action: refreshExclusions,
			},
			{
				Name:  "mark-manual",
				Usage: "Tag receipts with no matching system order as manual",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newStoresFlag(),
					&cli.StringFlag{
						Name:  "date",
						Usage: "Receipt date to scan (YYYY-MM-DD, default: today)",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: markManualOrders,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
