package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/digitalka/monthly-sales/config"
	"github.com/digitalka/monthly-sales/db"
	"github.com/digitalka/monthly-sales/export"
	"github.com/digitalka/monthly-sales/logging"
	"github.com/digitalka/monthly-sales/report"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewZapLogger(level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Exporting monthly sales report", zap.String("dir", cfg.UploadsDir))
	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("Error exporting monthly sales report", zap.Error(err))
	}
	logger.Info("Monthly sales report exported successfully")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := db.OpenStore(cfg.StoreDriver, cfg.DatabaseURI)
	if err != nil {
		return fmt.Errorf("opening order store: %w", err)
	}
	defer func() { _ = store.Close() }()

	job := export.NewJob(report.NewAggregator(store), export.New(cfg.UploadsDir, logger))
	return job.Run(ctx)
}
