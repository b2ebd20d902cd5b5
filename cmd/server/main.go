package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitalka/monthly-sales/admin"
	"github.com/digitalka/monthly-sales/config"
	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/db"
	"github.com/digitalka/monthly-sales/export"
	"github.com/digitalka/monthly-sales/logging"
	"github.com/digitalka/monthly-sales/report"
	"github.com/digitalka/monthly-sales/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
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

	store, err := db.OpenStore(cfg.StoreDriver, cfg.DatabaseURI)
	if err != nil {
		logger.Fatal("Error opening order store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() { _ = store.Close() }()
	logger.Info("Connected to order store", zap.String("driver", cfg.StoreDriver))

	money, err := admin.NewMoneyFormatter(cfg.Currency, cfg.Locale)
	if err != nil {
		logger.Fatal("Error configuring currency", zap.Error(err))
	}

	aggregator := report.NewAggregator(store)
	exporter := export.New(cfg.UploadsDir, logger.Named("export"))
	job := export.NewJob(aggregator, exporter)

	rootCtx, cancelCtx := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelCtx()

	tasks, err := startTasks(rootCtx, cfg.ExportCron, job, logger)
	if err != nil {
		logger.Fatal("Error starting scheduled tasks", zap.Error(err))
	}

	sessions := session.NewManager([]byte(cfg.SessionSecret), cfg.SessionTTL)
	adminHandler := admin.New(aggregator, job, sessions, money, export.PublicURL(cfg.UploadsBaseURL), logger.Named("admin"))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		ReadHeaderTimeout: consts.ReadHeaderTimeout,
		Handler:           newRouter(cfg.UploadsDir, adminHandler, logger),
	}

	logger.Info("Starting monthly sales report server", zap.String("addr", server.Addr))
	if err := run(rootCtx, cfg, server, tasks, logger); err != nil {
		logger.Error("Server shutdown with error", zap.Error(err))
		return
	}
	logger.Info("Server shutdown gracefully")
}

func run(rootCtx context.Context, cfg *config.Config, server *http.Server, tasks *tasks, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server ListenAndServe failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		tasks.stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
