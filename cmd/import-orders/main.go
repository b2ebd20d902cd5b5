package main

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/db"
	"github.com/digitalka/monthly-sales/logging"
	"github.com/digitalka/monthly-sales/report"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	filePath := flag.String("file", "", "CSV file with columns status,total,created_at (required)")
	driver := flag.String("store", consts.DefaultStoreDriver, "Order store driver (sqlite or postgres)")
	dsn := flag.String("db", "", "Database connection string (default: $DATA_FOLDER/orders.db or ./orders.db)")
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	dbURI := *dsn
	if dbURI == "" {
		dbURI = cmp.Or(os.Getenv("DATABASE_URI"), filepath.Join(cmp.Or(os.Getenv("DATA_FOLDER"), "."), consts.DefaultDatabaseFile))
	}

	level, err := logging.ParseLevel(cmp.Or(os.Getenv("LOG_LEVEL"), consts.DefaultLogLevel))
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewZapLogger(level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), *filePath, *driver, dbURI, logger); err != nil {
		logger.Fatal("Error importing orders", zap.String("file", *filePath), zap.Error(err))
	}
}

func run(ctx context.Context, filePath, driver, dsn string, logger *zap.Logger) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filePath, err)
	}
	defer f.Close()

	orders, err := readOrders(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filePath, err)
	}
	cancelled := 0
	for _, o := range orders {
		if o.Cancelled() {
			cancelled++
		}
	}
	logger.Info("Read orders",
		zap.Int("count", len(orders)),
		zap.Int("cancelled", cancelled),
		zap.String("file", filepath.Base(filePath)),
	)

	store, err := db.OpenStore(driver, dsn)
	if err != nil {
		return fmt.Errorf("opening order store: %w", err)
	}
	defer func() { _ = store.Close() }()

	imported, err := importOrders(ctx, store, orders)
	logger.Info("Imported orders", zap.Int("count", imported), zap.String("driver", driver))
	return err
}

func importOrders(ctx context.Context, store db.OrderStore, orders []report.Order) (int, error) {
	for i, o := range orders {
		if _, err := store.InsertOrder(ctx, o); err != nil {
			return i, fmt.Errorf("importing order %d: %w", i+1, err)
		}
	}
	return len(orders), nil
}

var createdAtLayouts = []string{consts.DateTimeFormat, time.RFC3339, consts.DateFormat}

// readOrders parses a CSV with a header row naming the status, total and created_at columns
func readOrders(r io.Reader) ([]report.Order, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"status", "total", "created_at"} {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var orders []report.Order
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		total, err := decimal.NewFromString(record[columns["total"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing total: %w", line, err)
		}
		if err := db.CheckTotal(total); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		createdAt, err := parseCreatedAt(record[columns["created_at"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		orders = append(orders, report.Order{
			Status:    normalizeStatus(record[columns["status"]]),
			Total:     total,
			CreatedAt: createdAt,
		})
	}
	return orders, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing created_at %q", s)
}

// normalizeStatus adds the "wc-" prefix shop exports sometimes leave out
func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "wc-") {
		s = "wc-" + s
	}
	return s
}
