package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/logging"
	"github.com/digitalka/monthly-sales/report"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestTimeout = 30 * time.Second

func main() {
	reportURL := flag.String("url", "", "Public URL of "+consts.ReportFileName+" (required)")
	month := flag.String("month", "", "Only print the total of this month (YYYY-MM)")
	flag.Parse()

	if *reportURL == "" {
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(zapcore.WarnLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	client := resty.New().SetTimeout(requestTimeout)
	sales, err := fetchReport(context.Background(), client, *reportURL)
	if err != nil {
		logger.Fatal("Error fetching report", zap.String("url", *reportURL), zap.Error(err))
	}
	if *month != "" {
		if err := printMonth(os.Stdout, sales, *month); err != nil {
			logger.Fatal("Error printing month", zap.Error(err))
		}
		return
	}
	printReport(os.Stdout, sales)
}

func fetchReport(ctx context.Context, client *resty.Client, url string) (report.MonthlySales, error) {
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status())
	}
	return parseReport(bytes.NewReader(resp.Body()))
}

func parseReport(r io.Reader) (report.MonthlySales, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if header[0] != consts.CSVMonthHeader || header[1] != consts.CSVTotalHeader {
		return nil, fmt.Errorf("unexpected header %q", header)
	}

	var sales report.MonthlySales
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if _, err := time.Parse(consts.PeriodFormat, record[0]); err != nil {
			return nil, fmt.Errorf("parsing period %q: %w", record[0], err)
		}
		if n := sales.Len(); n > 0 && sales[n-1].Period >= record[0] {
			return nil, fmt.Errorf("period %s out of order after %s", record[0], sales[n-1].Period)
		}
		total, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("parsing total for %s: %w", record[0], err)
		}
		sales = append(sales, report.PeriodTotal{Period: record[0], Total: total})
	}
	return sales, nil
}

func printMonth(w io.Writer, sales report.MonthlySales, period string) error {
	total, ok := sales.Get(period)
	if !ok {
		return fmt.Errorf("no sales for %s", period)
	}
	fmt.Fprintf(w, "%s | %12s\n", period, total.StringFixed(2))
	return nil
}

func printReport(w io.Writer, sales report.MonthlySales) {
	if sales.Len() == 0 {
		fmt.Fprintln(w, "No sales data available.")
		return
	}
	for _, pt := range sales {
		fmt.Fprintf(w, "%s | %12s\n", pt.Period, pt.Total.StringFixed(2))
	}
	fmt.Fprintf(w, "Total   | %12s\n", sales.Sum().StringFixed(2))
}
