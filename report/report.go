package report

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/shopspring/decimal"
)

// Order is a shop order as seen by the report. The order store is owned by the shop.
type Order struct {
	ID        int64
	Status    string
	Total     decimal.Decimal
	CreatedAt time.Time
}

func (o Order) Cancelled() bool {
	return o.Status == consts.CancelledStatus
}

// MonthSum is one row of the grouping query.
type MonthSum struct {
	Year  int
	Month int
	Total decimal.Decimal
}

// Store runs the monthly grouping query, skipping orders with excludeStatus.
type Store interface {
	SumByMonth(ctx context.Context, excludeStatus string) ([]MonthSum, error)
}

type PeriodTotal struct {
	Period string
	Total  decimal.Decimal
}

// MonthlySales is ordered ascending by period and holds each period once.
type MonthlySales []PeriodTotal

func (m MonthlySales) Len() int {
	return len(m)
}

func (m MonthlySales) Get(period string) (decimal.Decimal, bool) {
	i, found := slices.BinarySearchFunc(m, period, func(pt PeriodTotal, p string) int {
		return strings.Compare(pt.Period, p)
	})
	if !found {
		return decimal.Zero, false
	}
	return m[i].Total, true
}

func (m MonthlySales) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, pt := range m {
		sum = sum.Add(pt.Total)
	}
	return sum
}

func (m MonthlySales) Periods() []string {
	periods := make([]string, len(m))
	for i, pt := range m {
		periods[i] = pt.Period
	}
	return periods
}

// PeriodKey formats a calendar month as YYYY-MM. month must be 1-12.
func PeriodKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(consts.PeriodFormat)
}

type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Compute returns the total of non-cancelled orders per calendar month.
func (a *Aggregator) Compute(ctx context.Context) (MonthlySales, error) {
	rows, err := a.store.SumByMonth(ctx, consts.CancelledStatus)
	if err != nil {
		return nil, fmt.Errorf("summing orders by month: %w", err)
	}
	return fromRows(rows)
}

func fromRows(rows []MonthSum) (MonthlySales, error) {
	sales := make(MonthlySales, 0, len(rows))
	for _, r := range rows {
		if r.Month < 1 || r.Month > 12 {
			return nil, fmt.Errorf("invalid month %d for year %d", r.Month, r.Year)
		}
		sales = append(sales, PeriodTotal{Period: PeriodKey(r.Year, r.Month), Total: r.Total})
	}
	slices.SortStableFunc(sales, func(a, b PeriodTotal) int {
		return strings.Compare(a.Period, b.Period)
	})

	// Stores group by period already; merge anyway so keys stay unique
	merged := sales[:0]
	for _, pt := range sales {
		if n := len(merged); n > 0 && merged[n-1].Period == pt.Period {
			merged[n-1].Total = merged[n-1].Total.Add(pt.Total)
			continue
		}
		merged = append(merged, pt)
	}
	return merged, nil
}
