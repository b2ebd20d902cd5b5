package db

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/digitalka/monthly-sales/report"
	"github.com/shopspring/decimal"
)

// MemoryOrders keeps orders in process. Used by tests and the "memory" store driver.
type MemoryOrders struct {
	mu     sync.RWMutex
	orders []report.Order
	nextID int64
}

// NewMemoryOrders returns a store holding orders. Orders InsertOrder would reject are skipped.
func NewMemoryOrders(orders ...report.Order) *MemoryOrders {
	m := &MemoryOrders{}
	for _, o := range orders {
		_, _ = m.InsertOrder(context.Background(), o)
	}
	return m
}

func (m *MemoryOrders) InsertOrder(_ context.Context, o report.Order) (int64, error) {
	if _, err := toCents(o.Total); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	o.ID = m.nextID
	m.orders = append(m.orders, o)
	return o.ID, nil
}

func (m *MemoryOrders) SumByMonth(_ context.Context, excludeStatus string) ([]report.MonthSum, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type key struct{ year, month int }
	totals := map[key]decimal.Decimal{}
	for _, o := range m.orders {
		if o.Status == excludeStatus {
			continue
		}
		k := key{o.CreatedAt.Year(), int(o.CreatedAt.Month())}
		totals[k] = totals[k].Add(o.Total)
	}

	sums := make([]report.MonthSum, 0, len(totals))
	for k, total := range totals {
		sums = append(sums, report.MonthSum{Year: k.year, Month: k.month, Total: total})
	}
	slices.SortFunc(sums, func(a, b report.MonthSum) int {
		return cmp.Or(cmp.Compare(a.Year, b.Year), cmp.Compare(a.Month, b.Month))
	})
	return sums, nil
}

func (m *MemoryOrders) Close() error {
	return nil
}
