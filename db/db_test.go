package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func TestDB(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "DB Suite")
}

func order(status, total string, year int, month time.Month, day int) report.Order {
	return report.Order{
		Status:    status,
		Total:     decimal.RequireFromString(total),
		CreatedAt: time.Date(year, month, day, 10, 30, 0, 0, time.UTC),
	}
}

var fixtures = []report.Order{
	order("wc-completed", "100", 2024, time.January, 5),
	order(consts.CancelledStatus, "50", 2024, time.January, 20),
	order("wc-completed", "30", 2024, time.February, 1),
	order("wc-processing", "0.10", 2023, time.December, 31),
	order("wc-processing", "0.20", 2023, time.December, 1),
}

// storeContract runs the same expectations against every OrderStore implementation
func storeContract(open func() OrderStore) {
	var store OrderStore
	ctx := context.Background()

	BeforeEach(func() {
		store = open()
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("returns no rows for an empty store", func() {
		sums, err := store.SumByMonth(ctx, consts.CancelledStatus)
		Expect(err).NotTo(HaveOccurred())
		Expect(sums).To(BeEmpty())
	})

	It("assigns increasing ids", func() {
		id1, err := store.InsertOrder(ctx, fixtures[0])
		Expect(err).NotTo(HaveOccurred())
		id2, err := store.InsertOrder(ctx, fixtures[1])
		Expect(err).NotTo(HaveOccurred())
		Expect(id2).To(BeNumerically(">", id1))
	})

	It("groups by month, skips the excluded status and orders ascending", func() {
		for _, o := range fixtures {
			_, err := store.InsertOrder(ctx, o)
			Expect(err).NotTo(HaveOccurred())
		}

		sums, err := store.SumByMonth(ctx, consts.CancelledStatus)
		Expect(err).NotTo(HaveOccurred())
		Expect(sums).To(HaveLen(3))

		Expect(sums[0].Year).To(Equal(2023))
		Expect(sums[0].Month).To(Equal(12))
		Expect(sums[0].Total.String()).To(Equal("0.3"))

		Expect(sums[1].Year).To(Equal(2024))
		Expect(sums[1].Month).To(Equal(1))
		Expect(sums[1].Total.String()).To(Equal("100"))

		Expect(sums[2].Month).To(Equal(2))
		Expect(sums[2].Total.String()).To(Equal("30"))
	})

	It("rejects totals finer than a cent instead of rounding them", func() {
		_, err := store.InsertOrder(ctx, order("wc-completed", "10.005", 2024, time.January, 2))
		Expect(err).To(MatchError(ErrTotalPrecision))
		_, err = store.InsertOrder(ctx, order("wc-completed", "0.004", 2024, time.January, 3))
		Expect(err).To(MatchError(ErrTotalPrecision))

		sums, err := store.SumByMonth(ctx, consts.CancelledStatus)
		Expect(err).NotTo(HaveOccurred())
		Expect(sums).To(BeEmpty())
	})
}

var _ = Describe("Order stores", func() {
	Describe("sqlite", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "orders-db-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(tempDir)
		})

		storeContract(func() OrderStore {
			store, err := OpenSQLite(filepath.Join(tempDir, "orders.db"))
			Expect(err).NotTo(HaveOccurred())
			return store
		})

		It("can be reopened without reapplying migrations", func() {
			path := filepath.Join(tempDir, "reopen.db")
			store, err := OpenSQLite(path)
			Expect(err).NotTo(HaveOccurred())
			_, err = store.InsertOrder(context.Background(), fixtures[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Close()).To(Succeed())

			store, err = OpenSQLite(path)
			Expect(err).NotTo(HaveOccurred())
			defer store.Close()
			sums, err := store.SumByMonth(context.Background(), consts.CancelledStatus)
			Expect(err).NotTo(HaveOccurred())
			Expect(sums).To(HaveLen(1))
		})
	})

	Describe("memory", func() {
		storeContract(func() OrderStore {
			return NewMemoryOrders()
		})
	})

	Describe("OpenStore", func() {
		It("rejects unknown drivers", func() {
			_, err := OpenStore("mysql", "")
			Expect(err).To(MatchError(ContainSubstring("unknown store driver")))
		})

		It("opens the memory driver", func() {
			store, err := OpenStore("memory", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(store).To(BeAssignableToTypeOf(&MemoryOrders{}))
		})
	})

	Describe("cents conversion", func() {
		It("converts whole cents both ways", func() {
			cents, err := toCents(decimal.RequireFromString("12.35"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cents).To(Equal(int64(1235)))
			cents, err = toCents(decimal.RequireFromString("-7.10"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cents).To(Equal(int64(-710)))
			Expect(fromCents(1235).String()).To(Equal("12.35"))
			Expect(fromCents(10000).String()).To(Equal("100"))
		})

		It("refuses sub-cent amounts", func() {
			_, err := toCents(decimal.RequireFromString("12.345"))
			Expect(err).To(MatchError(ErrTotalPrecision))
			Expect(err).To(MatchError(ContainSubstring("12.345")))
		})
	})
})
