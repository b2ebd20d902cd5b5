package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestExport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Export Suite")
}

func sales(pairs ...string) report.MonthlySales {
	var s report.MonthlySales
	for i := 0; i < len(pairs); i += 2 {
		s = append(s, report.PeriodTotal{Period: pairs[i], Total: decimal.RequireFromString(pairs[i+1])})
	}
	return s
}

type staticSource struct {
	sales report.MonthlySales
	err   error
}

func (s staticSource) Compute(context.Context) (report.MonthlySales, error) {
	return s.sales, s.err
}

var _ = Describe("Exporter", func() {
	var (
		tempDir  string
		exporter *Exporter
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "export-test")
		Expect(err).NotTo(HaveOccurred())
		exporter = New(filepath.Join(tempDir, "uploads"), zap.NewNop())
		ctx = context.Background()
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	readFile := func() string {
		data, err := os.ReadFile(exporter.Path())
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	It("writes the header and one row per month", func() {
		written, err := exporter.Export(ctx, sales("2024-01", "100", "2024-02", "30"))
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(BeTrue())
		Expect(exporter.Path()).To(Equal(filepath.Join(tempDir, "uploads", consts.ReportFileName)))
		Expect(readFile()).To(Equal("Month,Total Sales\n2024-01,100\n2024-02,30\n"))
	})

	It("keeps decimal precision", func() {
		_, err := exporter.Export(ctx, sales("2023-12", "1234.56"))
		Expect(err).NotTo(HaveOccurred())
		Expect(readFile()).To(ContainSubstring("2023-12,1234.56\n"))
	})

	It("produces identical bytes when exporting the same data twice", func() {
		data := sales("2024-01", "100", "2024-02", "30.5")
		_, err := exporter.Export(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		first := readFile()
		_, err = exporter.Export(ctx, data)
		Expect(err).NotTo(HaveOccurred())
		Expect(readFile()).To(Equal(first))
	})

	It("replaces a previous export entirely", func() {
		_, err := exporter.Export(ctx, sales("2024-01", "100", "2024-02", "30", "2024-03", "5"))
		Expect(err).NotTo(HaveOccurred())
		_, err = exporter.Export(ctx, sales("2024-01", "1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(readFile()).To(Equal("Month,Total Sales\n2024-01,1\n"))
	})

	It("leaves an existing file untouched when there is nothing to export", func() {
		_, err := exporter.Export(ctx, sales("2024-01", "100"))
		Expect(err).NotTo(HaveOccurred())
		before := readFile()

		written, err := exporter.Export(ctx, report.MonthlySales{})
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(BeFalse())
		Expect(readFile()).To(Equal(before))
	})

	It("does not create a file for an empty report", func() {
		written, err := exporter.Export(ctx, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(written).To(BeFalse())
		_, err = os.Stat(exporter.Path())
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("fails loudly when the directory cannot be written", func() {
		blocker := filepath.Join(tempDir, "blocker")
		Expect(os.WriteFile(blocker, []byte("x"), 0600)).To(Succeed())
		exporter = New(filepath.Join(blocker, "uploads"), zap.NewNop())

		_, err := exporter.Export(ctx, sales("2024-01", "100"))
		Expect(err).To(MatchError(ContainSubstring("creating uploads directory")))
	})

	It("leaves no temporary files behind", func() {
		_, err := exporter.Export(ctx, sales("2024-01", "100"))
		Expect(err).NotTo(HaveOccurred())
		entries, err := os.ReadDir(filepath.Dir(exporter.Path()))
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal(consts.ReportFileName))
	})

	It("serializes concurrent exports into a complete file", func() {
		a := sales("2024-01", "100", "2024-02", "30")
		b := sales("2025-01", "7")
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				data := a
				if i%2 == 1 {
					data = b
				}
				_, err := exporter.Export(ctx, data)
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()
		Expect(readFile()).To(Or(
			Equal("Month,Total Sales\n2024-01,100\n2024-02,30\n"),
			Equal("Month,Total Sales\n2025-01,7\n"),
		))
	})

	It("stops before writing when the context is done", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := exporter.Export(cctx, sales("2024-01", "100"))
		Expect(err).To(MatchError(context.Canceled))
	})
})

var _ = Describe("WriteCSV", func() {
	It("quotes values containing separators", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, report.MonthlySales{{Period: "2024,01", Total: decimal.NewFromInt(1)}})).To(Succeed())
		Expect(buf.String()).To(Equal("Month,Total Sales\n\"2024,01\",1\n"))
	})
})

var _ = Describe("PublicURL", func() {
	It("joins the uploads base URL and the file name", func() {
		Expect(PublicURL("/uploads")).To(Equal("/uploads/" + consts.ReportFileName))
		Expect(PublicURL("https://shop.example/wp-content/uploads/")).
			To(Equal("https://shop.example/wp-content/uploads/" + consts.ReportFileName))
	})
})

var _ = Describe("Job", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "export-job-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("computes and exports", func() {
		exporter := New(tempDir, zap.NewNop())
		job := NewJob(staticSource{sales: sales("2024-01", "100")}, exporter)
		Expect(job.Run(context.Background())).To(Succeed())
		Expect(exporter.Path()).To(BeAnExistingFile())
	})

	It("does not export when computing fails", func() {
		exporter := New(tempDir, zap.NewNop())
		job := NewJob(staticSource{err: errors.New("db down")}, exporter)
		err := job.Run(context.Background())
		Expect(err).To(MatchError(ContainSubstring("computing monthly sales")))
		Expect(exporter.Path()).NotTo(BeAnExistingFile())
	})
})
