package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	"go.uber.org/zap"
)

// Exporter writes the monthly sales CSV into the uploads directory.
// Exports are serialized and land through a rename, so readers of the
// file never see a partial write.
type Exporter struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) *Exporter {
	return &Exporter{dir: dir, logger: logger}
}

func (e *Exporter) Path() string {
	return filepath.Join(e.dir, consts.ReportFileName)
}

// PublicURL is where the uploads route serves the exported file.
func PublicURL(uploadsBaseURL string) string {
	u, err := url.JoinPath(uploadsBaseURL, consts.ReportFileName)
	if err != nil {
		return uploadsBaseURL + "/" + consts.ReportFileName
	}
	return u
}

// Export replaces the CSV file with the given sales. An empty report leaves any
// existing file untouched and returns false.
func (e *Exporter) Export(ctx context.Context, sales report.MonthlySales) (bool, error) {
	if sales.Len() == 0 {
		e.logger.Info("No sales to export, keeping previous file", zap.String("path", e.Path()))
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, consts.DirPermissions); err != nil {
		return false, fmt.Errorf("creating uploads directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, "."+consts.ReportFileName+".*")
	if err != nil {
		return false, fmt.Errorf("creating temporary export file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := WriteCSV(tmp, sales); err != nil {
		return false, fmt.Errorf("writing export file: %w", err)
	}
	if err := tmp.Chmod(consts.FilePermissions); err != nil {
		return false, fmt.Errorf("setting export file permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return false, fmt.Errorf("syncing export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("closing export file: %w", err)
	}
	if err := os.Rename(tmpName, e.Path()); err != nil {
		return false, fmt.Errorf("replacing export file: %w", err)
	}
	committed = true

	e.logger.Info("Exported monthly sales",
		zap.String("path", e.Path()),
		zap.Int("months", sales.Len()),
	)
	return true, nil
}

// WriteCSV writes the header row followed by one row per period.
func WriteCSV(w io.Writer, sales report.MonthlySales) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{consts.CSVMonthHeader, consts.CSVTotalHeader}); err != nil {
		return err
	}
	for _, pt := range sales {
		if err := writer.Write([]string{pt.Period, pt.Total.String()}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
