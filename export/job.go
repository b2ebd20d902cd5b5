package export

import (
	"context"
	"fmt"

	"github.com/digitalka/monthly-sales/report"
)

type Source interface {
	Compute(ctx context.Context) (report.MonthlySales, error)
}

// Job recomputes the monthly sales and exports them. Both the daily task and the
// manual export run through it.
type Job struct {
	source   Source
	exporter *Exporter
}

func NewJob(source Source, exporter *Exporter) *Job {
	return &Job{source: source, exporter: exporter}
}

func (j *Job) Run(ctx context.Context) error {
	sales, err := j.source.Compute(ctx)
	if err != nil {
		return fmt.Errorf("computing monthly sales: %w", err)
	}
	if _, err := j.exporter.Export(ctx, sales); err != nil {
		return fmt.Errorf("exporting monthly sales: %w", err)
	}
	return nil
}
