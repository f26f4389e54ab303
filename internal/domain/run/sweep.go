package run

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracestat/internal/domain/category"
	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// SweepOptions controls multi-run comparison
type SweepOptions struct {
	// ContinueOnError flags a failing run in its row instead of aborting
	ContinueOnError bool
}

// ErrorFlag is the row flag prefix of a run that failed under ContinueOnError
const ErrorFlag = "error: "

// Sweep analyzes runs in order and builds one comparison row per run
func (a *Aggregator) Sweep(ctx context.Context, runs []RunSpec, cat *category.Categorization, opts SweepOptions) (*types.Comparison, []*types.RunReport, error) {
	if cat == nil {
		return nil, nil, errors.New("sweep requires a categorization")
	}

	cmp := &types.Comparison{
		Source:     string(cat.Source),
		Statistic:  string(cat.Statistic),
		Categories: cat.Names(),
		Rows:       make([]types.ComparisonRow, 0, len(runs)),
	}
	reports := make([]*types.RunReport, 0, len(runs))

	for _, spec := range runs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		report, err := a.AnalyzeRun(ctx, spec.Label, spec.Dir)
		if err != nil {
			if !opts.ContinueOnError || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			a.logger.Warn("Run failed, continuing sweep",
				zap.String("run", spec.Label), zap.Error(err))

			report = &types.RunReport{
				Label:     spec.Label,
				Dir:       spec.Dir,
				Processes: []*types.ProcessReport{},
				Native:    types.SummaryTable{},
				Derived:   types.SummaryTable{},
				Flags:     []string{ErrorFlag + err.Error()},
				Empty:     true,
			}
		}

		values, missing := cat.Apply(cat.Select(report))
		cmp.Rows = append(cmp.Rows, types.ComparisonRow{
			Label:     spec.Label,
			Values:    values,
			Missing:   missing,
			Processes: len(report.Processes),
			Flags:     report.Flags,
		})
		reports = append(reports, report)
	}
	return cmp, reports, nil
}
