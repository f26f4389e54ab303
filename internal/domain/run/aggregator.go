package run

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/tracestat/internal/domain/interval"
	"github.com/GriffinCanCode/tracestat/internal/domain/parser"
	"github.com/GriffinCanCode/tracestat/internal/domain/summary"
	"github.com/GriffinCanCode/tracestat/internal/domain/timebase"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// DefaultWorkers bounds concurrent file parsing
const DefaultWorkers = 8

// Aggregator analyzes run directories
type Aggregator struct {
	patterns Patterns
	workers  int
	policy   interval.Policy
	parser   *parser.Parser
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewAggregator creates an aggregator with default patterns and workers
func NewAggregator(p *parser.Parser, policy interval.Policy) *Aggregator {
	if p == nil {
		p = parser.Default()
	}
	return &Aggregator{
		patterns: DefaultPatterns(),
		workers:  DefaultWorkers,
		policy:   policy,
		parser:   p,
		logger:   logging.NewNop(),
	}
}

// WithPatterns sets discovery patterns
func (a *Aggregator) WithPatterns(patterns Patterns) *Aggregator {
	a.patterns = patterns
	return a
}

// WithWorkers sets the parse concurrency; values below 1 mean 1
func (a *Aggregator) WithWorkers(n int) *Aggregator {
	a.workers = max(n, 1)
	return a
}

// WithLogger sets the logger
func (a *Aggregator) WithLogger(logger *logging.Logger) *Aggregator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithMetrics sets the metrics collector
func (a *Aggregator) WithMetrics(metrics *monitoring.Metrics) *Aggregator {
	a.metrics = metrics
	return a
}

// Policy returns the boundary policy used for coalescing
func (a *Aggregator) Policy() interval.Policy {
	return a.policy
}

// Parser returns the log parser shared by every run
func (a *Aggregator) Parser() *parser.Parser {
	return a.parser
}

// Patterns returns the discovery patterns
func (a *Aggregator) Patterns() Patterns {
	return a.patterns
}

// AnalyzeRun parses every log of dir and builds its report. A directory
// without logs yields an empty, flagged report rather than an error.
func (a *Aggregator) AnalyzeRun(ctx context.Context, label, dir string) (*types.RunReport, error) {
	span, ctx := tracing.StartSpan(ctx, "analyze_run")
	span.SetTag("run", label)
	defer span.Finish()

	report, err := a.analyzeRun(ctx, label, dir)
	if err != nil {
		span.SetError(err)
	}
	return report, err
}

func (a *Aggregator) analyzeRun(ctx context.Context, label, dir string) (*types.RunReport, error) {
	start := time.Now()
	log := a.logger.ForRun(label, dir)

	inv, err := Discover(dir, a.patterns)
	if err != nil {
		a.metrics.RecordRun(monitoring.RunError, 0, time.Since(start))
		return nil, err
	}

	report := &types.RunReport{
		Label:        label,
		Dir:          dir,
		Processes:    []*types.ProcessReport{},
		Native:       types.SummaryTable{},
		Derived:      types.SummaryTable{},
		IntervalLogs: len(inv.IntervalLogs),
		TimingLogs:   len(inv.TimingLogs),
	}

	log.Info("Discovered logs",
		zap.Int("interval_logs", report.IntervalLogs),
		zap.Int("timing_logs", report.TimingLogs))

	if inv.Empty() {
		report.Empty = true
		report.Flags = []string{types.FlagNoLogs}
		log.Warn("Run has no logs")
		a.metrics.RecordRun(monitoring.RunEmpty, 0, time.Since(start))
		return report, nil
	}

	intervals, timings, err := a.parseAll(ctx, log, inv)
	if err != nil {
		a.metrics.RecordRun(monitoring.RunError, 0, time.Since(start))
		return nil, errors.Wrapf(err, "run %s", label)
	}

	if report.IntervalLogs == 0 {
		report.Flags = append(report.Flags, types.FlagNoIntervalLogs)
	}
	if report.TimingLogs == 0 {
		report.Flags = append(report.Flags, types.FlagNoTimingLogs)
	}

	rebased := intervals
	if report.IntervalLogs > 0 {
		origin, err := timebase.Origin(intervals...)
		switch {
		case errors.Is(err, types.ErrEmptyReferenceSet):
			report.Flags = append(report.Flags, types.FlagNoIntervals)
		case err != nil:
			return nil, err
		default:
			report.Origin = &origin
			rebased = timebase.RebaseAll(intervals, origin)
		}
	}

	report.Processes = a.buildProcesses(inv, rebased, timings)

	if report.Origin != nil {
		var all []types.Interval
		for _, t := range rebased {
			all = append(all, interval.MergeAllKeys(t)...)
		}
		occ, err := interval.Occupy(all, a.policy)
		if err != nil {
			return nil, err
		}
		report.Occupancy = occ
	}

	native, derived, totals := summary.NewBuilder(), summary.NewBuilder(), summary.NewBuilder()
	for _, p := range report.Processes {
		if p.Timing != nil {
			native.Add(p.Timing)
		}
		if p.Derived != nil {
			derived.Add(p.Derived)
		}
		if len(p.Totals) > 0 {
			totals.Add(p.Totals)
		}
	}
	report.Native = native.Table()
	report.Derived = derived.Table()
	if totals.Sources() > 0 {
		report.Totals = totals.Table()
	}

	status := monitoring.RunOK
	if len(report.Flags) > 0 {
		status = monitoring.RunFlagged
		log.Warn("Run flagged", zap.Strings("flags", report.Flags))
	}
	a.metrics.RecordRun(status, len(report.Processes), time.Since(start))

	log.Info("Run analyzed",
		zap.Int("processes", len(report.Processes)),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// parseAll parses every log concurrently; results keep inventory order
func (a *Aggregator) parseAll(ctx context.Context, log *logging.Logger, inv *Inventory) ([]*types.IntervalTable, []types.ScalarTable, error) {
	intervals := make([]*types.IntervalTable, len(inv.IntervalLogs))
	timings := make([]types.ScalarTable, len(inv.TimingLogs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, f := range inv.IntervalLogs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			timer := monitoring.NewTimer(a.metrics, kindInterval)
			table, err := a.parser.ParseIntervalLog(f.Path)
			count := 0
			if table != nil {
				count = table.Count()
			}
			elapsed := timer.Stop(count, err)
			if err != nil {
				return err
			}
			log.Debug("Parsed interval log",
				zap.String("file", f.Name),
				zap.Int("keys", table.Len()),
				zap.Int("intervals", count),
				zap.Duration("elapsed", elapsed))
			intervals[i] = table
			return nil
		})
	}

	for i, f := range inv.TimingLogs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			timer := monitoring.NewTimer(a.metrics, kindTiming)
			table, err := a.parser.ParseScalarLog(f.Path)
			elapsed := timer.Stop(0, err)
			if err != nil {
				return err
			}
			log.Debug("Parsed timing log",
				zap.String("file", f.Name),
				zap.Int("keys", len(table)),
				zap.Duration("elapsed", elapsed))
			timings[i] = table
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return intervals, timings, nil
}

type processKey struct {
	role types.Role
	rank int
}

// buildProcesses pairs interval and timing logs of the same role and rank
func (a *Aggregator) buildProcesses(inv *Inventory, intervals []*types.IntervalTable, timings []types.ScalarTable) []*types.ProcessReport {
	var procs []*types.ProcessReport
	byKey := make(map[processKey]*types.ProcessReport)

	for i, f := range inv.IntervalLogs {
		p := &types.ProcessReport{Role: f.Role, Rank: f.Rank, IntervalFile: f.Name}
		a.fillIntervals(p, intervals[i])
		procs = append(procs, p)
		if f.Rank >= 0 {
			byKey[processKey{f.Role, f.Rank}] = p
		}
	}

	for i, f := range inv.TimingLogs {
		if p, ok := byKey[processKey{f.Role, f.Rank}]; ok && f.Rank >= 0 && p.TimingFile == "" {
			p.TimingFile = f.Name
			p.Timing = timings[i]
			continue
		}
		procs = append(procs, &types.ProcessReport{
			Role:       f.Role,
			Rank:       f.Rank,
			TimingFile: f.Name,
			Timing:     timings[i],
		})
	}

	sort.SliceStable(procs, func(i, j int) bool {
		x, y := procs[i], procs[j]
		if x.Role != y.Role {
			return roleOrder(x.Role) < roleOrder(y.Role)
		}
		if x.Rank != y.Rank {
			return x.Rank < y.Rank
		}
		return processName(x) < processName(y)
	})
	return procs
}

func processName(p *types.ProcessReport) string {
	if p.IntervalFile != "" {
		return p.IntervalFile
	}
	return p.TimingFile
}

// fillIntervals derives per-key durations and the busy/idle view of one process
func (a *Aggregator) fillIntervals(p *types.ProcessReport, table *types.IntervalTable) {
	p.Intervals = table
	if len(table.Totals) > 0 {
		p.Totals = table.Totals
	}
	p.Derived = make(types.ScalarTable, table.Len())
	table.Each(func(key string, xs []types.Interval) {
		p.Derived[key] = interval.TotalLength(xs)
	})

	if table.Count() > 0 {
		// only fails on empty input
		p.Occupancy, _ = interval.OccupyTable(table, a.policy)
	}
}
