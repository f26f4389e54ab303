package main

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracestat/internal/domain/category"
	"github.com/GriffinCanCode/tracestat/internal/domain/interval"
	"github.com/GriffinCanCode/tracestat/internal/domain/parser"
	"github.com/GriffinCanCode/tracestat/internal/domain/run"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/config"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/server"
	"github.com/GriffinCanCode/tracestat/internal/report"
)

// cli holds state shared by every subcommand once flags are parsed
type cli struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	format  report.Format

	policy      string
	emptyKeys   string
	workers     int
	maxLineSize string
	metricsFile string
	logLevel    string
	dev         bool
	formatFlag  string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "tracestat",
		Short: "aggregate interval and timing logs of parallel runs",
		Long: `
Tracestat parses per-process interval logs (KEY,START-END,...) and timing logs
(KEY,VALUE), rebases them onto a common origin and summarizes them per run or
across a sweep of runs.
`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.policy, "policy", defaults.Analysis.BoundaryPolicy, "boundary policy for coalescing: inclusive or exclusive")
	f.StringVar(&c.emptyKeys, "empty-keys", defaults.Analysis.EmptyKeys, "keys without intervals: retain or drop")
	f.IntVar(&c.workers, "workers", defaults.Analysis.Workers, "files parsed concurrently per run")
	f.StringVar(&c.maxLineSize, "max-line-size", humanize.IBytes(uint64(defaults.Analysis.MaxLineBytes)), "longest accepted log line, e.g. 64KiB or 16MiB")
	f.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	f.StringVar(&c.logLevel, "log-level", defaults.Logging.Level, "debug, info, warn or error")
	f.BoolVar(&c.dev, "dev", false, "human-readable console logs")
	f.StringVar(&c.formatFlag, "format", string(report.FormatText), "output format: text, markdown, csv or json")

	root.AddCommand(
		c.analyzeCmd(),
		c.compareCmd(),
		c.gapsCmd(),
		c.serveCmd(),
	)
	return root
}

// setup loads the environment configuration and applies explicitly set flags on top
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Analysis.BoundaryPolicy = c.policy
	}
	if flags.Changed("empty-keys") {
		cfg.Analysis.EmptyKeys = c.emptyKeys
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = c.workers
	}
	if flags.Changed("max-line-size") {
		n, err := humanize.ParseBytes(c.maxLineSize)
		if err != nil {
			return errors.Wrapf(err, "--max-line-size %q", c.maxLineSize)
		}
		cfg.Analysis.MaxLineBytes = int(n)
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File = c.metricsFile
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = c.logLevel
	}
	if flags.Changed("dev") {
		cfg.Logging.Development = c.dev
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.format, err = report.ParseFormat(c.formatFlag); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	logCfg.Level = cfg.Logging.Level
	if c.logger, err = logging.New(logCfg); err != nil {
		return errors.Wrap(err, "create logger")
	}

	c.cfg = cfg
	c.metrics = monitoring.NewMetrics()

	c.logger.Debug("Configuration loaded",
		zap.String("policy", cfg.Analysis.BoundaryPolicy),
		zap.String("empty_keys", cfg.Analysis.EmptyKeys),
		zap.Int("workers", cfg.Analysis.Workers),
		zap.String("max_line", humanize.IBytes(uint64(cfg.Analysis.MaxLineBytes))))
	return nil
}

func (c *cli) teardown(cmd *cobra.Command) error {
	// serve writes its own snapshot during shutdown
	if path := c.cfg.Metrics.File; path != "" && cmd.Name() != "serve" {
		if err := c.metrics.WriteTextfile(path); err != nil {
			return errors.Wrapf(err, "write metrics %s", path)
		}
	}
	_ = c.logger.Sync()
	return nil
}

func (c *cli) parser() *parser.Parser {
	opts, _ := c.cfg.ParserOptions()
	return parser.New(opts)
}

func (c *cli) boundary() interval.Policy {
	policy, _ := c.cfg.Policy()
	return policy
}

func (c *cli) aggregator() *run.Aggregator {
	return run.NewAggregator(c.parser(), c.boundary()).
		WithPatterns(server.Patterns(c.cfg)).
		WithWorkers(c.cfg.Analysis.Workers).
		WithLogger(c.logger).
		WithMetrics(c.metrics)
}

func runLabel(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}

func (c *cli) analyzeCmd() *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "analyze RUN_DIR",
		Short: "summarize one run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if label == "" {
				label = runLabel(dir)
			}

			rep, err := c.aggregator().AnalyzeRun(cmd.Context(), label, dir)
			if err != nil {
				return err
			}
			return report.RenderRun(cmd.OutOrStdout(), rep, c.format)
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "run label (default: directory name)")
	return cmd
}

func (c *cli) compareCmd() *cobra.Command {
	var (
		categories      string
		root            string
		continueOnError bool
	)

	cmd := &cobra.Command{
		Use:   "compare --categories FILE (RUN_DIR... | --root SWEEP_DIR)",
		Short: "compare categorized quantities across runs",
		Long: `
Analyzes each run and sums the chosen statistic of every key mapped to a
category. Runs come either from the arguments, in order, or from every
directory below --root that holds at least one log.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (root == "") == (len(args) == 0) {
				return errors.New("give either run directories or --root")
			}

			cat, err := category.Load(categories)
			if err != nil {
				return err
			}

			var specs []run.RunSpec
			if root != "" {
				if specs, err = run.FindRuns(cmd.Context(), root, server.Patterns(c.cfg), c.logger); err != nil {
					return err
				}
				c.logger.Info("Found runs", zap.String("root", root), zap.Int("runs", len(specs)))
			} else {
				for _, dir := range args {
					specs = append(specs, run.RunSpec{Label: runLabel(dir), Dir: dir})
				}
			}

			cmp, _, err := c.aggregator().Sweep(cmd.Context(), specs, cat, run.SweepOptions{
				ContinueOnError: continueOnError,
			})
			if err != nil {
				return err
			}
			return report.RenderComparison(cmd.OutOrStdout(), cmp, c.format)
		},
	}
	cmd.Flags().StringVar(&categories, "categories", "", "categorization file (.yaml, .toml or .json)")
	cmd.Flags().StringVar(&root, "root", "", "discover runs below this directory")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "flag failing runs instead of aborting")
	_ = cmd.MarkFlagRequired("categories")
	return cmd
}

func (c *cli) gapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gaps INTERVAL_LOG",
		Short: "show busy spans and idle gaps of one interval log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timer := monitoring.NewTimer(c.metrics, "interval")
			table, err := c.parser().ParseIntervalLog(args[0])
			count := 0
			if table != nil {
				count = table.Count()
			}
			elapsed := timer.Stop(count, err)
			if err != nil {
				return err
			}
			c.logger.Debug("Parsed interval log",
				zap.String("file", args[0]),
				zap.Int("intervals", count),
				zap.Duration("elapsed", elapsed))

			occ, err := interval.OccupyTable(table, c.boundary())
			if err != nil {
				return errors.Wrapf(err, "%s", args[0])
			}
			return report.RenderOccupancy(cmd.OutOrStdout(), filepath.Base(args[0]), occ, c.format)
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var host, port, dataRoot string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve run reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("host") {
				c.cfg.Server.Host = host
			}
			if flags.Changed("port") {
				c.cfg.Server.Port = port
			}
			if flags.Changed("data-root") {
				c.cfg.Server.DataRoot = dataRoot
			}

			srv, err := server.NewServer(c.cfg, c.logger, c.metrics)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	defaults := config.Default()
	cmd.Flags().StringVar(&host, "host", defaults.Server.Host, "listen host")
	cmd.Flags().StringVar(&port, "port", defaults.Server.Port, "listen port")
	cmd.Flags().StringVar(&dataRoot, "data-root", defaults.Server.DataRoot, "directory that request paths are resolved against")
	return cmd
}
