package http

import (
	"context"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracestat/internal/domain/category"
	"github.com/GriffinCanCode/tracestat/internal/domain/interval"
	"github.com/GriffinCanCode/tracestat/internal/domain/run"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/tracestat/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/tracestat/internal/report"
	"github.com/GriffinCanCode/tracestat/internal/shared/types"
)

// Version is reported by the root endpoint
const Version = "0.1.0"

var errBadRequest = errors.New("bad request")

// Handlers contains all HTTP handlers
type Handlers struct {
	aggregator *run.Aggregator
	dataRoot   string
	metrics    *monitoring.Metrics
	logger     *logging.Logger
	cache      *reportCache
}

// NewHandlers creates a handler set serving runs below dataRoot
func NewHandlers(aggregator *run.Aggregator, dataRoot string, metrics *monitoring.Metrics, logger *logging.Logger) (*Handlers, error) {
	root, err := filepath.Abs(dataRoot)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve data root %s", dataRoot)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		aggregator: aggregator,
		dataRoot:   root,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// WithCache keeps run reports for ttl; zero disables caching
func (h *Handlers) WithCache(ttl time.Duration) *Handlers {
	h.cache.stop()
	h.cache = newReportCache(ttl)
	return h
}

// Close stops background cache expiry
func (h *Handlers) Close() {
	h.cache.stop()
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/runs", h.GetRun)
	api.GET("/runs/summary", h.GetRunSummary)
	api.GET("/runs/discover", h.DiscoverRuns)
	api.GET("/occupancy", h.GetOccupancy)
	api.POST("/compare", h.Compare)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "tracestat",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status": "healthy",
		"analysis": gin.H{
			"policy":   h.aggregator.Policy().String(),
			"patterns": h.aggregator.Patterns(),
		},
	}
	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

// resolve maps a slash-separated path relative to the data root onto disk.
// Cleaning against "/" first keeps ".." from leaving the root.
func (h *Handlers) resolve(rel string) (string, error) {
	if strings.TrimSpace(rel) == "" {
		return "", errors.Wrap(errBadRequest, "path is required")
	}
	clean := path.Clean("/" + filepath.ToSlash(rel))
	return filepath.Join(h.dataRoot, filepath.FromSlash(clean)), nil
}

func label(c *gin.Context, dir string) string {
	if l := c.Query("label"); l != "" {
		return l
	}
	return dir
}

// GetRun analyzes one run directory and returns the full report
func (h *Handlers) GetRun(c *gin.Context) {
	rel := c.Query("dir")
	dir, err := h.resolve(rel)
	if err != nil {
		h.fail(c, err)
		return
	}

	rep, err := h.analyze(c.Request.Context(), label(c, rel), dir)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewEnvelope("run", rep))
}

// RunSummary is the compact form of a RunReport
type RunSummary struct {
	Label        string             `json:"label"`
	Processes    int                `json:"processes"`
	IntervalLogs int                `json:"interval_logs"`
	TimingLogs   int                `json:"timing_logs"`
	Origin       *float64           `json:"origin,omitempty"`
	Native       types.SummaryTable `json:"native"`
	Derived      types.SummaryTable `json:"derived"`
	Totals       types.SummaryTable `json:"totals,omitempty"`
	Busy         float64            `json:"busy"`
	Idle         float64            `json:"idle"`
	Utilization  float64            `json:"utilization"`
	Flags        []string           `json:"flags,omitempty"`
}

// NewRunSummary drops per-process detail and interval lists from r
func NewRunSummary(r *types.RunReport) RunSummary {
	s := RunSummary{
		Label:        r.Label,
		Processes:    len(r.Processes),
		IntervalLogs: r.IntervalLogs,
		TimingLogs:   r.TimingLogs,
		Origin:       r.Origin,
		Native:       r.Native,
		Derived:      r.Derived,
		Totals:       r.Totals,
		Flags:        r.Flags,
	}
	if r.Occupancy != nil {
		s.Busy = r.Occupancy.Busy
		s.Idle = r.Occupancy.Idle
		s.Utilization = r.Occupancy.Utilization()
	}
	return s
}

// GetRunSummary analyzes one run directory and returns its summaries only
func (h *Handlers) GetRunSummary(c *gin.Context) {
	rel := c.Query("dir")
	dir, err := h.resolve(rel)
	if err != nil {
		h.fail(c, err)
		return
	}

	rep, err := h.analyze(c.Request.Context(), label(c, rel), dir)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewEnvelope("run_summary", NewRunSummary(rep)))
}

// DiscoverRuns lists run directories below root
func (h *Handlers) DiscoverRuns(c *gin.Context) {
	rel := c.DefaultQuery("root", "/")
	root, err := h.resolve(rel)
	if err != nil {
		h.fail(c, err)
		return
	}

	specs, err := run.FindRuns(c.Request.Context(), root, h.aggregator.Patterns(), h.logger)
	if err != nil {
		h.fail(c, err)
		return
	}
	for i := range specs {
		specs[i].Dir = h.relative(specs[i].Dir)
	}
	c.JSON(http.StatusOK, gin.H{"root": rel, "runs": specs})
}

func (h *Handlers) relative(p string) string {
	rel, err := filepath.Rel(h.dataRoot, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

// GetOccupancy returns the busy/idle view of one interval log
func (h *Handlers) GetOccupancy(c *gin.Context) {
	rel := c.Query("file")
	file, err := h.resolve(rel)
	if err != nil {
		h.fail(c, err)
		return
	}

	timer := monitoring.NewTimer(h.metrics, "interval")
	table, err := h.aggregator.Parser().ParseIntervalLog(file)
	count := 0
	if table != nil {
		count = table.Count()
	}
	timer.Stop(count, err)
	if err != nil {
		h.fail(c, err)
		return
	}

	occ, err := interval.OccupyTable(table, h.aggregator.Policy())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewEnvelope("occupancy", gin.H{"source": rel, "occupancy": occ}))
}

// CompareRequest is the body of POST /api/v1/compare. Either Root or Runs
// names the runs; paths are relative to the data root.
type CompareRequest struct {
	Root            string                  `json:"root"`
	Runs            []string                `json:"runs"`
	Categorization  category.Categorization `json:"categorization"`
	ContinueOnError bool                    `json:"continue_on_error"`
}

// Compare analyzes several runs and returns the categorized comparison
func (h *Handlers) Compare(c *gin.Context) {
	var req CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.Wrapf(errBadRequest, "invalid body: %v", err))
		return
	}
	if err := req.Categorization.Prepare(); err != nil {
		h.fail(c, errors.Wrapf(errBadRequest, "%v", err))
		return
	}

	specs, err := h.compareRuns(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	cmp, _, err := h.aggregator.Sweep(c.Request.Context(), specs, &req.Categorization, run.SweepOptions{
		ContinueOnError: req.ContinueOnError,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report.NewEnvelope("comparison", cmp))
}

func (h *Handlers) compareRuns(ctx context.Context, req CompareRequest) ([]run.RunSpec, error) {
	switch {
	case req.Root != "" && len(req.Runs) > 0:
		return nil, errors.Wrap(errBadRequest, "root and runs are mutually exclusive")
	case req.Root != "":
		root, err := h.resolve(req.Root)
		if err != nil {
			return nil, err
		}
		return run.FindRuns(ctx, root, h.aggregator.Patterns(), h.logger)
	case len(req.Runs) > 0:
		specs := make([]run.RunSpec, 0, len(req.Runs))
		for _, rel := range req.Runs {
			dir, err := h.resolve(rel)
			if err != nil {
				return nil, err
			}
			specs = append(specs, run.RunSpec{Label: rel, Dir: dir})
		}
		return specs, nil
	default:
		return nil, errors.Wrap(errBadRequest, "either root or runs is required")
	}
}

// fail maps domain errors onto HTTP status codes
func (h *Handlers) fail(c *gin.Context, err error) {
	var (
		missing *types.MissingFileError
		perr    *types.ParseError
	)

	switch {
	case errors.Is(err, errBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &missing):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not found",
			"kind":  missing.Kind,
			"path":  h.relative(missing.Path),
		})
	case errors.As(err, &perr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "parse error",
			"file":   h.relative(perr.File),
			"line":   perr.Line,
			"reason": perr.Reason,
		})
	case errors.Is(err, types.ErrInsufficientData), errors.Is(err, types.ErrEmptyReferenceSet):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", string(tracing.GetTraceID(c.Request.Context()))),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
