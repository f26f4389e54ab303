package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		// route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		status := strconv.Itoa(c.Writer.Status())
		respSize := int64(c.Writer.Size())
		if respSize < 0 {
			respSize = 0
		}
		metrics.RecordHTTPRequest(method, path, status, time.Since(start), respSize)
	}
}

// Timer measures one parse
type Timer struct {
	start   time.Time
	metrics *Metrics
	kind    string
}

// NewTimer starts timing a parse of the given log kind
func NewTimer(metrics *Metrics, kind string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		kind:    kind,
	}
}

// Stop records the parse outcome and returns the elapsed time
func (t *Timer) Stop(intervals int, err error) time.Duration {
	elapsed := time.Since(t.start)
	t.metrics.RecordParse(t.kind, elapsed, intervals, err)
	return elapsed
}
