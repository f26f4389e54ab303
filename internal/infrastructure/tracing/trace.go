package tracing

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/tracestat/internal/infrastructure/logging"
)

// TraceID identifies one request and every span under it
type TraceID string

// SpanID identifies a single operation
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID   TraceID
	SpanID    SpanID
	ParentID  SpanID
	Name      string
	StartTime time.Time
	Duration  time.Duration
	Tags      map[string]string
	Error     error
	Status    int

	tracer *Tracer
}

// Tracer creates spans and logs them when they finish
type Tracer struct {
	service string
	logger  *logging.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new tracer instance
func New(service string, logger *logging.Logger) *Tracer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracer{
		service: service,
		logger:  logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// newID returns a ULID; monotonic entropy keeps ids from one tracer sortable
func (t *Tracer) newID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), t.entropy).String()
}

// StartSpan creates a span, continuing the trace carried by ctx if any
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(t.newID())
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(t.newID()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
		tracer:    t,
	}

	ctx = context.WithValue(ctx, tracerKey, t)
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// StartSpan starts a child span with the tracer carried by ctx. Without a
// tracer the returned span records nothing.
func StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	t, _ := ctx.Value(tracerKey).(*Tracer)
	if t == nil {
		return &Span{Name: name, Tags: make(map[string]string)}, ctx
	}
	return t.StartSpan(ctx, name)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.Status = code
}

// Finish stamps the duration and logs the span. Root spans log at info,
// children at debug; failed spans always log at warn.
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
	if s.tracer == nil {
		return
	}

	fields := []zap.Field{
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.String("operation", s.Name),
		zap.Duration("duration", s.Duration),
		zap.String("service", s.tracer.service),
	}
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	if s.Status != 0 {
		fields = append(fields, zap.Int("status", s.Status))
	}
	for k, v := range s.Tags {
		fields = append(fields, zap.String(k, v))
	}

	switch {
	case s.Error != nil:
		s.tracer.logger.Warn("span failed", append(fields, zap.Error(s.Error))...)
	case s.ParentID == "":
		s.tracer.logger.Info("span completed", fields...)
	default:
		s.tracer.logger.Debug("span completed", fields...)
	}
}

// Context keys for trace propagation
type contextKey string

const (
	tracerKey  contextKey = "tracer"
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTraceContext seeds ctx with ids received from a caller
func WithTraceContext(ctx context.Context, traceID TraceID, parentID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if parentID != "" {
		ctx = context.WithValue(ctx, spanIDKey, parentID)
	}
	return ctx
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}
