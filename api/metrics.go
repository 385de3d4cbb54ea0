package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestEventName   = "prism.api.request"
	requestEventDomain = "app"
	requestSpanName    = "prism.api.request"
	tracerName         = "prism-board/api"
	metricsContextKey  = "prism.request.metrics"

	attrRoute        = "http.route"
	attrMethod       = "http.method"
	attrStatusCode   = "http.status_code"
	attrTotalMillis  = "prism.request.total_ms"
	attrAuthMillis   = "prism.request.auth_ms"
	attrStoreMillis  = "prism.request.store_ms"
	attrItems        = "prism.request.items_returned"
	attrActor        = "prism.request.actor"
	attrErrorStage   = "prism.request.error_stage"
	attrErrorMessage = "error.message"
)

type requestMetrics struct {
	logger        *log.Logger
	span          trace.Span
	start         time.Time
	route         string
	method        string
	authDuration  time.Duration
	storeDuration time.Duration
	items         int
	itemsSet      bool
	actor         string
	errorStage    string
	err           error
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(attrRoute, route),
			attribute.String(attrMethod, method),
		),
	)
	return &requestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		route:  route,
		method: method,
	}, ctx
}

func (m *requestMetrics) ObserveAuth(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.authDuration = d
}

// ObserveStore accumulates time spent in storage and the board service.
func (m *requestMetrics) ObserveStore(d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.storeDuration += d
}

func (m *requestMetrics) SetItemsReturned(n int) {
	if m == nil {
		return
	}
	if n < 0 {
		n = 0
	}
	m.items = n
	m.itemsSet = true
}

func (m *requestMetrics) SetActor(userID string) {
	if m == nil {
		return
	}
	m.actor = userID
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *requestMetrics) SetError(err error) {
	if m == nil || err == nil {
		return
	}
	m.err = err
}

func (m *requestMetrics) attributes(status int, err error) map[string]any {
	attrs := map[string]any{
		attrRoute:       m.route,
		attrMethod:      m.method,
		attrStatusCode:  status,
		attrTotalMillis: durationToMillis(time.Since(m.start)),
	}
	if m.authDuration > 0 {
		attrs[attrAuthMillis] = durationToMillis(m.authDuration)
	}
	if m.storeDuration > 0 {
		attrs[attrStoreMillis] = durationToMillis(m.storeDuration)
	}
	if m.itemsSet {
		attrs[attrItems] = m.items
	}
	if m.actor != "" {
		attrs[attrActor] = m.actor
	}
	if m.errorStage != "" {
		attrs[attrErrorStage] = m.errorStage
	}
	if err != nil {
		attrs[attrErrorMessage] = err.Error()
	}
	return attrs
}

// Log ends the request span and emits one observability.event entry.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	severityText, severityNumber := severityForStatus(status, err)
	if err == nil {
		err = m.err
	}
	attrs := m.attributes(status, err)
	kvs := toKeyValues(attrs)

	if m.span != nil {
		m.span.SetAttributes(kvs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", requestEventName),
			attribute.String("event.domain", requestEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, kvs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if severityText == "ERROR" {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	traceID := ""
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
	}
	m.logger.WithFields(log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"trace_id":        traceID,
		"attributes":      attrs,
	}).Log(levelForSeverity(severityText), "observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func levelForSeverity(text string) log.Level {
	switch text {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	}
	return log.InfoLevel
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := attrs[k].(type) {
		case string:
			out = append(out, attribute.String(k, v))
		case int:
			out = append(out, attribute.Int(k, v))
		case int64:
			out = append(out, attribute.Int64(k, v))
		case float64:
			out = append(out, attribute.Float64(k, v))
		case bool:
			out = append(out, attribute.Bool(k, v))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}

// ObserveRequests attaches a requestMetrics to every request and logs it
// once the handler returned.
func ObserveRequests(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			m, ctx := newRequestMetrics(req.Context(), logger, req.Method, route)
			c.SetRequest(req.WithContext(ctx))
			c.Set(metricsContextKey, m)

			err := next(c)
			status := c.Response().Status
			var he *echo.HTTPError
			switch {
			case err == nil:
				m.Log(status, nil)
			case errors.As(err, &he):
				m.SetError(err)
				m.Log(he.Code, nil)
			default:
				if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
				m.Log(status, err)
			}
			return err
		}
	}
}

func metricsFrom(c echo.Context) *requestMetrics {
	m, _ := c.Get(metricsContextKey).(*requestMetrics)
	return m
}
