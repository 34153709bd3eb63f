package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/trace"

	"github.com/querychat/querychat/internal/config"
)

func TestTraceMiddlewarePreservesIncomingTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := TraceIDFromContext(r.Context()); got != "trace-1" {
			t.Fatalf("TraceIDFromContext() = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "trace-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get(traceHeader); got != "trace-1" {
		t.Fatalf("trace header = %q", got)
	}
}

func TestTraceMiddlewareGeneratesTraceID(t *testing.T) {
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if TraceIDFromContext(r.Context()) == "" {
			t.Fatal("expected generated trace id")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

	if len(rr.Header().Get(traceHeader)) != 32 {
		t.Fatalf("X-Trace-ID = %q, want 32 hex chars", rr.Header().Get(traceHeader))
	}
}

func TestTraceIDContextHelpers(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "abc123")
	if got := TraceIDFromContext(ctx); got != "abc123" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("TraceIDFromContext(empty) = %q", got)
	}
}

func TestLoggingMiddlewareRecordsStatusAndStreaming(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("data: x\n\n"))
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer does not implement http.Flusher")
		}
		flusher.Flush()
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/chat/completions", nil))

	if !rr.Flushed {
		t.Fatal("expected underlying recorder to be flushed")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusAccepted) {
		t.Fatalf("status = %#v", entry["status"])
	}
	if entry["streamed"] != true {
		t.Fatalf("streamed = %#v", entry["streamed"])
	}
}

func TestLoggingMiddlewareAcceptsNilLogger(t *testing.T) {
	h := LoggingMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestNewLoggerAddsServiceAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{Profile: config.ProfileTest, Service: config.ServiceConfig{Name: "querychat-api"}}
	cfg.Observability.LogJSON = true
	cfg.Observability.LogLevel = slog.LevelInfo

	NewLogger(cfg, &buf).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["service"] != "querychat-api" || entry["profile"] != "test" {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestTraceMiddlewareReplacesMalformedTraceID(t *testing.T) {
	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set(traceHeader, "bad id\nforged=1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen == "bad id\nforged=1" || len(seen) != 32 {
		t.Fatalf("trace id = %q", seen)
	}
	if rr.Header().Get(traceHeader) != seen {
		t.Fatalf("header = %q, context = %q", rr.Header().Get(traceHeader), seen)
	}
}

func TestTraceMiddlewareUsesSpanTraceID(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	var seen string
	h := TraceMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), sc))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("trace id = %q", seen)
	}
}

func TestNewLoggerInjectsTraceIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{Service: config.ServiceConfig{Name: "querychat-api"}}
	cfg.Observability.LogJSON = true

	logger := Component(NewLogger(cfg, &buf), "chat")
	logger.InfoContext(ContextWithTraceID(context.Background(), "t-42"), "state")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["trace_id"] != "t-42" || entry["component"] != "chat" {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestMetricsMiddlewareCollapsesUnknownRoutes(t *testing.T) {
	h := MetricsMiddleware("/v1/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	before := metricValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin/x", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))

	after := metricValue(t, httpRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "404"))
	if after-before != 2 {
		t.Fatalf("unmatched count delta = %v", after-before)
	}
	if metricValue(t, httpInFlightRequests) != 0 {
		t.Fatal("in-flight gauge not released")
	}
}

func TestMetricsMiddlewareGroupsPrefixRoutes(t *testing.T) {
	h := MetricsMiddleware("/v1/health", "/v1/visualizations/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/visualizations/", "200")
	before := metricValue(t, counter)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/visualizations/alice/s1/1_a.png", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/visualizations/bob/s2/2_b.png", nil))
	if got := metricValue(t, counter) - before; got != 2 {
		t.Fatalf("prefix route delta = %v", got)
	}
}

func metricValue(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}
