package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingProvider() (*Provider, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewProvider(tp, "test"), rec
}

func TestInitTracerDisabled(t *testing.T) {
	p, err := InitTracer(Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	defer p.Shutdown(context.Background())

	_, span := p.StartSpan(context.Background(), "noop")
	span.End()
}

func TestStartSpanRecordsError(t *testing.T) {
	p, rec := newRecordingProvider()

	ctx, span := p.StartSpan(context.Background(), "engine.run", attribute.String("model", "linear"))
	SetError(ctx, errors.New("forward failed"))
	AddEvent(ctx, "restored")
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	s := ended[0]
	if s.Name() != "engine.run" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", s.Status())
	}
	if len(s.Events()) != 2 { // recorded error + "restored"
		t.Fatalf("expected 2 events, got %d", len(s.Events()))
	}
}

func TestNilProviderStartSpan(t *testing.T) {
	var p *Provider
	ctx, span := p.StartSpan(context.Background(), "ignored")
	if ctx == nil || span == nil {
		t.Fatalf("expected usable context and span from nil provider")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown on nil provider: %v", err)
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	p, rec := newRecordingProvider()
	h := HTTPMiddleware(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	found := false
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "http.status_code" && kv.Value.AsInt64() == http.StatusTeapot {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected http.status_code attribute, got %v", ended[0].Attributes())
	}
}
