package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOtlpHeaders(t *testing.T) {
	got := otlpHeaders("a=1, b = 2 ,broken,=x")
	if len(got) != 2 || got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("otlpHeaders: got=%v", got)
	}
	if otlpHeaders("") != nil {
		t.Fatalf("otlpHeaders empty should be nil")
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "report.extract")
	EndSpan(span, errors.New("boom"))

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != "report.extract" {
		t.Fatalf("ended spans: %v", ended)
	}
	if ended[0].Status().Description != "boom" {
		t.Fatalf("status: %+v", ended[0].Status())
	}
}

func TestInitOTelDisabledReturnsNoopShutdown(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown must not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
