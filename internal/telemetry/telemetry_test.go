package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), "ssfinder-test", "  ")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("provider must not change without an endpoint")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown, err := Setup(context.Background(), "ssfinder-test", "http://127.0.0.1:4318")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if otel.GetTracerProvider() == before {
		t.Fatal("expected sdk provider to be installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
