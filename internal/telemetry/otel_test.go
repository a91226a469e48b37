package telemetry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
	}{
		{"valid configuration", "smart-bookmarks-api", "localhost:4318"},
		{"empty service name", "", "localhost:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, "test", tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantLog string
	}{
		{"disabled", Options{Enabled: false, Endpoint: "localhost:4318"}, ""},
		{"enabled without endpoint", Options{Enabled: true}, "otel_enabled_but_endpoint_not_configured"},
		{"enabled", Options{Enabled: true, ServiceName: "smart-bookmarks-worker", Endpoint: "localhost:4318"}, "otel_tracer_initialized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			shutdown := Setup(context.Background(), tt.opts, zap.New(core))
			if shutdown == nil {
				t.Fatal("Expected a shutdown func")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				t.Errorf("shutdown() error = %v", err)
			}

			if tt.wantLog == "" {
				if logs.Len() != 0 {
					t.Errorf("Expected no logs, got %d", logs.Len())
				}
				return
			}
			if logs.FilterMessage(tt.wantLog).Len() != 1 {
				t.Errorf("Expected log %q", tt.wantLog)
			}
		})
	}
}
