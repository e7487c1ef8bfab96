package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/rlagosf/rafc-go-backend/internal/config"
)

func TestRuntimeShutdownNilAndEmpty(t *testing.T) {
	var r *Runtime
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil runtime shutdown: %v", err)
	}

	r = &Runtime{}
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("empty runtime shutdown: %v", err)
	}
}

func TestInitRuntimeAllDisabled(t *testing.T) {
	cfg := &config.Config{
		OTELMetricsEnabled: false,
		OTELTracingEnabled: false,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r, err := InitRuntime(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("init runtime disabled: %v", err)
	}
	if r == nil || r.MeterProvider == nil || r.TracerProvider == nil {
		t.Fatalf("expected runtime providers, got %+v", r)
	}
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("runtime shutdown: %v", err)
	}
}

func TestInitTracingDisabledBranch(t *testing.T) {
	cfg := &config.Config{OTELTracingEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tp, err := InitTracing(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("init tracing disabled: %v", err)
	}
	if tp == nil {
		t.Fatal("expected tracer provider")
	}
	_ = tp.Shutdown(context.Background())
}

func TestClampRatio(t *testing.T) {
	if clampRatio(-1) != 0 {
		t.Fatal("expected lower clamp to 0")
	}
	if clampRatio(2) != 1 {
		t.Fatal("expected upper clamp to 1")
	}
	if clampRatio(0.5) != 0.5 {
		t.Fatal("expected in-range value unchanged")
	}
}

func TestRecordersTolerateNoopMeter(t *testing.T) {
	ctx := context.Background()
	RecordSigningEvent(ctx, "issue", "success")
	RecordRepositoryOperation(ctx, "signing_token", "create", "success")
	RecordRateLimitDrop(ctx, "public")
}
