package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "rafc-go-backend"

var (
	metricsOnce    sync.Once
	signingEvents  metric.Int64Counter
	repositoryOps  metric.Int64Counter
	rateLimitDrops metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(meterName)
		signingEvents, _ = meter.Int64Counter("signing_events_total",
			metric.WithDescription("Signing token operations by outcome"))
		repositoryOps, _ = meter.Int64Counter("repository_operations_total",
			metric.WithDescription("Repository operations by entity and outcome"))
		rateLimitDrops, _ = meter.Int64Counter("rate_limited_requests_total",
			metric.WithDescription("Requests rejected by the rate limiter"))
	})
}

// RecordSigningEvent counts an issue/validate/consume outcome.
func RecordSigningEvent(ctx context.Context, operation, outcome string) {
	initMetrics()
	if signingEvents == nil {
		return
	}
	signingEvents.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
}

// RecordRepositoryOperation counts a datastore access by entity and outcome.
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	initMetrics()
	if repositoryOps == nil {
		return
	}
	repositoryOps.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		))
}

// RecordRateLimitDrop counts a request rejected by the rate limiter.
func RecordRateLimitDrop(ctx context.Context, scope string) {
	initMetrics()
	if rateLimitDrops == nil {
		return
	}
	rateLimitDrops.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}
