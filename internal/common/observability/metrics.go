package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability records CRM call metrics through an OpenTelemetry meter exported to Prometheus.
// A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	tracer        trace.Tracer
	crmRequests   otelmetric.Int64Counter
	crmDuration   otelmetric.Float64Histogram
	tokenRefresh  otelmetric.Int64Counter
	upserts       otelmetric.Int64Counter
}

// New wires the meter to reg, or to the default Prometheus registerer when reg is nil.
func New(serviceName string, reg promclient.Registerer) (*Observability, error) {
	opts := []prometheus.Option{}
	if reg != nil {
		opts = append(opts, prometheus.WithRegisterer(reg))
	}
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	crmRequests, err := meter.Int64Counter(
		"crm.requests",
		otelmetric.WithDescription("Number of CRM API calls by operation and status"),
	)
	if err != nil {
		return nil, err
	}

	crmDuration, err := meter.Float64Histogram(
		"crm.request.duration",
		otelmetric.WithDescription("CRM API call duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tokenRefresh, err := meter.Int64Counter(
		"crm.token.refreshes",
		otelmetric.WithDescription("Number of OAuth access token exchanges"),
	)
	if err != nil {
		return nil, err
	}

	upserts, err := meter.Int64Counter(
		"crm.upserts",
		otelmetric.WithDescription("Number of CRM records created or updated"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		tracer:        otel.Tracer(serviceName),
		crmRequests:   crmRequests,
		crmDuration:   crmDuration,
		tokenRefresh:  tokenRefresh,
		upserts:       upserts,
	}, nil
}

func (o *Observability) RecordCRMRequest(ctx context.Context, operation string, status int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("status", status),
	)
	o.crmRequests.Add(ctx, 1, attrs)
	o.crmDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordTokenRefresh counts token exchanges; outcome is "success" or "failure".
func (o *Observability) RecordTokenRefresh(ctx context.Context, outcome string) {
	if o == nil {
		return
	}
	o.tokenRefresh.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordUpsert counts entity writes; action is "created" or "updated".
func (o *Observability) RecordUpsert(ctx context.Context, entity, action string) {
	if o == nil {
		return
	}
	o.upserts.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("action", action),
	))
}

// StartSpan starts an internal span for a service operation.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("crm-gateway").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
