package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	config "github.com/tigerroll/chunkbatch/pkg/batch/core/config"
	metrics "github.com/tigerroll/chunkbatch/pkg/batch/core/metrics"
	exception "github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// Telemetry is the recorder and tracer an application hands to its jobs,
// together with the providers that must be flushed on shutdown.
type Telemetry struct {
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	Prometheus *PrometheusRecorder

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewTelemetry builds the recorder and tracer selected by cfg. With every
// exporter disabled it returns no-op implementations.
func NewTelemetry(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	t := &Telemetry{
		Recorder: metrics.NewNoOpMetricRecorder(),
		Tracer:   metrics.NewNoOpTracer(),
	}
	res := resource.NewSchemaless(attribute.String("service.name", cfg.Surfin.Tracing.ServiceName))

	var recorders []metrics.MetricRecorder
	if cfg.Surfin.Metrics.Prometheus.Enabled {
		t.Prometheus = NewPrometheusRecorder()
		recorders = append(recorders, t.Prometheus)
	}

	meterProvider, err := newMeterProvider(ctx, cfg.Surfin.Metrics.OTLP, res)
	if err != nil {
		return nil, err
	}
	if meterProvider != nil {
		t.meterProvider = meterProvider
		otelRecorder, err := NewOtelMetricRecorder(meterProvider)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, otelRecorder)
	}
	switch len(recorders) {
	case 0:
	case 1:
		t.Recorder = recorders[0]
	default:
		t.Recorder = NewCompositeRecorder(recorders...)
	}

	tracerProvider, err := newTracerProvider(ctx, cfg.Surfin.Tracing, res)
	if err != nil {
		return nil, err
	}
	if tracerProvider != nil {
		t.tracerProvider = tracerProvider
		t.Tracer = NewOpenTelemetryTracer(tracerProvider)
	}
	return t, nil
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	if t.tracerProvider != nil {
		result = multierror.Append(result, t.tracerProvider.Shutdown(ctx))
	}
	if t.meterProvider != nil {
		result = multierror.Append(result, t.meterProvider.Shutdown(ctx))
	}
	return result.ErrorOrNil()
}

// MetricsServer returns an HTTP server exposing the Prometheus registry on
// /metrics, or nil when Prometheus is disabled.
func (t *Telemetry) MetricsServer(addr string) *http.Server {
	if t.Prometheus == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.Prometheus.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func newTracerProvider(ctx context.Context, cfg config.TracingConfig, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "", "none":
		return nil, nil
	case "stdout-log":
		exporter = NewLogSpanExporter()
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, exception.NewConfigurationError("telemetry", fmt.Sprintf("unknown tracing exporter '%s'", cfg.Exporter))
	}
	if err != nil {
		return nil, exception.NewBatchError("telemetry", exception.KindConfiguration, "failed to create span exporter", err)
	}
	logger.Infof("Tracing: exporting spans via %s.", cfg.Exporter)
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter), sdktrace.WithResource(res)), nil
}

func newMeterProvider(ctx context.Context, cfg config.OTLPConfig, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	var exporter sdkmetric.Exporter
	var err error
	switch cfg.Exporter {
	case "", "none":
		return nil, nil
	case "grpc":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
	case "http":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, exception.NewConfigurationError("telemetry", fmt.Sprintf("unknown metrics exporter '%s'", cfg.Exporter))
	}
	if err != nil {
		return nil, exception.NewBatchError("telemetry", exception.KindConfiguration, "failed to create metric exporter", err)
	}
	logger.Infof("Metrics: exporting OTLP metrics via %s.", cfg.Exporter)
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}

// LogSpanExporter writes finished spans to the application log.
type LogSpanExporter struct{}

// NewLogSpanExporter creates a LogSpanExporter.
func NewLogSpanExporter() *LogSpanExporter {
	return &LogSpanExporter{}
}

// ExportSpans logs one line per span.
func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		logger.Infof("Span: %s trace=%s span=%s duration=%s status=%s",
			s.Name(), s.SpanContext().TraceID(), s.SpanContext().SpanID(), s.EndTime().Sub(s.StartTime()), s.Status().Code)
	}
	return nil
}

// Shutdown does nothing.
func (e *LogSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

var _ sdktrace.SpanExporter = (*LogSpanExporter)(nil)
