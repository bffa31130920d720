// Package apm wires OpenTelemetry tracing.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "empty"
)

// ParseProvider maps a configuration value to a Provider, falling back to EmptyProvider.
func ParseProvider(s string) Provider {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ZipkinProvider, OTLPGRPCProvider, OTLPHTTPProvider, ConsoleProvider:
		return p
	default:
		return EmptyProvider
	}
}

type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyTraceProvider struct{}

func (emptyTraceProvider) Stop() error { return nil }

// NewEmptyTraceProvider returns a provider that records nothing.
func NewEmptyTraceProvider() TraceProvider {
	return emptyTraceProvider{}
}

type TracerOptions struct {
	provider    Provider
	endpoint    string
	headers     map[string]string
	serviceName string
}

type TracerOption func(*TracerOptions)

func WithProvider(provider Provider) TracerOption {
	return func(o *TracerOptions) {
		o.provider = provider
	}
}

func WithEndpoint(endpoint string) TracerOption {
	return func(o *TracerOptions) {
		o.endpoint = endpoint
	}
}

// WithHeaders parses "k1=v1,k2=v2" exporter headers.
func WithHeaders(raw string) TracerOption {
	return func(o *TracerOptions) {
		for _, kv := range strings.Split(raw, ",") {
			k, v, ok := strings.Cut(strings.TrimSpace(kv), "=")
			if !ok || k == "" {
				continue
			}
			if o.headers == nil {
				o.headers = make(map[string]string)
			}
			o.headers[k] = v
		}
	}
}

func WithServiceName(name string) TracerOption {
	return func(o *TracerOptions) {
		o.serviceName = name
	}
}

func newExporter(ctx context.Context, opts *TracerOptions) (sdktrace.SpanExporter, error) {
	switch opts.provider {
	case ZipkinProvider:
		return zipkin.New(opts.endpoint)
	case OTLPGRPCProvider:
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithHeaders(opts.headers)}
		if opts.endpoint != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpointURL(opts.endpoint))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case OTLPHTTPProvider:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithHeaders(opts.headers)}
		if opts.endpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpointURL(opts.endpoint))
		}
		return otlptracehttp.New(ctx, httpOpts...)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown trace provider %q", opts.provider)
	}
}

// NewTraceProvider installs a global tracer provider. EmptyProvider installs nothing.
func NewTraceProvider(log logger.LoggerInterface, options ...TracerOption) (TraceProvider, error) {
	opts := &TracerOptions{provider: EmptyProvider}
	for _, opt := range options {
		opt(opts)
	}

	if opts.provider == EmptyProvider {
		log.Warn(context.Background(), "tracing disabled, using empty provider")
		return NewEmptyTraceProvider(), nil
	}

	exp, err := newExporter(context.Background(), opts)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", opts.provider, err)
	}

	rsrc, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", string(opts.provider)),
		))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	// Set global trace provider
	otel.SetTracerProvider(tp)

	// Set trace propagator
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(context.Background(), "tracing initialized", "provider", opts.provider, "endpoint", opts.endpoint)

	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
