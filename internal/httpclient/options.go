// Package httpclient provides an instrumented HTTP client for market data
// endpoints with OTEL tracing and metrics.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type clientOptions struct {
	providerName   string
	baseURL        string
	timeout        time.Duration
	headers        http.Header
	transport      http.RoundTripper
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	responseEvents bool
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithProviderName sets the provider name recorded on metrics and spans.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) {
		o.providerName = name
	}
}

// WithBaseURL sets the URL relative paths are resolved against.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithRequestTimeout bounds every request.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(o *clientOptions) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Set(key, value)
	}
}

// WithTransport replaces the pooled default transport. It is still wrapped
// with otelhttp.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.transport = rt
	}
}

// WithMeterProvider sets the meter provider, the global one by default.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *clientOptions) {
		o.meterProvider = mp
	}
}

// WithTracer sets the tracer request spans are started on.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
	}
}

// WithResponseEvents records response bodies as span events.
func WithResponseEvents() ClientOption {
	return func(o *clientOptions) {
		o.responseEvents = true
	}
}

// ErrorHandler maps a response to an error. It is called for every response,
// nil means the response is a success.
type ErrorHandler func(statusCode int, body []byte) error

type requestOptions struct {
	query   map[string]string
	labels  []attribute.KeyValue
	onError ErrorHandler
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// Query sets a query parameter.
func Query(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = make(map[string]string)
		}
		o.query[key] = value
	}
}

// Label adds a metric and span attribute.
func Label(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.labels = append(o.labels, attribute.String(key, value))
	}
}

// OnError sets the response error handler.
func OnError(h ErrorHandler) RequestOption {
	return func(o *requestOptions) {
		o.onError = h
	}
}
