package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	neturl "net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "instrumented_http_client"

	defaultRequestTimeout  = 10 * time.Second
	defaultDialKeepAlive   = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute

	metricRequestCounter  = "http_client_requests_total"
	metricRequestDuration = "http_client_request_duration_seconds"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsError reports a 4xx or 5xx status.
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// Client issues GET requests against one JSON API.
type Client struct {
	http           *http.Client
	baseURL        string
	headers        http.Header
	provider       string
	tracer         trace.Tracer
	responseEvents bool

	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

// New creates a client.
func New(opts ...ClientOption) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.providerName == "" {
		o.providerName = "default"
	}
	if o.timeout <= 0 {
		o.timeout = defaultRequestTimeout
	}
	if o.transport == nil {
		o.transport = &http.Transport{
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(instrumentationName)
	}

	meter := o.meterProvider.Meter(instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", o.providerName)))

	requests, err := meter.Int64Counter(metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(metricRequestDuration,
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	transport := otelhttp.NewTransport(o.transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}))

	return &Client{
		http:           &http.Client{Timeout: o.timeout, Transport: transport},
		baseURL:        strings.TrimSuffix(o.baseURL, "/"),
		headers:        o.headers,
		provider:       o.providerName,
		tracer:         o.tracer,
		responseEvents: o.responseEvents,
		requests:       requests,
		latency:        latency,
	}, nil
}

// Get fetches path and decodes a successful JSON body into result when it is
// not nil. The response is returned along with any handler or decode error.
func (c *Client) Get(ctx context.Context, path string, result any, opts ...RequestOption) (*Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	ctx, span := c.tracer.Start(ctx, "http.get",
		trace.WithAttributes(
			attribute.String("http.url", path),
			attribute.String("provider", c.provider),
		),
		trace.WithAttributes(ro.labels...),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path, ro.query), nil)
	if err != nil {
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.fail(ctx, span, ro.labels, start, err)
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		c.fail(ctx, span, ro.labels, start, err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if c.responseEvents {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(body))))
	}

	if ro.onError != nil {
		if err := ro.onError(resp.StatusCode, body); err != nil {
			c.fail(ctx, span, ro.labels, start, err)
			return out, err
		}
	}

	// error bodies have a different shape
	if result != nil && len(body) > 0 && !out.IsError() {
		if err := json.Unmarshal(body, result); err != nil {
			c.fail(ctx, span, ro.labels, start, err)
			return out, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	c.record(ctx, ro.labels, start, !out.IsError())
	return out, nil
}

func (c *Client) url(path string, query map[string]string) string {
	full := path
	if c.baseURL != "" && !strings.HasPrefix(path, "http") {
		full = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}
	if len(query) == 0 {
		return full
	}
	values := make(neturl.Values, len(query))
	for k, v := range query {
		values.Set(k, v)
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + values.Encode()
}

func (c *Client) fail(ctx context.Context, span trace.Span, labels []attribute.KeyValue, start time.Time, err error) {
	span.RecordError(err)
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}
	span.SetStatus(codes.Error, err.Error())
	c.record(ctx, labels, start, false)
}

func (c *Client) record(ctx context.Context, labels []attribute.KeyValue, start time.Time, success bool) {
	attrs := append([]attribute.KeyValue{
		attribute.String("provider", c.provider),
		attribute.Bool("success", success),
	}, labels...)
	c.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	c.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
}
