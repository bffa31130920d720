package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestGet_QueryHeadersAndResult(t *testing.T) {
	var gotQuery, gotAccept, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("symbols")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client, err := New(
		WithBaseURL(server.URL+"/"),
		WithProviderName("test"),
		WithHeader("Accept", "application/json"),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	resp, err := client.Get(context.Background(), "/api/v3/exchangeInfo", &result,
		Query("symbols", `["BTCUSDT","ETHBTC"]`))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if resp.IsError() || !result.OK {
		t.Errorf("unexpected response: status=%d result=%+v", resp.StatusCode, result)
	}
	if gotPath != "/api/v3/exchangeInfo" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != `["BTCUSDT","ETHBTC"]` {
		t.Errorf("query not encoded correctly, server saw %q", gotQuery)
	}
	if gotAccept != "application/json" {
		t.Errorf("default header missing, server saw %q", gotAccept)
	}
}

func TestGet_ErrorHandler(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	errBadSymbol := errors.New("bad symbol")
	var result map[string]any
	resp, err := client.Get(context.Background(), "/depth", &result,
		OnError(func(status int, body []byte) error {
			if status >= 400 {
				return errBadSymbol
			}
			return nil
		}))

	if !errors.Is(err, errBadSymbol) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if resp == nil || !resp.IsError() {
		t.Fatal("expected error response to be returned")
	}
	if result != nil {
		t.Error("error body must not be decoded into the result")
	}
}

func TestGet_DecodeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := New(WithBaseURL(server.URL))
	if err != nil {
		t.Fatal(err)
	}

	var result map[string]any
	if _, err := client.Get(context.Background(), "/x", &result); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGet_RecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	reader := sdkmetric.NewManualReader()
	client, err := New(
		WithBaseURL(server.URL),
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
	)
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := client.Get(context.Background(), "/x", nil, Label("endpoint", "x")); err != nil {
			t.Fatal(err)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricRequestCounter {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Errorf("requests counted = %d, want 2", total)
	}
}
