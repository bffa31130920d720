package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer echoes every frame. When dropFirst is set the first connection
// is closed right after the handshake.
func echoServer(t *testing.T, dropFirst bool) (string, *atomic.Int32) {
	t.Helper()
	var accepted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		if n := accepted.Add(1); dropFirst && n == 1 {
			_ = conn.Close(websocket.StatusGoingAway, "restart")
			return
		}
		for {
			typ, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}
			if err := conn.Write(r.Context(), typ, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), &accepted
}

func newTestClient(t *testing.T, url string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.InitialBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestClient_ConnectAndEcho(t *testing.T) {
	url, _ := echoServer(t, false)
	c := newTestClient(t, url, nil)

	var (
		mu       sync.Mutex
		states   []State
		received = make(chan []byte, 4)
	)
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	c.OnMessage(func(_ context.Context, msg []byte) {
		received <- msg
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())

	require.NoError(t, c.SendJSON(ctx, map[string]any{"method": "SUBSCRIBE", "id": 1}))
	select {
	case msg := <-received:
		var got map[string]any
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, "SUBSCRIBE", got["method"])
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}

	mu.Lock()
	assert.Equal(t, []State{StateConnecting, StateConnected}, states)
	mu.Unlock()
}

func TestClient_ConnectFailure(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
	assert.Equal(t, StateDisconnected, c.State())
	assert.ErrorIs(t, c.Send(ctx, []byte("x")), ErrNotConnected)
}

func TestClient_ConnectWithRetryGivesUp(t *testing.T) {
	c := newTestClient(t, "ws://127.0.0.1:1", func(cfg *Config) {
		cfg.MaxReconnects = 2
	})

	err := c.ConnectWithRetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	url, accepted := echoServer(t, true)
	c := newTestClient(t, url, nil)

	var reconnecting atomic.Bool
	c.OnStateChange(func(s State, _ error) {
		if s == StateReconnecting {
			reconnecting.Store(true)
		}
	})

	require.NoError(t, c.Connect(context.Background()))

	require.Eventually(t, func() bool {
		return accepted.Load() >= 2 && c.IsConnected()
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, reconnecting.Load())
}

func TestClient_Close(t *testing.T) {
	url, _ := echoServer(t, false)
	c := newTestClient(t, url, nil)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())

	// idempotent, and the state stays closed
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(ctx, []byte("x")), ErrClosed)
	assert.ErrorIs(t, c.Connect(ctx), ErrClosed)
	assert.Equal(t, StateClosed, c.State())
}

func TestClient_ConcurrentSend(t *testing.T) {
	url, _ := echoServer(t, false)
	c := newTestClient(t, url, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.SendJSON(ctx, map[string]int{"id": i})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestClient_OversizedFrameDropsConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		_ = conn.Write(r.Context(), websocket.MessageText, []byte(strings.Repeat("x", 1024)))
		_, _, _ = conn.Read(r.Context())
	}))
	defer srv.Close()

	c := newTestClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), func(cfg *Config) {
		cfg.MaxMessageSize = 64
		cfg.InitialBackoff = time.Minute
		cfg.MaxBackoff = time.Minute
	})

	var got atomic.Int32
	c.OnMessage(func(context.Context, []byte) { got.Add(1) })

	require.NoError(t, c.Connect(context.Background()))
	require.Eventually(t, func() bool {
		return !c.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, got.Load())
}
