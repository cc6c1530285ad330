package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var errClosed = errors.New("closed")

type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-c.closed:
		return nil, errClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	dials atomic.Int32
	fail  atomic.Bool
	conns chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.dials.Add(1)
	if d.fail.Load() {
		return nil, errors.New("connection refused")
	}
	select {
	case c := <-d.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerSkipsBadFramesWithoutDisconnecting(t *testing.T) {
	d := newFakeDialer()
	conn := newFakeConn()
	d.conns <- conn

	var mu sync.Mutex
	var got []string
	handler := func(frame []byte) error {
		if string(frame) == "bad" {
			return errors.New("malformed")
		}
		mu.Lock()
		got = append(got, string(frame))
		mu.Unlock()
		return nil
	}
	m := NewManager("ws://test", d, handler, 10*time.Millisecond, discard())
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, "connected", func() bool { return m.State() == Connected })
	conn.frames <- []byte("one")
	conn.frames <- []byte("bad")
	conn.frames <- []byte("two")
	waitFor(t, "frames", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})
	if m.State() != Connected {
		t.Fatalf("state after bad frame = %s, want connected", m.State())
	}
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("frames got %v", got)
	}
}

func TestManagerReconnectsAfterDrop(t *testing.T) {
	d := newFakeDialer()
	first, second := newFakeConn(), newFakeConn()
	d.conns <- first
	d.conns <- second

	var states []State
	var mu sync.Mutex
	m := NewManager("ws://test", d, func([]byte) error { return nil }, 10*time.Millisecond, discard())
	m.OnState(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	m.Start(context.Background())
	defer m.Stop()

	waitFor(t, "first connection", func() bool { return m.State() == Connected })
	close(first.frames)
	waitFor(t, "second dial", func() bool { return d.dials.Load() == 2 })
	waitFor(t, "reconnected", func() bool { return m.State() == Connected })

	mu.Lock()
	defer mu.Unlock()
	sawDisconnect := false
	for _, s := range states {
		if s == Disconnected {
			sawDisconnect = true
		}
	}
	if !sawDisconnect {
		t.Fatalf("states %v should include disconnected", states)
	}
}

func TestManagerStopCancelsPendingRetry(t *testing.T) {
	d := newFakeDialer()
	d.fail.Store(true)
	m := NewManager("ws://test", d, func([]byte) error { return nil }, 50*time.Millisecond, discard())
	m.Start(context.Background())

	waitFor(t, "disconnected", func() bool { return m.State() == Disconnected })
	m.Stop()
	dials := d.dials.Load()
	time.Sleep(150 * time.Millisecond)
	if got := d.dials.Load(); got != dials {
		t.Fatalf("dials after stop = %d, want %d", got, dials)
	}
}

func TestManagerStopClosesOpenConnection(t *testing.T) {
	d := newFakeDialer()
	conn := newFakeConn()
	d.conns <- conn
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager("ws://test", d, func([]byte) error { return nil }, 10*time.Millisecond, discard())
	m.Start(ctx)
	waitFor(t, "connected", func() bool { return m.State() == Connected })

	cancel()
	waitFor(t, "disconnected", func() bool { return m.State() == Disconnected })
	select {
	case <-conn.closed:
	default:
		t.Fatal("connection left open after cancel")
	}
	time.Sleep(40 * time.Millisecond)
	if got := d.dials.Load(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}
}

func TestBuildURL(t *testing.T) {
	cases := []struct {
		base, token, want string
	}{
		{"ws://localhost:9002", "", "ws://localhost:9002"},
		{"ws://localhost:9002", "s3cr3t", "ws://localhost:9002?token=s3cr3t"},
		{"ws://localhost:9002/live?room=a", "s3cr3t", "ws://localhost:9002/live?room=a&token=s3cr3t"},
	}
	for _, tc := range cases {
		if got := BuildURL(tc.base, tc.token); got != tc.want {
			t.Fatalf("BuildURL(%q, %q) got %q want %q", tc.base, tc.token, got, tc.want)
		}
	}
}

func TestWebsocketDialerReadsTextFrames(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"cpu":12}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	wsURL := BuildURL("ws"+strings.TrimPrefix(srv.URL, "http"), "abc")
	received := make(chan string, 1)
	m := NewManager(wsURL, NewWebsocketDialer(), func(frame []byte) error {
		received <- string(frame)
		return nil
	}, 10*time.Millisecond, discard())
	m.Start(context.Background())
	defer m.Stop()

	select {
	case got := <-received:
		if got != `{"cpu":12}` {
			t.Fatalf("frame got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}

type refusingDialer struct {
	mu    sync.Mutex
	times []time.Time
}

func (d *refusingDialer) Dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	d.times = append(d.times, time.Now())
	d.mu.Unlock()
	return nil, errors.New("connection refused")
}

func (d *refusingDialer) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.times...)
}

func TestManagerRetriesAtFixedInterval(t *testing.T) {
	const retry = 60 * time.Millisecond
	d := &refusingDialer{}
	m := NewManager("ws://example", d, func([]byte) error { return nil }, retry, discard())

	var mu sync.Mutex
	var states []State
	m.OnState(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	waitFor(t, "five dials", func() bool { return len(d.dialTimes()) >= 5 })
	m.Stop()

	times := d.dialTimes()
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1])
		// A growing backoff would reach 8x the delay by the fourth gap.
		if gap < retry*9/10 || gap > retry*4 {
			t.Fatalf("gap %d = %v, want about %v", i, gap, retry)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 8 {
		t.Fatalf("states got %v", states)
	}
	for i, s := range states {
		want := Disconnected
		if i%2 == 1 {
			want = Connecting
		}
		if s != want {
			t.Fatalf("state %d got %s want %s (all %v)", i, s, want, states)
		}
	}
}
