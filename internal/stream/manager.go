// Package stream keeps a single client connection to the telemetry source
// open, retrying at a fixed interval whenever it drops.
package stream

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

type State string

const (
	Connecting   State = "connecting"
	Connected    State = "connected"
	Disconnected State = "disconnected"
)

const DefaultRetryDelay = 4 * time.Second

// Conn is an open message stream.
type Conn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler receives every inbound frame. A returned error is logged and the
// frame dropped; it never affects the connection.
type Handler func(frame []byte) error

type Manager struct {
	url     string
	dialer  Dialer
	handler Handler
	retry   time.Duration
	log     *slog.Logger

	mu      sync.Mutex
	state   State
	ctx     context.Context
	cancel  context.CancelFunc
	conn    Conn
	timer   *time.Timer
	active  bool
	stopped bool
	onState []func(State)
}

func NewManager(rawURL string, dialer Dialer, handler Handler, retry time.Duration, logger *slog.Logger) *Manager {
	if retry <= 0 {
		retry = DefaultRetryDelay
	}
	return &Manager{
		url:     rawURL,
		dialer:  dialer,
		handler: handler,
		retry:   retry,
		log:     logger,
		state:   Connecting,
	}
}

// OnState registers fn to be called after every state change. Register
// before Start.
func (m *Manager) OnState(fn func(State)) {
	m.mu.Lock()
	m.onState = append(m.onState, fn)
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start opens the first connection in the background. Stop or cancelling
// ctx tears it down for good.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.ctx != nil || m.stopped {
		m.mu.Unlock()
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go func() {
		<-m.ctx.Done()
		m.Stop()
	}()
	go m.connect()
}

// Stop cancels any pending retry, closes the open connection and prevents
// further reconnects.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (m *Manager) connect() {
	m.mu.Lock()
	if m.stopped || m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	m.timer = nil
	ctx := m.ctx
	m.mu.Unlock()

	m.setState(Connecting)
	conn, err := m.dialer.Dial(ctx, m.url)
	if err != nil {
		m.log.Warn("stream connect failed", "err", err, "retry_in", m.retry)
		m.dropped()
		return
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = conn.Close()
		m.dropped()
		return
	}
	m.conn = conn
	m.mu.Unlock()

	m.setState(Connected)
	m.log.Info("stream connected")
	m.readLoop(conn)
}

func (m *Manager) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			stopped := m.stopped
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			_ = conn.Close()
			if !stopped {
				m.log.Warn("stream closed", "err", err, "retry_in", m.retry)
			}
			m.dropped()
			return
		}
		if err := m.handler(frame); err != nil {
			m.log.Warn("failed to parse metric payload", "err", err)
		}
	}
}

// dropped records the disconnect and schedules exactly one retry.
func (m *Manager) dropped() {
	m.mu.Lock()
	m.active = false
	if !m.stopped && m.timer == nil {
		m.timer = time.AfterFunc(m.retry, m.connect)
	}
	m.mu.Unlock()
	m.setState(Disconnected)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	listeners := append([]func(State){}, m.onState...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// BuildURL adds the access token as a query parameter. An unparsable base is
// extended textually.
func BuildURL(base, token string) string {
	if token == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + "token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
