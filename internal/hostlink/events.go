package hostlink

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// EventHandler receives decoded events on the reader goroutine.
type EventHandler func(Event)

// StateHandler observes connection state changes.
type StateHandler func(State)

// Events is the host's event stream: a websocket that reconnects with
// backoff and is kept alive by pings.
type Events struct {
	url   string
	token string

	mu    sync.Mutex
	conn  *websocket.Conn
	state State

	handler EventHandler
	onState []StateHandler

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func NewEvents(url, token string, maxReconnectAttempts int, handler EventHandler) *Events {
	ctx, cancel := context.WithCancel(context.Background())
	return &Events{
		url:                  url,
		token:                token,
		state:                StateDisconnected,
		handler:              handler,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
		rootCtx:              ctx,
		rootCancel:           cancel,
	}
}

// OnStateChange registers h. Call before Connect.
func (e *Events) OnStateChange(h StateHandler) { e.onState = append(e.onState, h) }

func (e *Events) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Connect dials the stream. On failure it schedules reconnects and returns
// the first error.
func (e *Events) Connect(ctx context.Context) error {
	switch e.State() {
	case StateConnected, StateConnecting, StateReconnecting:
		return nil
	}
	e.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, err := e.dial(dialCtx)
	if err != nil {
		e.setState(StateFailed)
		e.scheduleReconnect()
		return err
	}
	e.attach(conn)
	return nil
}

func (e *Events) dial(ctx context.Context) (*websocket.Conn, error) {
	hdr := http.Header{}
	if e.token != "" {
		hdr.Set("Authorization", "Bearer "+e.token)
	}
	conn, _, err := websocket.Dial(ctx, e.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      hdr,
	})
	return conn, err
}

func (e *Events) attach(conn *websocket.Conn) {
	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()
	e.setState(StateConnected)
	obslog.L().Info("host_events_connected", zap.String("url", e.url))

	e.wg.Add(2)
	go e.listen(conn)
	go e.pingLoop(conn)
}

func (e *Events) listen(conn *websocket.Conn) {
	defer e.wg.Done()
	for {
		var ev Event
		if err := wsjson.Read(e.rootCtx, conn, &ev); err != nil {
			if e.isStopping() {
				return
			}
			obslog.L().Warn("host_events_read_error", zap.Error(err))
			e.drop(conn, "reconnect")
			return
		}
		if e.handler != nil {
			e.handler(ev)
		}
	}
}

func (e *Events) pingLoop(conn *websocket.Conn) {
	defer e.wg.Done()
	t := time.NewTicker(e.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-e.stopCh:
			return
		case <-t.C:
			if !e.current(conn) {
				return
			}
			ctx, cancel := context.WithTimeout(e.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if e.isStopping() {
					return
				}
				e.drop(conn, "ping failure")
				return
			}
		}
	}
}

func (e *Events) current(conn *websocket.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn == conn
}

// drop closes conn if it is still the live connection and starts
// reconnecting. Reader and pinger may both call it.
func (e *Events) drop(conn *websocket.Conn, reason string) {
	e.mu.Lock()
	if e.conn != conn {
		e.mu.Unlock()
		return
	}
	e.conn = nil
	e.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	e.setState(StateDisconnected)
	e.scheduleReconnect()
}

func (e *Events) scheduleReconnect() {
	if e.maxReconnectAttempts <= 0 || e.isStopping() {
		return
	}
	e.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= e.maxReconnectAttempts; attempt++ {
			select {
			case <-e.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}
			dialCtx, cancel := context.WithTimeout(e.rootCtx, 10*time.Second)
			conn, err := e.dial(dialCtx)
			cancel()
			if err != nil {
				obslog.L().Debug("host_events_redial_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			e.attach(conn)
			return
		}
		e.setState(StateFailed)
	}()
}

func (e *Events) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	for _, h := range e.onState {
		h(s)
	}
}

func (e *Events) Close(ctx context.Context) error {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	e.rootCancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		e.setState(StateDisconnected)
		return nil
	}
}

func (e *Events) isStopping() bool {
	select {
	case <-e.stopCh:
		return true
	default:
		return false
	}
}
