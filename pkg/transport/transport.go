// Package transport owns a single WebSocket connection to a Gremlin server and
// multiplexes concurrent requests over it by request id.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aixgo-dev/gremlin/internal/logging"
	"github.com/aixgo-dev/gremlin/pkg/protocol"
)

// Transport events reported to the event hook.
const (
	EventConnect        = "connect"
	EventConnectFailed  = "connect_failed"
	EventDisconnect     = "disconnect"
	EventClose          = "close"
	EventUnknownRequest = "unknown_request"
	EventPing           = "ping"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultPingTimeout      = 5 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	closeGracePeriod        = time.Second
)

type state int

const (
	stateIdle state = iota
	stateConnecting
	stateConnected
	stateDisconnected
	stateClosed
)

type writeRequest struct {
	data     []byte
	deadline time.Time
	result   chan error
}

// Transport is one connection to a server. Requests written through it are sent in
// call order; responses are routed to the Stream of their request id.
type Transport struct {
	url          string
	header       http.Header
	dialer       *websocket.Dialer
	readLimit    int64
	writeTimeout time.Duration
	logger       logrus.FieldLogger
	onEvent      func(event string)

	mu      sync.Mutex
	state   state
	conn    *websocket.Conn
	pending map[string]*Stream
	err     error

	writes   chan writeRequest
	done     chan struct{}
	wg       sync.WaitGroup
	lastPong atomic.Int64
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Transport) { t.logger = l }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(t *Transport) { t.dialer = d }
}

// WithHeader adds HTTP headers to the handshake request.
func WithHeader(h http.Header) Option {
	return func(t *Transport) { t.header = h }
}

// WithHandshakeTimeout bounds the WebSocket handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(t *Transport) { t.dialer.HandshakeTimeout = d }
}

// WithReadLimit caps the size of a single inbound frame.
func WithReadLimit(n int64) Option {
	return func(t *Transport) { t.readLimit = n }
}

// WithWriteTimeout bounds a single frame write when the caller's context has no deadline.
func WithWriteTimeout(d time.Duration) Option {
	return func(t *Transport) { t.writeTimeout = d }
}

// WithEventHook registers a callback for connection lifecycle events.
func WithEventHook(fn func(event string)) Option {
	return func(t *Transport) { t.onEvent = fn }
}

// New creates an unconnected transport for url.
func New(url string, opts ...Option) *Transport {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = defaultHandshakeTimeout
	t := &Transport{
		url:          url,
		dialer:       &dialer,
		writeTimeout: defaultWriteTimeout,
		logger:       logging.Default(),
		onEvent:      func(string) {},
		pending:      make(map[string]*Stream),
		writes:       make(chan writeRequest),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithField("url", url)
	return t
}

// URL returns the server endpoint.
func (t *Transport) URL() string {
	return t.url
}

// Connect dials the server and starts the read and write loops.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case stateClosed:
		t.mu.Unlock()
		return protocol.ErrClientClosed
	case stateConnecting, stateConnected:
		t.mu.Unlock()
		return protocol.ErrAlreadyConnected
	case stateDisconnected:
		t.mu.Unlock()
		return fmt.Errorf("%w: transport cannot be reused", protocol.ErrDisconnect)
	}
	t.state = stateConnecting
	t.mu.Unlock()

	conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		t.mu.Lock()
		if t.state == stateConnecting {
			t.state = stateIdle
		}
		t.mu.Unlock()
		t.onEvent(EventConnectFailed)
		return fmt.Errorf("%w: %s: %w", protocol.ErrCannotConnect, t.url, err)
	}
	if t.readLimit > 0 {
		conn.SetReadLimit(t.readLimit)
	}
	conn.SetPongHandler(func(string) error {
		t.lastPong.Store(time.Now().UnixNano())
		return nil
	})

	t.mu.Lock()
	if t.state == stateClosed {
		t.mu.Unlock()
		_ = conn.Close()
		return protocol.ErrClientClosed
	}
	t.conn = conn
	t.state = stateConnected
	t.mu.Unlock()

	t.wg.Add(2)
	go t.readLoop(conn)
	go t.writeLoop(conn)

	t.onEvent(EventConnect)
	t.logger.Debug("connected")
	return nil
}

// Connected reports whether the transport can accept requests.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == stateConnected
}

// Pending returns the number of requests waiting for their final frame.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Err returns the last internal consistency error seen by the read loop, such as a
// frame for an unknown request id.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// LastPong returns when the server last answered a ping.
func (t *Transport) LastPong() time.Time {
	ns := t.lastPong.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (t *Transport) stateErr() error {
	switch t.state {
	case stateClosed:
		return protocol.ErrClientClosed
	case stateDisconnected:
		return protocol.ErrDisconnect
	case stateConnected:
		return nil
	default:
		return protocol.ErrNotConnected
	}
}

// Submit registers req and writes it. The returned stream yields the response frames.
func (t *Transport) Submit(ctx context.Context, req protocol.Request) (*Stream, error) {
	data, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	if err := t.stateErr(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	if _, exists := t.pending[req.RequestID]; exists {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: request %s is already in flight", protocol.ErrResourceLeak, req.RequestID)
	}
	stream := newStream(req.RequestID, req.Args.Gremlin)
	t.pending[req.RequestID] = stream
	t.mu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.writeTimeout)
	}
	w := writeRequest{data: protocol.Frame(data), deadline: deadline, result: make(chan error, 1)}
	select {
	case t.writes <- w:
	case <-ctx.Done():
		t.forget(req.RequestID)
		return nil, ctx.Err()
	case <-t.done:
		return nil, protocol.ErrClientClosed
	}

	select {
	case err := <-w.result:
		if err != nil {
			t.forget(req.RequestID)
			t.disconnect(err)
			return nil, fmt.Errorf("%w: write request %s: %w", protocol.ErrDisconnect, req.RequestID, err)
		}
	case <-ctx.Done():
		// A frame may be half written, the connection cannot be reused.
		t.forget(req.RequestID)
		t.disconnect(ctx.Err())
		return nil, ctx.Err()
	case <-t.done:
		return nil, protocol.ErrClientClosed
	}

	t.logger.WithField("request_id", req.RequestID).Debug("request written")
	return stream, nil
}

func (t *Transport) forget(requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, requestID)
}

// Ping sends a WebSocket ping frame.
func (t *Transport) Ping(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	err := t.stateErr()
	t.mu.Unlock()
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultPingTimeout)
	}
	t.onEvent(EventPing)
	if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		t.disconnect(err)
		return fmt.Errorf("%w: ping: %w", protocol.ErrDisconnect, err)
	}
	return nil
}

// Close releases the connection. Requests still in flight fail with ErrDisconnect.
// Closing more than once is a no-op.
func (t *Transport) Close() error {
	_, err := t.close()
	return err
}

// CloseStrict closes the transport like Close but reports ErrResourceLeak when
// requests were still in flight.
func (t *Transport) CloseStrict() error {
	abandoned, err := t.close()
	if err != nil {
		return err
	}
	if abandoned > 0 {
		return fmt.Errorf("%w: %d requests abandoned on close", protocol.ErrResourceLeak, abandoned)
	}
	return nil
}

func (t *Transport) close() (int, error) {
	t.mu.Lock()
	if t.state == stateClosed {
		t.mu.Unlock()
		return 0, nil
	}
	t.state = stateClosed
	conn := t.conn
	pending := t.pending
	t.pending = make(map[string]*Stream)
	close(t.done)
	t.mu.Unlock()

	for _, s := range pending {
		s.fail(protocol.ErrDisconnect)
	}

	var err error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("close connection: %w", cerr)
		}
	}
	t.wg.Wait()

	t.onEvent(EventClose)
	t.logger.WithField("abandoned", len(pending)).Debug("closed")
	return len(pending), err
}

// disconnect marks the connection as lost and fails every pending request.
func (t *Transport) disconnect(cause error) {
	t.mu.Lock()
	if t.state != stateConnected {
		t.mu.Unlock()
		return
	}
	t.state = stateDisconnected
	pending := t.pending
	t.pending = make(map[string]*Stream)
	conn := t.conn
	t.mu.Unlock()

	_ = conn.Close()
	for _, s := range pending {
		s.fail(fmt.Errorf("%w: %w", protocol.ErrDisconnect, cause))
	}
	t.onEvent(EventDisconnect)
	t.logger.WithError(cause).Warn("connection lost")
}

func (t *Transport) writeLoop(conn *websocket.Conn) {
	defer t.wg.Done()
	for {
		select {
		case w := <-t.writes:
			if err := conn.SetWriteDeadline(w.deadline); err != nil {
				w.result <- err
				continue
			}
			w.result <- conn.WriteMessage(websocket.BinaryMessage, w.data)
		case <-t.done:
			return
		}
	}
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	defer t.wg.Done()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.disconnect(err)
			return
		}
		resp, err := protocol.DecodeResponse(data)
		if err != nil {
			t.logger.WithError(err).Error("dropping undecodable frame")
			continue
		}
		t.route(resp)
	}
}

func (t *Transport) route(resp protocol.Response) {
	t.mu.Lock()
	stream, ok := t.pending[resp.RequestID]
	if !ok {
		t.err = fmt.Errorf("%w: frame for request %q", protocol.ErrUnknownRequestStopped, resp.RequestID)
		t.mu.Unlock()
		t.onEvent(EventUnknownRequest)
		t.logger.WithField("request_id", resp.RequestID).Warn("dropping frame for unknown request")
		return
	}
	if resp.Status.IsTerminal() {
		delete(t.pending, resp.RequestID)
	}
	t.mu.Unlock()

	stream.push(resp)
}
