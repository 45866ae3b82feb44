// Package gateway implements the RPC client for a remote Gateway process: a
// persistent, authenticated, multiplexed request/response protocol over a
// single WebSocket connection.
//
// One Client holds at most one connection. Call opens (or reuses) an
// authenticated connection, issues a request frame with a fresh correlation
// id, and blocks the calling goroutine until its own response, deadline, or
// connection loss — never other callers. Reconnection after a
// restart-triggering operation is always caller-driven: Disconnect, then
// WaitReady or a fresh Call.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"

	"gatewayctl/internal/domain"
	"gatewayctl/internal/infra/tracer"
)

// Fixed protocol deadlines, overridable per client via options.
const (
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultCallTimeout      = 15 * time.Second

	DefaultMinProtocol = 1
	DefaultMaxProtocol = 1
)

// Client is the public surface of the gateway RPC client.
// It is safe for concurrent use: many logical callers share one connection,
// demultiplexed purely by correlation id.
type Client struct {
	target   domain.Target
	identity domain.Identity

	logger           *slog.Logger
	limiter          *rate.Limiter
	dialOpts         *websocket.DialOptions
	handshakeTimeout time.Duration
	callTimeout      time.Duration
	minProtocol      int
	maxProtocol      int
	policy           ReconnectPolicy

	mu      sync.Mutex
	conn    *conn
	opening *openAttempt
}

// openAttempt is a single in-flight dial+handshake shared by all concurrent
// openers: exactly one handshake per connection.
type openAttempt struct {
	done chan struct{}
	conn *conn
	err  error
}

// Option configures the client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHandshakeTimeout overrides the challenge-response handshake deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithCallTimeout overrides the per-call response deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithProtocolRange sets the protocol version range offered during connect.
func WithProtocolRange(min, max int) Option {
	return func(c *Client) {
		c.minProtocol = min
		c.maxProtocol = max
	}
}

// WithRateLimit caps outbound requests at rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithReconnectPolicy sets the policy used by WaitReady.
func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(c *Client) {
		c.policy = p.withDefaults()
	}
}

// WithDialOptions sets custom websocket.DialOptions.
func WithDialOptions(opts *websocket.DialOptions) Option {
	return func(c *Client) {
		c.dialOpts = opts
	}
}

// New creates a client for the given target. The identity is sent verbatim
// in the connect handshake; a missing ID or Platform is filled in.
func New(target domain.Target, identity domain.Identity, opts ...Option) *Client {
	if identity.ID == "" {
		identity.ID = newClientID()
	}
	if identity.Platform == "" {
		identity.Platform = runtime.GOOS
	}
	c := &Client{
		target:           target,
		identity:         identity,
		logger:           slog.Default(),
		handshakeTimeout: DefaultHandshakeTimeout,
		callTimeout:      DefaultCallTimeout,
		minProtocol:      DefaultMinProtocol,
		maxProtocol:      DefaultMaxProtocol,
		policy:           DefaultReconnectPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open ensures an authenticated connection exists. Idempotent: an existing
// authenticated connection is reused, and a second caller while a handshake
// is pending awaits that same attempt.
func (c *Client) Open(ctx context.Context) error {
	_, err := c.openConn(ctx)
	return err
}

// Call issues an RPC and blocks until its single completion: payload,
// remote error, deadline, or connection loss. params may be nil.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	cn, err := c.openConn(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.StartSpan(ctx, "gateway.call",
		trace.WithAttributes(tracer.StringAttr("rpc.method", method)))
	defer span.End()

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			err = fmt.Errorf("marshal %s params: %w", method, err)
			tracer.RecordError(span, err)
			return nil, err
		}
		raw = data
	}

	pc := cn.register(method, c.callTimeout)
	span.SetAttributes(tracer.StringAttr("rpc.id", pc.id))

	if err := cn.send(Frame{Type: FrameTypeRequest, ID: pc.id, Method: method, Params: raw}); err != nil {
		cn.take(pc.id)
		err = fmt.Errorf("%s: %w", method, domain.ErrConnectionClosed)
		tracer.RecordError(span, err)
		return nil, err
	}

	select {
	case res := <-pc.done:
		if res.err != nil {
			tracer.RecordError(span, res.err)
			return nil, res.err
		}
		tracer.SetOK(span)
		return res.payload, nil
	case <-ctx.Done():
		cn.take(pc.id)
		tracer.RecordError(span, ctx.Err())
		return nil, ctx.Err()
	}
}

// Disconnect forcibly closes the underlying connection, rejecting any
// in-flight calls. Safe to call when already disconnected. The next Call or
// Open transparently redials and re-authenticates.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cn != nil {
		cn.setState(StateClosing)
		cn.shutdown(nil)
	}
}

// State reports the current connection lifecycle state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if c.opening != nil {
			return StateOpening
		}
		return StateIdle
	}
	return c.conn.State()
}

// Identity returns the identity sent in the connect handshake.
func (c *Client) Identity() domain.Identity { return c.identity }

// openConn returns the live connection, joining an in-flight open attempt
// or starting a new one.
func (c *Client) openConn(ctx context.Context) (*conn, error) {
	c.mu.Lock()
	if cn := c.conn; cn != nil {
		select {
		case <-cn.done:
			// Died since the last call; fall through and redial.
			c.conn = nil
		default:
			c.mu.Unlock()
			return cn, nil
		}
	}
	if att := c.opening; att != nil {
		c.mu.Unlock()
		select {
		case <-att.done:
			return att.conn, att.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	att := &openAttempt{done: make(chan struct{})}
	c.opening = att
	c.mu.Unlock()

	cn, err := c.dialAndAuthenticate()

	c.mu.Lock()
	c.opening = nil
	if err == nil {
		c.conn = cn
	}
	c.mu.Unlock()

	att.conn, att.err = cn, err
	close(att.done)
	return cn, err
}

// dialAndAuthenticate opens the transport and runs the handshake under the
// handshake deadline. No partial connection is ever returned: on any error
// the transport is closed before rejecting.
func (c *Client) dialAndAuthenticate() (*conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.handshakeTimeout)
	defer cancel()

	url := c.target.URL()
	c.logger.Debug("dialing gateway", "url", url)

	ws, _, err := websocket.Dial(ctx, url, c.dialOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrConnectionClosed, url, err)
	}

	cn := newConn(ws, c.logger)
	if err := c.authenticate(ctx, cn); err != nil {
		cn.shutdown(err)
		return nil, err
	}
	return cn, nil
}

// newClientID generates a default client instance id.
func newClientID() string {
	t := time.Now()
	entropy := ulid.Monotonic(rand.New(rand.NewSource(t.UnixNano())), 0)
	return "gwc-" + ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
