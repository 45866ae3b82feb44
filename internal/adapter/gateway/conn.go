package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"gatewayctl/internal/domain"
)

// ConnState is the lifecycle state of a gateway connection.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateOpening
	StateAwaitingChallenge
	StateAuthenticating
	StateAuthenticated
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateAwaitingChallenge:
		return "awaiting-challenge"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

const writeTimeout = 5 * time.Second

// callResult is the single completion value of a pending call.
type callResult struct {
	payload json.RawMessage
	err     error
}

// pendingCall is one in-flight RPC awaiting its response frame.
type pendingCall struct {
	id       string
	method   string
	issuedAt time.Time
	timer    *time.Timer
	done     chan callResult // buffered; receives exactly one result
}

// conn owns one WebSocket connection to the gateway: the transport handle,
// the sequence counter, and the pending-call table. All of that state is
// constructed and torn down with the conn; nothing lives at package scope.
type conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	ctx    context.Context // connection lifetime, cancelled on shutdown
	cancel context.CancelFunc

	sendCh    chan Frame // buffered outbound queue
	done      chan struct{}
	closeOnce sync.Once

	state atomic.Int32

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingCall

	// challenge receives the connect.challenge event exactly once.
	challenge chan challengePayload
}

// newConn wraps an opened WebSocket and starts its read and write loops.
func newConn(ws *websocket.Conn, logger *slog.Logger) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{
		ws:        ws,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		sendCh:    make(chan Frame, 64),
		done:      make(chan struct{}),
		pending:   make(map[string]*pendingCall),
		challenge: make(chan challengePayload, 1),
	}
	c.state.Store(int32(StateOpening))
	go c.readLoop()
	go c.writeLoop()
	return c
}

func (c *conn) State() ConnState     { return ConnState(c.state.Load()) }
func (c *conn) setState(s ConnState) { c.state.Store(int32(s)) }

// register allocates the next correlation id and inserts a pending entry
// with a deadline. The entry completes exactly once: matching response,
// deadline, or connection loss, whichever wins.
func (c *conn) register(method string, timeout time.Duration) *pendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	pc := &pendingCall{
		id:       fmt.Sprintf("rpc-%d", c.seq),
		method:   method,
		issuedAt: time.Now(),
		done:     make(chan callResult, 1),
	}
	id := pc.id
	pc.timer = time.AfterFunc(timeout, func() {
		c.expire(id, timeout)
	})
	c.pending[id] = pc
	return pc
}

// take removes a pending entry and stops its deadline timer. Returns nil if
// the id is unknown (already completed). Removal and completion are the same
// atomic step: whoever takes the entry is the only one allowed to finish it.
func (c *conn) take(id string) *pendingCall {
	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	pc.timer.Stop()
	return pc
}

// expire completes a call with a timeout error, unless a response won first.
func (c *conn) expire(id string, timeout time.Duration) {
	pc := c.take(id)
	if pc == nil {
		return
	}
	pc.done <- callResult{err: fmt.Errorf("%s: %w after %s", pc.method, domain.ErrCallTimeout, timeout)}
}

// dispatchResponse resolves or rejects the matching pending call. Responses
// with no matching entry (already timed out, or never ours) are discarded.
func (c *conn) dispatchResponse(f Frame) {
	pc := c.take(f.ID)
	if pc == nil {
		c.logger.Debug("discarding response with no pending call", "id", f.ID)
		return
	}
	if f.OK {
		pc.done <- callResult{payload: f.Payload}
		return
	}
	msg := ""
	if f.Error != nil {
		msg = f.Error.Message
	}
	pc.done <- callResult{err: &domain.RPCError{Method: pc.method, Message: msg}}
}

// drainPending rejects every outstanding call with a connection-closed error
// and clears the table as a unit.
func (c *conn) drainPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]*pendingCall)
	c.mu.Unlock()

	for _, pc := range pending {
		pc.timer.Stop()
		pc.done <- callResult{err: fmt.Errorf("%s: %w", pc.method, domain.ErrConnectionClosed)}
	}
	if len(pending) > 0 {
		c.logger.Debug("drained pending calls on connection loss", "count", len(pending))
	}
}

// send enqueues a frame for the write loop.
func (c *conn) send(f Frame) error {
	select {
	case c.sendCh <- f:
		return nil
	case <-c.done:
		return domain.ErrConnectionClosed
	}
}

// shutdown terminates the connection. Safe to call more than once. cause is
// nil for a caller-requested close.
func (c *conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		c.cancel()
		close(c.done)
		c.ws.Close(websocket.StatusNormalClosure, "")
		c.drainPending()
		if cause != nil {
			c.logger.Debug("gateway connection closed", "error", cause)
		}
	})
}

// readLoop is the single dispatch path for inbound frames. Malformed input
// is dropped; transport errors end the connection.
func (c *conn) readLoop() {
	for {
		_, data, err := c.ws.Read(c.ctx)
		if err != nil {
			c.shutdown(err)
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			c.logger.Debug("dropping inbound frame", "error", err)
			continue
		}

		switch frame.Type {
		case FrameTypeResponse:
			c.dispatchResponse(frame)
		case FrameTypeEvent:
			if frame.Event != EventChallenge {
				c.logger.Debug("ignoring gateway event", "event", frame.Event)
				continue
			}
			var ch challengePayload
			if len(frame.Payload) > 0 {
				// Nonce is diagnostics only; a bad payload is not fatal.
				_ = json.Unmarshal(frame.Payload, &ch)
			}
			select {
			case c.challenge <- ch:
			default:
			}
		case FrameTypeRequest:
			// The gateway never issues requests to this client.
			c.logger.Debug("ignoring server request frame", "method", frame.Method)
		}
	}
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.sendCh:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(ctx, c.ws, frame)
			cancel()
			if err != nil {
				c.shutdown(err)
				return
			}
		}
	}
}
