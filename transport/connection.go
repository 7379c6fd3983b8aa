// Package transport implements the per-endpoint long-polling duplex
// "socket": Connection, its paired sender and receiver workers, and the
// single monitor that hands the current receive channel between them.
//
// Connection owns the one physical channel to the server and exposes
// Send/Close to the rest of the module, the way a multiplexed connection
// owns its socket — but here the "channel" is a rotating sequence of HTTP
// donations instead of one long-lived socket.
package transport

import (
	"context"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"duplexhttp/message"
	"duplexhttp/middleware"
)

// Protocol is the constant string returned by Connection.Protocol.
const Protocol = "http"

// Connection is the per-endpoint duplex socket. Construct one via
// Context.NewConnection (in package client); the zero value is not
// usable.
type Connection struct {
	id       string
	endpoint string

	client         *http.Client
	connectTimeout time.Duration
	readTimeout    time.Duration

	decoders        *message.DecoderRegistry
	tempFileFactory func() message.TempFileContext

	deliver middleware.DeliverFunc
	kick    middleware.KickFunc
	onError func(error)

	mu           sync.Mutex
	cond         *sync.Cond
	state        ConnState
	queuePresent bool
	outbound     []message.Message
	recvSlot     *http.Response

	outSeq atomic.Int64

	reorderMu sync.Mutex
	reorder   map[int64]message.Message
	inSeq     int64

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithTimeouts overrides the default connect/read timeouts (15s/120s).
func WithTimeouts(connect, read time.Duration) Option {
	return func(c *Connection) {
		c.connectTimeout = connect
		c.readTimeout = read
	}
}

// WithDeliverMiddleware wraps the onMessages callback with additional
// cross-cutting behavior (logging, a bounded-duration guard, ...),
// applied outermost-first in the order given.
func WithDeliverMiddleware(mws ...middleware.DeliverMiddleware) Option {
	return func(c *Connection) {
		c.deliver = middleware.ChainDeliver(mws...)(c.deliver)
	}
}

// WithKickMiddleware wraps the receiver's bootstrap kicker with
// additional behavior (e.g. a rate limiter), applied outermost-first.
func WithKickMiddleware(mws ...middleware.KickMiddleware) Option {
	return func(c *Connection) {
		c.kick = middleware.ChainKick(mws...)(c.kick)
	}
}

// WithTempFileFactory overrides the default no-op TempFileContext
// factory, e.g. to plug in a real spill-to-disk implementation.
func WithTempFileFactory(factory func() message.TempFileContext) Option {
	return func(c *Connection) { c.tempFileFactory = factory }
}

// NewConnection creates a Connection for endpoint, identified by the
// server-assigned id, decoding inbound message payloads via decoders and
// delivering them to onMessages. The Connection is in StateNew until
// Start is called.
func NewConnection(id, endpoint string, decoders *message.DecoderRegistry, onMessages func([]message.Message), opts ...Option) *Connection {
	c := &Connection{
		id:              id,
		endpoint:        endpoint,
		connectTimeout:  DefaultConnectTimeout,
		readTimeout:     DefaultReadTimeout,
		decoders:        decoders,
		tempFileFactory: func() message.TempFileContext { return message.NopTempFileContext{} },
		deliver: middleware.DeliverFunc(func(batch []message.Message) <-chan struct{} {
			onMessages(batch)
			return middleware.Done()
		}),
		reorder: make(map[int64]message.Message),
		inSeq:   1,
	}
	c.kick = func() { c.sendMessagesImpl(nil) }
	for _, opt := range opts {
		opt(c)
	}
	c.cond = sync.NewCond(&c.mu)
	c.client = newHTTPClient(c.connectTimeout, c.readTimeout)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Protocol returns the constant string "http".
func (c *Connection) Protocol() string { return Protocol }

// ID returns the server-assigned connection identifier.
func (c *Connection) ID() string { return c.id }

// Start idempotently spawns the receiver worker. onStart is invoked once
// the worker has been scheduled; onError is the connection's error
// callback for the rest of its lifetime. Returns ErrClosed if the
// connection was already closed — the only synchronous error this
// method reports.
func (c *Connection) Start(onStart func(), onError func(error)) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateRunning {
		c.mu.Unlock()
		if onStart != nil {
			onStart()
		}
		return nil
	}
	c.state = StateRunning
	c.onError = onError
	c.mu.Unlock()

	c.wg.Add(1)
	go c.runReceiver()

	if onStart != nil {
		onStart()
	}
	return nil
}

// Send enqueues an ordered batch of application messages for
// transmission. Safe to call from any goroutine at any time. A no-op,
// silently, once the connection is closed.
func (c *Connection) Send(messages []message.Message) {
	c.sendMessagesImpl(messages)
}

// sendMessagesImpl is the shared enqueue path used by both the public
// Send and the receiver's bootstrap kicker, which invokes it with an
// empty batch to bring a sender up when none is running. If no sender is
// currently active, it spawns one.
func (c *Connection) sendMessagesImpl(batch []message.Message) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.outbound = append(c.outbound, batch...)
	if !c.queuePresent {
		c.queuePresent = true
		c.mu.Unlock()
		c.wg.Add(1)
		go c.runSender()
		return
	}
	c.mu.Unlock()
}

// Close marks the connection closed, wakes every monitor waiter, cancels
// in-flight donation requests and closes a parked receive channel.
// Idempotent. It does not wait for the workers to exit, and an onMessages
// call already in progress (or one for a batch the receiver had already
// parsed) is not waited for or suppressed.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	pending := c.recvSlot
	c.recvSlot = nil
	c.mu.Unlock()
	c.cancel()
	c.cond.Broadcast()
	if pending != nil {
		pending.Body.Close()
	}
	return nil
}

// closed reports whether the connection has been closed.
func (c *Connection) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateClosed
}

// failAndClose reports err through the error callback, unless the
// connection is already closed, then closes the connection. Workers
// catch all errors at the loop boundary and never let them reach the
// caller synchronously.
func (c *Connection) failAndClose(err error) {
	if c.closed() {
		return
	}
	if c.onError != nil {
		safeCall(func() { c.onError(err) })
	}
	c.Close()
}

// safeCall runs fn and swallows any panic, logging it instead: a panic
// thrown by an upward callback must never propagate into worker control
// flow.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transport: callback panic: %v", r)
		}
	}()
	fn()
}
