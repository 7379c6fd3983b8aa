// Package client provides Context, the top-level façade that creates and
// tracks Connections: it constructs or looks up a Connection per
// server-assigned id. Every Connection's receiver parses inbound batches
// through protocol.NewHardenedDecoder, the single hardened-XML-config
// entry point this module ships (no external entities, no external
// DTDs/schemas, secure processing on); unlike a DOM-builder factory, an
// encoding/xml.Decoder carries no expensive or mutable state worth
// pooling, so that one pure function is the shared configuration, not an
// object Context constructs and hands out.
package client

import (
	"fmt"
	"sync"
	"time"

	"duplexhttp/message"
	"duplexhttp/middleware"
	"duplexhttp/registry"
	"duplexhttp/transport"
)

// Context is the factory/registry for Connections. The zero value is not
// usable; construct with NewContext.
type Context struct {
	reg      registry.Registry
	decoders *message.DecoderRegistry

	mu     sync.Mutex
	closed bool
}

// NewContext creates a Context with an empty in-memory Connection
// registry and the given decoder registry, shared read-only across every
// Connection it creates.
func NewContext(decoders *message.DecoderRegistry) *Context {
	return &Context{
		reg:      registry.NewInMemoryRegistry(),
		decoders: decoders,
	}
}

// NewConnection creates a Connection for endpoint identified by id,
// registers it, and returns it in StateNew (Start has not been called).
// Delivering messages upward goes through onMessages, wrapped with
// Logging and Deadline by default; the receiver's bootstrap kicker is
// wrapped with a KickerLimiter. Middleware passed in opts is applied
// after these defaults, so it wraps around them rather than replacing
// them.
func (c *Context) NewConnection(id, endpoint string, onMessages func([]message.Message), opts ...transport.Option) (*Connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("client: context is closed")
	}
	if _, exists := c.reg.Get(id); exists {
		return nil, fmt.Errorf("client: connection %q already registered", id)
	}

	defaultOpts := []transport.Option{
		transport.WithDeliverMiddleware(middleware.Logging(), middleware.Deadline(defaultCallbackDeadline)),
		transport.WithKickMiddleware(middleware.KickerLimiter(defaultKickerRate, defaultKickerBurst)),
	}
	conn := transport.NewConnection(id, endpoint, c.decoders, onMessages, append(defaultOpts, opts...)...)

	// Registration happens while still holding c.mu, so the existence
	// check above and this Put are atomic with respect to both a
	// concurrent NewConnection(id, ...) and a concurrent Close(): neither
	// can observe a state between the check and the registration.
	wrapped := &Connection{Connection: conn, ctx: c, id: id}
	c.reg.Put(id, wrapped)
	return wrapped, nil
}

// Lookup returns the Connection previously created under id, if any.
func (c *Context) Lookup(id string) (*Connection, bool) {
	entry, ok := c.reg.Get(id)
	if !ok {
		return nil, false
	}
	return entry.(*Connection), true
}

// Close closes every Connection this Context has created and marks the
// Context itself closed to further connection creation. Idempotent.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	for _, entry := range c.reg.All() {
		_ = entry.Close()
	}
	return nil
}

const (
	defaultCallbackDeadline = 30 * time.Second
	defaultKickerRate       = 5.0 // kicks per second
	defaultKickerBurst      = 10
)
