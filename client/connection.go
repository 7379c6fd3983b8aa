package client

import "duplexhttp/transport"

// Connection wraps a transport.Connection with the bookkeeping Context
// needs (its own id, a back-reference for Close-time deregistration).
// Embedding means the transport.Connection methods (Start, Send, Protocol,
// ID) are promoted and usable directly on *Connection; Close is
// overridden below.
type Connection struct {
	*transport.Connection
	ctx *Context
	id  string
}

// Close closes the underlying Connection and removes it from the owning
// Context's registry. Idempotent.
func (c *Connection) Close() error {
	err := c.Connection.Close()
	c.ctx.reg.Remove(c.id)
	return err
}
