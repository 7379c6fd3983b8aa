package transport

import (
	"fmt"
	"log"
	"net/http"

	"duplexhttp/message"
	"duplexhttp/middleware"
	"duplexhttp/protocol"
)

// runReceiver is the receiver worker's loop. There is exactly one per
// Connection, started by Start.
func (c *Connection) runReceiver() {
	defer c.wg.Done()
	tempCtx := c.tempFileFactory()

	for {
		resp, ok := c.awaitReceiveChannel()
		if !ok {
			return
		}

		if resp.StatusCode != 200 {
			resp.Body.Close()
			c.failAndClose(fmt.Errorf("transport: long-poll response status %d", resp.StatusCode))
			return
		}

		entries, err := protocol.ParseResponseBody(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.failAndClose(err)
			return
		}

		delivered, err := c.reorderAndDecode(entries, tempCtx)
		if err != nil {
			c.failAndClose(err)
			return
		}

		if len(delivered) > 0 {
			// The monitor is not held across this call, so a Send issued
			// from within onMessages cannot deadlock against it. The call
			// itself may be middleware-bounded (see middleware.Deadline),
			// which returns once its own timeout elapses without waiting
			// for a wedged callback — but its return value is always the
			// callback's real completion channel, never one truncated at
			// that timeout, so waiting on done below still waits for the
			// application to actually finish with this batch before its
			// temp-file context is torn down.
			var done <-chan struct{}
			safeCall(func() { done = c.deliver(delivered) })
			if done == nil {
				// deliver panicked before returning a completion signal;
				// there is nothing left to wait for.
				done = middleware.Done()
			}

			// Releasing the temp-file context is disk I/O unrelated to
			// the monitor hand-off; do it in the background, once the
			// application is truly done with the batch, so it never
			// delays the receiver from moving on to the next donation
			// cycle, and start the next batch with a fresh context.
			closing := tempCtx
			go func() {
				<-done
				if err := closing.Close(); err != nil {
					log.Printf("transport: closing temp-file context: %v", err)
				}
			}()
			tempCtx = c.tempFileFactory()
		}

		c.mu.Lock()
		c.recvSlot = nil
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

// awaitReceiveChannel blocks until the receive-channel slot is full,
// kicking the sender whenever it wakes to find the slot still empty.
// This is the sole mechanism that bootstraps the first receive channel.
// Returns ok=false once the connection is closed.
func (c *Connection) awaitReceiveChannel() (resp *http.Response, ok bool) {
	c.mu.Lock()
	for c.recvSlot == nil && c.state != StateClosed {
		c.mu.Unlock()
		c.kick()
		c.mu.Lock()
		if c.recvSlot != nil || c.state == StateClosed {
			break
		}
		c.cond.Wait()
	}
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil, false
	}
	handle := c.recvSlot
	c.mu.Unlock()
	return handle, true
}

// reorderAndDecode decodes each entry, inserts it into the reorder
// buffer, and drains the contiguous prefix starting at the current
// inbound sequence cursor. A duplicate or stale seq is fatal.
func (c *Connection) reorderAndDecode(entries []protocol.InboundEntry, tempCtx message.TempFileContext) ([]message.Message, error) {
	c.reorderMu.Lock()
	defer c.reorderMu.Unlock()

	for _, e := range entries {
		if e.Seq < c.inSeq {
			return nil, fmt.Errorf("transport: duplicate inbound seq %d (already delivered up to %d)", e.Seq, c.inSeq-1)
		}
		if _, dup := c.reorder[e.Seq]; dup {
			return nil, fmt.Errorf("transport: duplicate inbound seq %d", e.Seq)
		}
		msg, err := c.decoders.Decode(e.Type, e.Payload, tempCtx)
		if err != nil {
			return nil, fmt.Errorf("transport: decoding seq %d: %w", e.Seq, err)
		}
		c.reorder[e.Seq] = msg
	}

	var delivered []message.Message
	for {
		msg, ok := c.reorder[c.inSeq]
		if !ok {
			break
		}
		delete(c.reorder, c.inSeq)
		delivered = append(delivered, msg)
		c.inSeq++
	}
	return delivered, nil
}
