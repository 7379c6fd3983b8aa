package transport

import (
	"fmt"
	"sync/atomic"

	"duplexhttp/message"
	"duplexhttp/protocol"
)

// runSender is the sender worker's loop. There is at most one instance
// alive per Connection at any time: the queuePresent marker is the signal
// that gates whether a new one is spawned.
//
// Go's http.Client has no way to write a request and defer reading the
// response status separately — Do() always blocks until response headers
// arrive. So the wait-for-slot-empty happens before the POST is issued
// rather than after: a donation is still never installed over one
// already parked, just reordered to fit the blocking client. See
// DESIGN.md.
func (c *Connection) runSender() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		if c.state == StateClosed {
			c.queuePresent = false
			c.mu.Unlock()
			return
		}
		if len(c.outbound) == 0 && c.recvSlot != nil {
			c.queuePresent = false
			c.mu.Unlock()
			return
		}
		batch := c.outbound
		c.outbound = nil
		c.mu.Unlock()

		entries := c.assignSequence(batch)
		body := protocol.BuildRequestBody(c.id, entries)

		req, err := newDonationRequest(c.ctx, c.endpoint, body)
		if err != nil {
			c.failAndClose(fmt.Errorf("transport: building donation request: %w", err))
			return
		}

		c.mu.Lock()
		for c.recvSlot != nil && c.state != StateClosed {
			c.cond.Wait()
		}
		if c.state == StateClosed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		resp, err := c.client.Do(req)
		if err != nil {
			c.failAndClose(fmt.Errorf("transport: donation POST failed: %w", err))
			return
		}

		c.mu.Lock()
		if c.state == StateClosed {
			c.mu.Unlock()
			resp.Body.Close()
			return
		}
		c.recvSlot = resp
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

// assignSequence assigns each batch element the next outbound sequence
// number, atomically and in order, as it is placed into a POST body.
func (c *Connection) assignSequence(batch []message.Message) []protocol.OutboundEntry {
	entries := make([]protocol.OutboundEntry, 0, len(batch))
	for _, m := range batch {
		payload, err := m.Encode()
		if err != nil {
			// A message that cannot encode itself is dropped from this
			// donation rather than aborting the whole batch or consuming
			// an outbound sequence number that would never be sent
			// (invariant 3 forbids gaps). This is a boundary the
			// out-of-scope message codec is expected not to hit in
			// practice.
			continue
		}
		seq := c.outSeq.Add(1)
		entries = append(entries, protocol.OutboundEntry{
			Seq:     seq,
			Type:    m.Type(),
			Payload: payload,
		})
	}
	return entries
}
