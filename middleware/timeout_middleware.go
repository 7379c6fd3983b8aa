package middleware

import (
	"duplexhttp/message"
	"log"
	"time"
)

// Deadline bounds how long the wrapped onMessages callback may run. The
// receiver worker must never deadlock against a caller of send, so a
// wedged application callback cannot be allowed to block it forever.
//
// Implementation: run the handler in a goroutine and race it against a
// timer. The handler goroutine is NOT cancelled on timeout — it keeps
// running in the background so a slow callback still eventually
// completes; the deadline only controls how long this call blocks before
// returning. The returned channel is always the handler's own real
// completion signal, never one truncated at the timeout, so a caller
// that needs to know the handler is truly finished — e.g. before
// deleting the temp files backing its payloads — can still wait on it
// after this call has already returned on timeout.
func Deadline(timeout time.Duration) DeliverMiddleware {
	return func(next DeliverFunc) DeliverFunc {
		return func(batch []message.Message) <-chan struct{} {
			inner := make(chan (<-chan struct{}), 1)
			go func() { inner <- next(batch) }()

			select {
			case innerDone := <-inner:
				return innerDone
			case <-time.After(timeout):
				log.Printf("onMessages callback exceeded %s, continuing without it", timeout)
				return flatten(inner)
			}
		}
	}
}

// flatten waits for the deferred inner completion channel to arrive on
// ch, then waits for it to close in turn, so the caller still sees one
// true completion signal even when Deadline gave up waiting for next
// itself to be called.
func flatten(ch <-chan (<-chan struct{})) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		innerDone := <-ch
		<-innerDone
	}()
	return out
}
