// Package middleware implements onion-model wrappers around the two
// places application-visible behavior runs on the connection's hot path:
// the upward delivery of a batch of messages, and the receiver's
// bootstrap "kicker" POST.
//
// Onion model execution order:
//
//	ChainDeliver(A, B, C)(handler)  →  A(B(C(handler)))
package middleware

import "duplexhttp/message"

// DeliverFunc is the signature of the upward delivery callback: an
// ordered, contiguous batch of newly in-sequence messages. The returned
// channel is closed when the batch has been fully processed — the real
// completion signal, not merely "this call returned" — so a caller that
// must release resources only after the application is truly done with a
// batch (e.g. a temp-file context backing its payloads) can wait on it
// without being misled by a middleware, such as Deadline, that returns
// early.
type DeliverFunc func(batch []message.Message) <-chan struct{}

// Done returns an already-closed channel, for a DeliverFunc whose work is
// finished by the time it returns.
func Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// DeliverMiddleware wraps a DeliverFunc with additional behavior.
type DeliverMiddleware func(next DeliverFunc) DeliverFunc

// ChainDeliver composes middlewares into one, built right to left so the
// first middleware given is the outermost layer.
func ChainDeliver(mws ...DeliverMiddleware) DeliverMiddleware {
	return func(next DeliverFunc) DeliverFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// KickFunc is the signature of the receiver's bootstrap kicker: issue an
// empty-batch donation to (re-)establish a receive channel.
type KickFunc func()

// KickMiddleware wraps a KickFunc with additional behavior.
type KickMiddleware func(next KickFunc) KickFunc

// ChainKick composes kick middlewares the same way ChainDeliver does.
func ChainKick(mws ...KickMiddleware) KickMiddleware {
	return func(next KickFunc) KickFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
