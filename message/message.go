// Package message defines the application-message surface carried by the
// long-polling duplex transport.
//
// The transport treats the actual encoding of an application message as an
// external collaborator: it only needs a single character naming the
// message's type and a decoder registered under that character, not
// knowledge of what the type represents. This mirrors the way the codec
// package in a multiplexed RPC transport stays ignorant of the payload
// struct and only cares about a one-byte codec tag.
package message

import (
	"fmt"
	"sync"
)

// Message is anything that can be delivered upward to the application, or
// enqueued by the application for outbound delivery.
type Message interface {
	// Type returns the single character identifying this message's wire type.
	Type() byte

	// Encode returns the message payload as a string, ready for percent
	// encoding into the outbound POST body. Encoding of the payload itself
	// is the concern of the concrete Message implementation, not of the
	// transport.
	Encode() (string, error)
}

// TempFileContext is the scope for any temporary files a Decoder spills
// large message payloads to. It must outlive the parse of a single
// response batch but be released only after the upward callback that
// received the decoded messages has finished using them.
type TempFileContext interface {
	// Close releases all resources (e.g. deletes spilled files) owned by
	// this context. Safe to call on a context that never spilled anything.
	Close() error
}

// NopTempFileContext is a TempFileContext that owns nothing.
type NopTempFileContext struct{}

// Close implements TempFileContext.
func (NopTempFileContext) Close() error { return nil }

// Decoder turns the text content of one inbound <message> element back
// into a Message. ctx is the TempFileContext for the batch currently
// being processed, passed through so a Decoder that needs to spill to
// disk can attach cleanup to the right scope.
type Decoder interface {
	Decode(payload string, ctx TempFileContext) (Message, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(payload string, ctx TempFileContext) (Message, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(payload string, ctx TempFileContext) (Message, error) {
	return f(payload, ctx)
}

// DecoderRegistry maps a message-type character to the Decoder responsible
// for decoding it: the receiver looks up the decoder for an inbound
// entry's type character and hands it the entry's payload.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[byte]Decoder
}

// NewDecoderRegistry creates an empty registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[byte]Decoder)}
}

// Register installs the decoder for a message-type character, replacing
// any previous registration for the same character.
func (r *DecoderRegistry) Register(typ byte, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[typ] = d
}

// Decode looks up the decoder registered for typ and uses it to decode
// payload. Returns an error if no decoder is registered for typ.
func (r *DecoderRegistry) Decode(typ byte, payload string, ctx TempFileContext) (Message, error) {
	r.mu.RLock()
	d, ok := r.decoders[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("message: no decoder registered for type %q", typ)
	}
	return d.Decode(payload, ctx)
}
