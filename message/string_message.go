package message

// StringMessage is a minimal concrete Message carrying a plain string
// payload under a single type character. It exists so the transport and
// its tests have something concrete to enqueue and decode without
// reaching into the out-of-scope application wire codec.
type StringMessage struct {
	TypeChar byte
	Payload  string
}

// Type implements Message.
func (m StringMessage) Type() byte { return m.TypeChar }

// Encode implements Message.
func (m StringMessage) Encode() (string, error) { return m.Payload, nil }

// StringDecoder decodes payloads into StringMessage values of the given
// type character. ctx is accepted to satisfy Decoder but unused, since a
// string payload never needs to spill to a temp file.
func StringDecoder(typ byte) Decoder {
	return DecoderFunc(func(payload string, _ TempFileContext) (Message, error) {
		return StringMessage{TypeChar: typ, Payload: payload}, nil
	})
}
