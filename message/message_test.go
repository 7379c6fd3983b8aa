package message

import "testing"

func TestDecoderRegistryDecode(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register('s', StringDecoder('s'))

	msg, err := reg.Decode('s', "hello", NopTempFileContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sm, ok := msg.(StringMessage)
	if !ok {
		t.Fatalf("got %T, want StringMessage", msg)
	}
	if sm.Payload != "hello" || sm.Type() != 's' {
		t.Fatalf("got %+v", sm)
	}
}

func TestDecoderRegistryUnregisteredType(t *testing.T) {
	reg := NewDecoderRegistry()
	_, err := reg.Decode('x', "payload", NopTempFileContext{})
	if err == nil {
		t.Fatal("expected error for unregistered type")
	}
}

func TestStringMessageEncode(t *testing.T) {
	m := StringMessage{TypeChar: 's', Payload: "hi"}
	got, err := m.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hi" {
		t.Fatalf("got %q, want %q", got, "hi")
	}
}
