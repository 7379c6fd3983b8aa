package protocol

import "testing"

func TestBuildRequestBodyEmpty(t *testing.T) {
	got := BuildRequestBody("abc", nil)
	want := "action=messages&id=abc&l=0"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildRequestBodySingle(t *testing.T) {
	got := BuildRequestBody("abc", []OutboundEntry{
		{Seq: 1, Type: 's', Payload: "hi"},
	})
	want := "action=messages&id=abc&l=1&s0=1&t0=s&m0=hi"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBuildRequestBodyPercentEncodesPayload(t *testing.T) {
	got := BuildRequestBody("abc", []OutboundEntry{
		{Seq: 1, Type: 's', Payload: "a b&c"},
	})
	want := "action=messages&id=abc&l=1&s0=1&t0=s&m0=a+b%26c"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
