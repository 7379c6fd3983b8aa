// Package protocol implements the wire format for the long-polling duplex
// transport: the form-urlencoded outbound POST body, and the inbound
// <messages> XML envelope.
//
// The sender gets a single function that produces a well-formed body, and
// the receiver gets a single function that turns a response body back
// into typed entries, with all validation concentrated at that boundary.
package protocol

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// OutboundEntry is one message queued for a POST body, already assigned
// its outbound sequence number.
type OutboundEntry struct {
	Seq     int64
	Type    byte
	Payload string
}

// BuildRequestBody encodes id and batch as the form-urlencoded POST body:
//
//	action=messages&id=<id>&l=<N>&s0=<seq>&t0=<type>&m0=<payload>&...
//
// Message payloads are percent encoded the way url.QueryEscape encodes
// the UTF-8 bytes of a string.
func BuildRequestBody(id string, batch []OutboundEntry) string {
	var b strings.Builder
	b.WriteString("action=messages")
	b.WriteString("&id=")
	b.WriteString(url.QueryEscape(id))
	b.WriteString("&l=")
	b.WriteString(strconv.Itoa(len(batch)))
	for i, e := range batch {
		fmt.Fprintf(&b, "&s%d=%d", i, e.Seq)
		fmt.Fprintf(&b, "&t%d=%s", i, url.QueryEscape(string(e.Type)))
		fmt.Fprintf(&b, "&m%d=%s", i, url.QueryEscape(e.Payload))
	}
	return b.String()
}
