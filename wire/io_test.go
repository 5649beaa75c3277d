package wire

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	var buf bytes.Buffer
	if err := NewMessageWriter(&buf).WriteMessage(m); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	got, err := NewMessageReader(&buf).ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	return got
}

func TestRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: TypeAuth, Payload: "secret"},
		{Type: TypeEval, Payload: "pw::Application getVersion"},
		{Type: TypeCommand, Payload: `["pw::Connector","create"]`},
		{Type: TypePing, Payload: ""},
		{Type: TypeOK, Payload: "résultat"},
	}
	for _, m := range cases {
		got := roundTrip(t, m)
		if got != m {
			t.Errorf("round trip of %v: got %+v, want %+v", m.Type, got, m)
		}
	}
}

func TestWireLayout(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMessageWriter(&buf).WriteMessage(Message{Type: TypeOK, Payload: "xy"}); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	raw := buf.Bytes()
	if len(raw) != 4+TagWidth+2 {
		t.Fatalf("frame length %d, want %d", len(raw), 4+TagWidth+2)
	}
	if n := binary.BigEndian.Uint32(raw[:4]); n != uint32(TagWidth+2) {
		t.Errorf("length prefix %d, want %d", n, TagWidth+2)
	}
	if tag := string(raw[4 : 4+TagWidth]); tag != "OK      " {
		t.Errorf("tag bytes %q, want %q", tag, "OK      ")
	}
	if payload := string(raw[4+TagWidth:]); payload != "xy" {
		t.Errorf("payload %q, want %q", payload, "xy")
	}
}

func TestReadCloseMarker(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	m, err := NewMessageReader(buf).ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if !m.IsZero() {
		t.Errorf("expected zero message, got %+v", m)
	}
	if m.String() != "CLOSED" {
		t.Errorf("String() = %q, want CLOSED", m.String())
	}
}

func TestReadShortFrame(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 3, 'O', 'K', ' '})
	if _, err := NewMessageReader(buf).ReadMessage(); err == nil {
		t.Fatal("expected error for frame shorter than the tag")
	}
}

func TestReadTruncated(t *testing.T) {
	// Length prefix promises more bytes than the stream has.
	buf := bytes.NewBuffer([]byte{0, 0, 0, 20, 'O', 'K'})
	if _, err := NewMessageReader(buf).ReadMessage(); err == nil {
		t.Fatal("expected error for truncated body")
	}
	// Truncated length prefix itself.
	buf = bytes.NewBuffer([]byte{0, 0})
	if _, err := NewMessageReader(buf).ReadMessage(); err == nil {
		t.Fatal("expected error for truncated length prefix")
	}
}

func TestReadEmptyTag(t *testing.T) {
	body := append([]byte{0, 0, 0, byte(TagWidth)}, bytes.Repeat([]byte{' '}, TagWidth)...)
	if _, err := NewMessageReader(bytes.NewBuffer(body)).ReadMessage(); err == nil {
		t.Fatal("expected error for all-space tag")
	}
}

func TestReadOversizedFrame(t *testing.T) {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], 1024)
	reader := NewMessageReader(bytes.NewBuffer(prefix[:]))
	reader.SetLimits(Limits{MaxFrame: 512})
	if _, err := reader.ReadMessage(); err == nil {
		t.Fatal("expected error for frame above the reader limit")
	}
}

func TestWriteOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	writer := NewMessageWriter(&buf)
	writer.SetLimits(Limits{MaxFrame: 16})
	err := writer.WriteMessage(Message{Type: TypeEval, Payload: strings.Repeat("x", 32)})
	if err == nil {
		t.Fatal("expected error for frame above the writer limit")
	}
	if buf.Len() != 0 {
		t.Errorf("oversized write must not emit bytes, wrote %d", buf.Len())
	}
}

func TestWriteBadTag(t *testing.T) {
	var buf bytes.Buffer
	w := NewMessageWriter(&buf)
	if err := w.WriteMessage(Message{Type: ""}); err == nil {
		t.Error("expected error for empty tag")
	}
	if err := w.WriteMessage(Message{Type: "TOOLONGTAG"}); err == nil {
		t.Error("expected error for oversized tag")
	}
}

func TestHandshakeReplies(t *testing.T) {
	cases := []MsgType{TypeReady, TypeBusy, TypeAuthFail}
	for _, reply := range cases {
		var server bytes.Buffer
		if err := NewMessageWriter(&server).WriteMessage(Message{Type: reply}); err != nil {
			t.Fatalf("seeding reply failed: %v", err)
		}
		var client bytes.Buffer
		got, err := Handshake(NewMessageReader(&server), NewMessageWriter(&client), "token")
		if err != nil {
			t.Fatalf("Handshake with %s reply failed: %v", reply, err)
		}
		if got != reply {
			t.Errorf("Handshake returned %q, want %q", got, reply)
		}

		sent, err := NewMessageReader(&client).ReadMessage()
		if err != nil {
			t.Fatalf("reading sent AUTH failed: %v", err)
		}
		if sent.Type != TypeAuth || sent.Payload != "token" {
			t.Errorf("sent %+v, want AUTH with token payload", sent)
		}
	}
}

func TestHandshakeUnexpectedReply(t *testing.T) {
	var server bytes.Buffer
	if err := NewMessageWriter(&server).WriteMessage(Message{Type: TypeOK}); err != nil {
		t.Fatalf("seeding reply failed: %v", err)
	}
	var client bytes.Buffer
	if _, err := Handshake(NewMessageReader(&server), NewMessageWriter(&client), ""); err == nil {
		t.Fatal("expected error for non-handshake reply tag")
	}
}
