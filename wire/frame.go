package wire

import "fmt"

// TagWidth is the fixed width of the message type tag on the wire.
// The tag is ASCII, left-justified, space-padded to exactly 8 bytes.
const TagWidth = 8

// MsgType is a message type tag. Request tags are sent by the client,
// reply tags by the server. The set is fixed by the server's dispatch
// contract and must not be extended.
type MsgType string

const (
	// Request tags.
	TypeAuth    MsgType = "AUTH"
	TypeEval    MsgType = "EVAL"
	TypeCommand MsgType = "COMMAND"
	TypeControl MsgType = "CONTROL"
	TypePing    MsgType = "PING"

	// Handshake reply tags.
	TypeReady    MsgType = "READY"
	TypeBusy     MsgType = "BUSY"
	TypeAuthFail MsgType = "AUTHFAIL"

	// Command reply tags.
	TypeOK    MsgType = "OK"
	TypeError MsgType = "ERROR"
)

// Message is a single framed exchange unit: a type tag plus a UTF-8 payload.
type Message struct {
	Type    MsgType
	Payload string
}

// IsZero reports whether this is the zero-length close marker the server
// emits when it tears the connection down mid-session.
func (m Message) IsZero() bool {
	return m.Type == "" && m.Payload == ""
}

// IsHandshakeReply reports whether the tag is a valid reply to AUTH.
func (m Message) IsHandshakeReply() bool {
	switch m.Type {
	case TypeReady, TypeBusy, TypeAuthFail:
		return true
	}
	return false
}

// IsCommandReply reports whether the tag is a valid reply to a command
// round trip (EVAL, COMMAND, CONTROL, PING).
func (m Message) IsCommandReply() bool {
	return m.Type == TypeOK || m.Type == TypeError
}

// String returns the tag name, or a marker for the close message.
func (m Message) String() string {
	if m.IsZero() {
		return "CLOSED"
	}
	return string(m.Type)
}

// padTag left-justifies a tag to TagWidth bytes. Tags longer than
// TagWidth are invalid on this wire.
func padTag(t MsgType) ([]byte, error) {
	if len(t) == 0 || len(t) > TagWidth {
		return nil, fmt.Errorf("message tag %q must be 1..%d bytes", t, TagWidth)
	}
	buf := make([]byte, TagWidth)
	copy(buf, t)
	for i := len(t); i < TagWidth; i++ {
		buf[i] = ' '
	}
	return buf, nil
}
