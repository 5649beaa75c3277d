package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageReader reads length-prefixed messages from a stream.
//
// Frame layout: 4-byte big-endian length, then the tag left-justified
// space-padded to 8 bytes, then the UTF-8 payload. A zero length prefix is
// the server's close marker and decodes to the zero Message.
type MessageReader struct {
	reader io.Reader
	limits Limits
}

// NewMessageReader creates a new MessageReader.
func NewMessageReader(r io.Reader) *MessageReader {
	return &MessageReader{
		reader: r,
		limits: DefaultLimits(),
	}
}

// SetLimits updates the reader's limits.
func (mr *MessageReader) SetLimits(limits Limits) {
	mr.limits = limits
}

// ReadMessage reads a single message from the stream.
func (mr *MessageReader) ReadMessage() (Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(mr.reader, lengthBuf[:]); err != nil {
		return Message{}, err
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return Message{}, nil
	}
	if length < TagWidth {
		return Message{}, fmt.Errorf("frame size %d is shorter than the %d-byte tag", length, TagWidth)
	}
	if int(length) > mr.limits.MaxFrame {
		return Message{}, fmt.Errorf("frame size %d exceeds max frame limit %d", length, mr.limits.MaxFrame)
	}
	if int(length) > MaxFrameHardLimit {
		return Message{}, fmt.Errorf("frame size %d exceeds hard limit %d", length, MaxFrameHardLimit)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(mr.reader, body); err != nil {
		return Message{}, err
	}

	return decodeBody(body)
}

// decodeBody splits a frame body into its tag and payload.
func decodeBody(body []byte) (Message, error) {
	tag := body[:TagWidth]
	end := TagWidth
	for end > 0 && tag[end-1] == ' ' {
		end--
	}
	if end == 0 {
		return Message{}, fmt.Errorf("frame carries an empty message tag")
	}
	return Message{
		Type:    MsgType(tag[:end]),
		Payload: string(body[TagWidth:]),
	}, nil
}

// MessageWriter writes length-prefixed messages to a stream.
type MessageWriter struct {
	writer io.Writer
	limits Limits
}

// NewMessageWriter creates a new MessageWriter.
func NewMessageWriter(w io.Writer) *MessageWriter {
	return &MessageWriter{
		writer: w,
		limits: DefaultLimits(),
	}
}

// SetLimits updates the writer's limits.
func (mw *MessageWriter) SetLimits(limits Limits) {
	mw.limits = limits
}

// WriteMessage writes a single message to the stream.
func (mw *MessageWriter) WriteMessage(m Message) error {
	tag, err := padTag(m.Type)
	if err != nil {
		return err
	}

	total := TagWidth + len(m.Payload)
	if total > mw.limits.MaxFrame {
		return fmt.Errorf("frame size %d exceeds max frame limit %d", total, mw.limits.MaxFrame)
	}
	if total > MaxFrameHardLimit {
		return fmt.Errorf("frame size %d exceeds hard limit %d", total, MaxFrameHardLimit)
	}

	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(total))
	if _, err := mw.writer.Write(lengthBuf[:]); err != nil {
		return err
	}
	if _, err := mw.writer.Write(tag); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		if _, err := io.WriteString(mw.writer, m.Payload); err != nil {
			return err
		}
	}
	return nil
}

// Handshake performs the client side of the session handshake: send AUTH
// with the shared-secret token, read the server's classification reply.
// The returned tag is one of READY, BUSY, AUTHFAIL.
func Handshake(reader *MessageReader, writer *MessageWriter, auth string) (MsgType, error) {
	if err := writer.WriteMessage(Message{Type: TypeAuth, Payload: auth}); err != nil {
		return "", fmt.Errorf("failed to write AUTH: %w", err)
	}

	reply, err := reader.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("failed to read AUTH reply: %w", err)
	}
	if !reply.IsHandshakeReply() {
		return "", fmt.Errorf("unexpected AUTH reply tag %q", reply.Type)
	}
	return reply.Type, nil
}
