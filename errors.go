package glyph

import (
	"errors"
	"fmt"
)

// Status classifies the outcome of a connection attempt and the current
// state of a session.
type Status int

const (
	// StatusDisconnected means no connection attempt has been made, or
	// the session has been closed.
	StatusDisconnected Status = iota
	// StatusConnected means the handshake succeeded and the session is
	// ready for commands.
	StatusConnected
	// StatusBusy means the server is already serving another client.
	StatusBusy
	// StatusAuthFailed means the server rejected the auth token.
	StatusAuthFailed
	// StatusUnreachable means the dial failed: refused, timed out, or
	// no route.
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusBusy:
		return "busy"
	case StatusAuthFailed:
		return "auth failed"
	case StatusUnreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ConnectError reports a failed connection attempt along with its
// classification. Connect never retries; the caller inspects Status and
// decides whether a retry makes sense.
type ConnectError struct {
	Status Status
	Err    error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connect failed (%s): %s", e.Status, e.Err)
	}
	return fmt.Sprintf("connect failed (%s)", e.Status)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// CommandError reports that the server executed the dispatch but the
// action itself failed. The session remains usable; callers may catch
// this and try an alternative action.
type CommandError struct {
	// Command is the command text as sent to the server.
	Command string
	// Message is the server-supplied failure message.
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Message)
}

// ProtocolError reports a malformed frame, unparseable payload, or an
// unexpected reply tag. When the framing layer itself failed, the
// session is poisoned and every further call returns ErrSessionDead.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error: %s: %s", e.Message, e.Err)
	}
	return fmt.Sprintf("protocol error: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ErrSessionDead is returned by every call after a protocol error or an
// unexpected disconnect poisoned the session.
var ErrSessionDead = errors.New("glyph: session is dead")

// ErrNotConnected is returned when a command is issued before Connect
// succeeds or after Close.
var ErrNotConnected = errors.New("glyph: not connected")

// ModeAbortError reports that a scoped mode exited without an explicit
// End and was aborted server-side. Non-fatal; surfaced so callers can
// tell an implicit rollback from a committed mode.
type ModeAbortError struct {
	// Mode is the server object name of the aborted mode.
	Mode string
}

func (e *ModeAbortError) Error() string {
	return fmt.Sprintf("mode %s exited without End and was aborted", e.Mode)
}
