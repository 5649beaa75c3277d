package glyph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meshfabric/glyph-go/wire"
)

// ErrServerClosed is returned when the server ends the session cleanly
// mid-call. The client is disconnected but not poisoned; a new Connect
// is allowed.
var ErrServerClosed = errors.New("glyph: server closed the session")

// Client is one session with a Glyph Server. A session carries at most
// one in-flight request; calls from concurrent goroutines serialize on
// an internal lock. Two independent Clients may run concurrently.
type Client struct {
	opts     Options
	registry *Registry
	trace    *Recorder

	mu            sync.Mutex
	conn          net.Conn
	reader        *wire.MessageReader
	writer        *wire.MessageWriter
	launcher      *Launcher
	status        Status
	dead          bool
	serverVersion string
	drained       chan struct{}
}

// NewClient creates a client with the given options. Nothing happens on
// the wire until Connect.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		opts:     opts,
		registry: opts.Registry,
		status:   StatusDisconnected,
	}
	if c.registry == nil {
		c.registry = DefaultRegistry()
	}
	if opts.Trace != nil {
		c.trace = NewRecorder(opts.Trace)
	}
	return c
}

// Connect dials a server, or with Port zero launches one first, and runs
// the handshake. It fails fast: a refused or timed-out dial is reported
// once, classified, and never retried internally. The returned Status is
// also remembered for IsBusy, AuthFailed, and IsConnected.
func (c *Client) Connect(ctx context.Context) (Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.status, fmt.Errorf("glyph: already connected")
	}
	c.dead = false

	host := c.opts.Host
	port := c.opts.Port
	if port == 0 {
		// Startup can sit in license acquisition well past any dial
		// timeout; the caller's context bounds the wait.
		l, err := StartServer(ctx, c.opts)
		if err != nil {
			c.status = StatusUnreachable
			return c.status, &ConnectError{Status: StatusUnreachable, Err: err}
		}
		c.launcher = l
		c.drained = make(chan struct{})
		go c.drainOutput(l.Lines())
		host = "localhost"
		port = l.Port()
	}

	dialer := net.Dialer{Timeout: c.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		c.teardownLocked()
		c.status = StatusUnreachable
		return c.status, &ConnectError{Status: StatusUnreachable, Err: err}
	}
	c.conn = conn
	c.reader = wire.NewMessageReader(conn)
	c.writer = wire.NewMessageWriter(conn)

	conn.SetDeadline(time.Now().Add(c.opts.ConnectTimeout))
	reply, err := wire.Handshake(c.reader, c.writer, c.opts.Auth)
	conn.SetDeadline(time.Time{})
	if err != nil {
		c.teardownLocked()
		c.status = StatusUnreachable
		return c.status, &ConnectError{Status: StatusUnreachable, Err: err}
	}

	switch reply {
	case wire.TypeBusy:
		c.teardownLocked()
		c.status = StatusBusy
		return c.status, &ConnectError{Status: StatusBusy}
	case wire.TypeAuthFail:
		c.teardownLocked()
		c.status = StatusAuthFailed
		return c.status, &ConnectError{Status: StatusAuthFailed}
	}

	c.status = StatusConnected
	if err := c.finishConnectLocked(ctx); err != nil {
		c.teardownLocked()
		c.status = StatusDisconnected
		return c.status, &ConnectError{Status: StatusDisconnected, Err: err}
	}
	log.WithField("server", c.serverVersion).Debug("glyph session established")
	return c.status, nil
}

// finishConnectLocked pins the language version when requested and
// captures the server's version banner.
func (c *Client) finishConnectLocked(ctx context.Context) error {
	if c.opts.Version != "" {
		if _, err := c.roundTrip(ctx, wire.TypeControl, "version="+c.opts.Version); err != nil {
			return fmt.Errorf("pinning version %s: %w", c.opts.Version, err)
		}
	}
	v, err := c.roundTrip(ctx, wire.TypeEval, "pw::Application getVersion")
	if err != nil {
		return fmt.Errorf("querying server version: %w", err)
	}
	c.serverVersion = v
	return nil
}

// Connect creates a client and connects it in one step.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	c := NewClient(opts)
	if _, err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// drainOutput forwards launched-server output lines to the configured
// callback, or to the package logger when none is set.
func (c *Client) drainOutput(lines <-chan string) {
	defer close(c.drained)
	for line := range lines {
		if c.opts.OutputCallback != nil {
			c.opts.OutputCallback(line)
		} else {
			log.WithField("server", "glyph").Debug(line)
		}
	}
}

// roundTrip performs one request/response exchange. The caller holds
// c.mu, which is what enforces one in-flight request per session.
func (c *Client) roundTrip(ctx context.Context, t wire.MsgType, payload string) (string, error) {
	if c.dead {
		return "", ErrSessionDead
	}
	if c.conn == nil {
		return "", ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		// Cancellation only applies before the request is written.
		return "", err
	}

	deadline := time.Time{}
	if c.opts.CallTimeout > 0 {
		deadline = time.Now().Add(c.opts.CallTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	c.conn.SetDeadline(deadline)

	start := time.Now()
	if err := c.writer.WriteMessage(wire.Message{Type: t, Payload: payload}); err != nil {
		c.poisonLocked()
		return "", &ProtocolError{Message: "writing request", Err: err}
	}
	reply, err := c.reader.ReadMessage()
	if err != nil {
		c.poisonLocked()
		return "", &ProtocolError{Message: "reading response", Err: err}
	}
	c.conn.SetDeadline(time.Time{})

	if c.trace != nil {
		if err := c.trace.Record(string(t), payload, reply.String(), reply.Payload, start, time.Since(start)); err != nil {
			log.WithError(err).Warn("glyph trace record failed")
		}
	}
	log.WithFields(logrus.Fields{
		"req":  string(t),
		"resp": reply.String(),
		"took": time.Since(start),
	}).Debug("glyph round trip")

	if reply.IsZero() {
		// Clean close: the command ended the server session. The client
		// may connect again.
		c.teardownLocked()
		c.status = StatusDisconnected
		return "", ErrServerClosed
	}
	switch reply.Type {
	case wire.TypeOK:
		return reply.Payload, nil
	case wire.TypeError:
		return "", &CommandError{Command: payload, Message: reply.Payload}
	default:
		c.poisonLocked()
		return "", &ProtocolError{Message: fmt.Sprintf("unexpected reply tag %q", reply.Type)}
	}
}

// poisonLocked marks the session dead after a protocol failure. The
// stream cannot be resynchronized in place; only reconnecting helps.
func (c *Client) poisonLocked() {
	c.dead = true
	c.teardownLocked()
	c.status = StatusDisconnected
}

// teardownLocked releases the socket and a launched server, if any.
func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.reader = nil
		c.writer = nil
	}
	if c.launcher != nil {
		if err := c.launcher.Stop(c.opts.LaunchGrace); err != nil {
			log.WithError(err).Debug("glyph server exit")
		}
		c.launcher = nil
	}
	if c.drained != nil {
		<-c.drained
		c.drained = nil
	}
}

// Eval evaluates a raw Glyph script line, with full Tcl semantics
// (nested commands, variable substitution), and returns its raw text
// result. This is the escape hatch under the typed action surface.
func (c *Client) Eval(ctx context.Context, script string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, wire.TypeEval, script)
}

// Command executes a JSON-encoded command token list and returns the
// JSON-encoded result. Most callers want the typed surface via Class,
// Object, and Call instead.
func (c *Client) Command(ctx context.Context, jsonCmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, wire.TypeCommand, jsonCmd)
}

// Control reads or writes a server control setting. An empty value
// queries the setting; otherwise the setting is assigned. The current
// value is returned either way.
func (c *Client) Control(ctx context.Context, setting, value string) (string, error) {
	payload := setting
	if value != "" {
		payload += "=" + value
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roundTrip(ctx, wire.TypeControl, payload)
}

// Ping reports whether the server answers on this session.
func (c *Client) Ping(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err := c.roundTrip(ctx, wire.TypePing, "")
	return err == nil && payload == "OK"
}

// invoke runs an encoded command end to end: send, decode the primary
// result, read back variable slots, drop temporary slots.
func (c *Client) invoke(ctx context.Context, cmd Command, vars []*Var) (any, error) {
	wireCmd, err := json.Marshal(cmd.Wire())
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.roundTrip(ctx, wire.TypeCommand, string(wireCmd))
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			cmdErr.Command = cmd.Text()
		}
		return nil, err
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		c.poisonLocked()
		return nil, &ProtocolError{Message: "unparseable command result", Err: err}
	}
	result, err := decodeValue(c.registry, decoded)
	if err != nil {
		// A result that parses as JSON but does not match descriptor or
		// value shape is still a broken envelope.
		c.poisonLocked()
		return nil, err
	}

	if len(vars) > 0 {
		ev := lockedEvaluator{c}
		for _, v := range vars {
			if err := readVar(ctx, ev, c.registry, v); err != nil {
				return nil, err
			}
		}
		if err := unsetVars(ctx, ev, vars); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// lockedEvaluator runs eval round trips while c.mu is already held.
type lockedEvaluator struct {
	c *Client
}

func (ev lockedEvaluator) Eval(ctx context.Context, script string) (string, error) {
	return ev.c.roundTrip(ctx, wire.TypeEval, script)
}

// IsConnected reports whether the last Connect succeeded and the session
// has not since been closed or poisoned.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.status == StatusConnected && !c.dead
}

// IsBusy reports whether the last Connect failed because the server was
// already serving another client.
func (c *Client) IsBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusBusy
}

// AuthFailed reports whether the last Connect failed authentication.
func (c *Client) AuthFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusAuthFailed
}

// ServerVersion returns the version banner captured at connect time.
func (c *Client) ServerVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

// Status returns the classification of the last connect attempt.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close releases the socket and, for a launched server, requests a
// graceful shutdown before killing it after the configured grace period.
// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.status = StatusDisconnected
	return nil
}

func (c *Client) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	connected := c.conn != nil && c.status == StatusConnected && !c.dead
	s := fmt.Sprintf("GlyphClient(%s@%d) connected=%t", c.opts.Host, c.opts.Port, connected)
	if connected && c.serverVersion != "" {
		s += " server=" + c.serverVersion
	}
	return s
}
