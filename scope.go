package glyph

import (
	"context"
	"errors"
	"fmt"
)

// Mode is a scoped server-side transactional context. Work done inside
// the mode is only committed by an explicit End; a scope that exits any
// other way gets aborted.
type Mode struct {
	client *Client
	handle Handle
	ended  bool
}

// Object returns the mode's action surface, for addEntity-style calls.
func (m *Mode) Object() *Object {
	return m.client.Object(m.handle)
}

// Handle returns the mode's handle.
func (m *Mode) Handle() Handle {
	return m.handle
}

// End commits the mode.
func (m *Mode) End(ctx context.Context) error {
	if m.ended {
		return nil
	}
	if _, err := m.client.Eval(ctx, m.handle.ID+" end"); err != nil {
		return err
	}
	m.ended = true
	return nil
}

// Abort rolls the mode back.
func (m *Mode) Abort(ctx context.Context) error {
	if m.ended {
		return nil
	}
	if _, err := m.client.Eval(ctx, m.handle.ID+" abort"); err != nil {
		return err
	}
	m.ended = true
	return nil
}

// WithMode runs fn inside a mode scope. The handle must reference a
// pw::Mode object. If fn returns without having called End or Abort,
// the mode is aborted and a ModeAbortError is reported alongside fn's
// own error: an implicit rollback is never silent, even on a clean
// return.
func (c *Client) WithMode(ctx context.Context, h Handle, fn func(*Mode) error) error {
	ok, err := evalBool(ctx, clientEvaluator{c}, h.ID+" isOfType pw::Mode")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a pw::Mode object", h.ID)
	}

	m := &Mode{client: c, handle: h}
	fnErr := fn(m)
	if m.ended {
		return fnErr
	}

	abortErr := m.Abort(ctx)
	log.WithField("mode", h.ID).Warn("mode scope exited without End, aborted")
	return errors.Join(fnErr, &ModeAbortError{Mode: h.ID}, abortErr)
}

// WithExamine runs fn against a pw::Examine object and deletes the
// object when the scope exits, no matter how. Examine sessions are
// transient analyses; unlike modes there is nothing to commit.
func (c *Client) WithExamine(ctx context.Context, h Handle, fn func(*Object) error) error {
	ok, err := evalBool(ctx, clientEvaluator{c}, h.ID+" isOfType pw::Examine")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a pw::Examine object", h.ID)
	}

	fnErr := fn(c.Object(h))
	_, delErr := c.Eval(ctx, h.ID+" delete")
	return errors.Join(fnErr, delErr)
}

// WithSession connects a client, runs fn, and guarantees the session is
// closed, including subprocess teardown for a launched server, on every
// exit path.
func WithSession(ctx context.Context, opts Options, fn func(*Client) error) error {
	c, err := Connect(ctx, opts)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

// clientEvaluator adapts the public Eval surface to the evaluator used
// by internal decode helpers.
type clientEvaluator struct {
	c *Client
}

func (ev clientEvaluator) Eval(ctx context.Context, script string) (string, error) {
	return ev.c.Eval(ctx, script)
}
