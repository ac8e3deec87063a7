// Package fakenet is an in-memory messaging capability for tests. It counts
// opens and closes and records the highest number of simultaneously live
// connections so tests can assert the single-session invariant.
package fakenet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/wadispatch/internal/session"
)

var (
	ErrLoadFailed = errors.New("fakenet: load failed")
	ErrDialFailed = errors.New("fakenet: dial failed")
)

// Store returns fixed auth material or Err.
type Store struct {
	Err error

	mu    sync.Mutex
	loads int
}

func (s *Store) Load(_ context.Context, location string) (session.AuthMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.Err != nil {
		return session.AuthMaterial{}, s.Err
	}
	return session.AuthMaterial{Location: location, Files: []string{"session.db"}}, nil
}

func (s *Store) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Script drives lifecycle events for one opened connection.
type Script func(sink session.EventSink)

// Open emits a single open event.
func Open() Script {
	return Sequence(session.Event{Kind: session.EventOpen})
}

// OpenAfter emits open once d has elapsed.
func OpenAfter(d time.Duration) Script {
	return func(sink session.EventSink) {
		time.Sleep(d)
		sink.Emit(session.Event{Kind: session.EventOpen})
	}
}

// CloseWith emits a close event carrying reason.
func CloseWith(reason error) Script {
	return Sequence(session.Event{Kind: session.EventClose, Reason: reason})
}

// Sequence emits events in order.
func Sequence(events ...session.Event) Script {
	return func(sink session.EventSink) {
		for _, ev := range events {
			sink.Emit(ev)
		}
	}
}

// Silent never emits.
func Silent() Script {
	return func(session.EventSink) {}
}

// Sent is one recorded send.
type Sent struct {
	To      session.Identity
	Payload session.Payload
}

// Dialer is a scriptable session.Dialer.
type Dialer struct {
	Script   Script
	OpenErr  error
	CloseErr error
	// ResolveFn defaults to one identity "<raw>@s.whatsapp.net".
	ResolveFn func(raw string) ([]session.Identity, error)
	// SendFn defaults to returning "msg-<n>".
	SendFn func(to session.Identity, payload session.Payload) (string, error)
	// ReadyFn makes connections implement session.Readier when set.
	ReadyFn func(ctx context.Context) error

	mu      sync.Mutex
	opens   int
	closes  int
	live    int
	maxLive int
	sends   []Sent
}

func (d *Dialer) Open(_ context.Context, _ session.AuthMaterial, sink session.EventSink) (session.Conn, error) {
	d.mu.Lock()
	d.opens++
	if d.OpenErr != nil {
		d.mu.Unlock()
		return nil, d.OpenErr
	}
	d.live++
	if d.live > d.maxLive {
		d.maxLive = d.live
	}
	script := d.Script
	d.mu.Unlock()

	if script == nil {
		script = Open()
	}
	go script(sink)

	base := &Conn{d: d}
	if d.ReadyFn != nil {
		return &ReadyConn{Conn: base}, nil
	}
	return base, nil
}

func (d *Dialer) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

func (d *Dialer) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *Dialer) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *Dialer) MaxLive() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxLive
}

func (d *Dialer) Sends() []Sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Sent, len(d.sends))
	copy(out, d.sends)
	return out
}

// Conn is a fake session.Conn bound to its Dialer.
type Conn struct {
	d      *Dialer
	closed bool
}

func (c *Conn) Resolve(_ context.Context, raw string) ([]session.Identity, error) {
	if c.d.ResolveFn != nil {
		return c.d.ResolveFn(raw)
	}
	return []session.Identity{{Query: raw, ID: raw + "@s.whatsapp.net"}}, nil
}

func (c *Conn) Send(_ context.Context, to session.Identity, payload session.Payload) (string, error) {
	c.d.mu.Lock()
	c.d.sends = append(c.d.sends, Sent{To: to, Payload: payload})
	n := len(c.d.sends)
	fn := c.d.SendFn
	c.d.mu.Unlock()
	if fn != nil {
		return fn(to, payload)
	}
	return fmt.Sprintf("msg-%d", n), nil
}

func (c *Conn) Close() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.closes++
	if !c.closed {
		c.closed = true
		c.d.live--
	}
	return c.d.CloseErr
}

// ReadyConn adds a readiness signal to Conn.
type ReadyConn struct {
	*Conn
}

func (c *ReadyConn) WaitReady(ctx context.Context) error {
	return c.d.ReadyFn(ctx)
}
