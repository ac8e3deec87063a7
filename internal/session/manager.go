package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logs "github.com/danmuck/smplog"
)

// Status is a point-in-time view of the manager.
type Status struct {
	State     State
	LastError string
	OpenedAt  time.Time
}

// Manager owns the single messaging session and drives its lifecycle.
type Manager struct {
	cfg    Config
	store  Store
	dialer Dialer

	mu         sync.Mutex
	state      State
	conn       Conn
	sink       *eventSink
	lastErr    error
	openedAt   time.Time
	generation uint64
	releasing  bool

	abort       func()
	attemptDone chan struct{}
}

func NewManager(cfg Config, store Store, dialer Dialer) (*Manager, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if dialer == nil {
		return nil, ErrDialerRequired
	}
	return &Manager{
		cfg:    cfg.WithDefaults(),
		store:  store,
		dialer: dialer,
		state:  StateDisconnected,
	}, nil
}

// Connect performs a fresh handshake and blocks until the session is open
// or the attempt fails. Only one handle exists at a time; a second Connect
// before Close fails with ErrSessionBusy.
func (m *Manager) Connect(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	if m.state != StateDisconnected {
		state := m.state
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: state=%s", ErrSessionBusy, state)
	}

	auth, err := m.store.Load(ctx, m.cfg.Location)
	if err != nil {
		if isContextErr(err) {
			m.mu.Unlock()
			return nil, err
		}
		if !errors.Is(err, ErrAuthMaterialMissing) {
			err = fmt.Errorf("%w: %w", ErrAuthMaterialMissing, err)
		}
		m.lastErr = err
		m.mu.Unlock()
		logs.Errorf(err, "session.Manager.Connect auth material unavailable location=%s", m.cfg.Location)
		return nil, err
	}

	abortCtx, abort := context.WithCancelCause(ctx)
	attemptCtx, stop := abortCtx, context.CancelFunc(func() {})
	if m.cfg.ConnectTimeout > 0 {
		attemptCtx, stop = context.WithTimeoutCause(abortCtx, m.cfg.ConnectTimeout, ErrConnectTimeout)
	}
	defer stop()
	defer abort(nil)

	sink := newEventSink()
	done := make(chan struct{})
	m.sink = sink
	m.lastErr = nil
	m.abort = func() { abort(ErrSessionClosed) }
	m.attemptDone = done
	m.transitionLocked(StateConnecting)
	m.mu.Unlock()

	logs.Infof("session.Manager.Connect connecting location=%s", auth.Location)
	handle, err := m.await(attemptCtx, auth, sink)

	m.mu.Lock()
	m.abort = nil
	m.attemptDone = nil
	m.mu.Unlock()
	close(done)
	return handle, err
}

func (m *Manager) await(ctx context.Context, auth AuthMaterial, sink *eventSink) (*Handle, error) {
	conn, err := m.dialer.Open(ctx, auth, sink)
	if err != nil {
		return nil, m.fail(rejected(err))
	}
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	for {
		select {
		case ev := <-sink.events:
			switch ev.Kind {
			case EventQR:
				logs.Warnf("session.Manager.Connect qr generated codes=%d; stored session is not paired", len(ev.Codes))
			case EventOpen:
				return m.open(sink), nil
			case EventClose:
				logs.Warnf("session.Manager.Connect closed before open reason=%v", ev.Reason)
				return nil, m.fail(rejected(ev.Reason))
			default:
				logs.Debugf("session.Manager.Connect ignoring event kind=%s", ev.Kind)
			}
		case <-ctx.Done():
			cause := context.Cause(ctx)
			switch {
			case errors.Is(cause, ErrConnectTimeout):
				return nil, m.fail(fmt.Errorf("%w: no lifecycle event within %s", ErrConnectTimeout, m.cfg.ConnectTimeout))
			case errors.Is(cause, ErrSessionClosed):
				return nil, m.fail(rejected(ErrSessionClosed))
			default:
				return nil, m.fail(fmt.Errorf("session: connect aborted: %w", cause))
			}
		}
	}
}

func (m *Manager) open(sink *eventSink) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionLocked(StateOpen)
	m.generation++
	m.openedAt = time.Now()
	h := &Handle{m: m, gen: m.generation, conn: m.conn}
	go m.watch(sink)
	logs.Infof("session.Manager.Connect open generation=%d", m.generation)
	return h
}

// watch drains post-open events until the sink is shut down.
func (m *Manager) watch(sink *eventSink) {
	for {
		select {
		case <-sink.done:
			return
		case ev := <-sink.events:
			if ev.Kind != EventClose {
				continue
			}
			reason := rejected(ev.Reason)
			m.mu.Lock()
			m.lastErr = reason
			m.mu.Unlock()
			logs.Warnf("session.Manager closed by network while open reason=%v", ev.Reason)
		}
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
	m.transitionLocked(StateFailed)
	return err
}

// Close releases the session if one exists and returns the manager to
// disconnected. It is safe to call in any state and never fails; errors from
// the underlying release are logged.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateConnecting && m.attemptDone != nil {
		abort, done := m.abort, m.attemptDone
		m.mu.Unlock()
		abort()
		<-done
		m.mu.Lock()
	}
	if m.releasing {
		m.mu.Unlock()
		return
	}
	switch m.state {
	case StateDisconnected, StateClosing:
		m.mu.Unlock()
		return
	case StateOpen:
		m.transitionLocked(StateClosing)
	}
	conn, sink := m.conn, m.sink
	m.conn, m.sink = nil, nil
	m.releasing = true
	m.generation++
	m.mu.Unlock()

	if sink != nil {
		sink.shutdown()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logs.Warnf("session.Manager.Close release failed: %v", err)
		}
	}

	m.mu.Lock()
	m.transitionLocked(StateDisconnected)
	m.releasing = false
	m.openedAt = time.Time{}
	m.mu.Unlock()
	logs.Infof("session.Manager.Close disconnected")
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{State: m.state, OpenedAt: m.openedAt}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

func (m *Manager) transitionLocked(to State) {
	from := m.state
	if !from.CanTransition(to) {
		logs.Error(transitionError(from, to), "session.Manager transition refused")
		return
	}
	m.state = to
	logs.Debugf("session.Manager transition from=%s to=%s", from, to)
	if m.cfg.OnTransition != nil {
		m.cfg.OnTransition(from, to)
	}
}

// Handle is a borrowed reference to the open session. It becomes unusable
// once the manager closes the session.
type Handle struct {
	m    *Manager
	gen  uint64
	conn Conn
}

func (h *Handle) usable() error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if h.m.state != StateOpen || h.m.generation != h.gen {
		return ErrSessionClosed
	}
	return nil
}

func (h *Handle) Resolve(ctx context.Context, raw string) ([]Identity, error) {
	if err := h.usable(); err != nil {
		return nil, err
	}
	return h.conn.Resolve(ctx, raw)
}

func (h *Handle) Send(ctx context.Context, to Identity, payload Payload) (string, error) {
	if err := h.usable(); err != nil {
		return "", err
	}
	return h.conn.Send(ctx, to, payload)
}

// WaitReady blocks on the connection's readiness signal. It returns
// ErrReadinessUnsupported when the connection has none.
func (h *Handle) WaitReady(ctx context.Context) error {
	if err := h.usable(); err != nil {
		return err
	}
	r, ok := h.conn.(Readier)
	if !ok {
		return ErrReadinessUnsupported
	}
	return r.WaitReady(ctx)
}
