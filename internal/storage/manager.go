package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/fileerr"
	"github.com/radif/ingest/internal/metrics"
)

var errScopeClosed = errors.New("storage connection was closed while dialing")

// Dialer builds a Connection bound to an authenticated session.
type Dialer func(ctx context.Context, s Session) (*Connection, error)

// State is the connection lifecycle state of a Manager.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy controls connection retries. Only transient failures are retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultRetryPolicy is three attempts, 100ms then 200ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     2 * time.Second,
	}
}

// Manager owns the storage connection for one scope (a process, a test). The
// first Connect dials; later calls return the cached connection.
type Manager struct {
	provider TokenProvider
	dial     Dialer
	policy   RetryPolicy
	logger   pslog.Logger
	metrics  *metrics.Metrics
	onRetry  func(attempt int, delay time.Duration)

	group singleflight.Group

	mu      sync.Mutex
	state   State
	conn    *Connection
	authErr error
	// gen is bumped by Close and Invalidate; a dial that started under an
	// older generation must not publish its result.
	gen uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetryPolicy overrides DefaultRetryPolicy. Zero fields keep their default.
func WithRetryPolicy(p RetryPolicy) ManagerOption {
	return func(m *Manager) {
		if p.MaxAttempts > 0 {
			m.policy.MaxAttempts = p.MaxAttempts
		}
		if p.InitialDelay > 0 {
			m.policy.InitialDelay = p.InitialDelay
		}
		if p.Multiplier > 0 {
			m.policy.Multiplier = p.Multiplier
		}
		if p.MaxDelay > 0 {
			m.policy.MaxDelay = p.MaxDelay
		}
	}
}

// WithManagerLogger sets the logger.
func WithManagerLogger(l pslog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithManagerMetrics sets the metrics sink.
func WithManagerMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mt }
}

// WithRetryObserver is called before each retry sleep with the number of the
// failed attempt and the delay about to be waited.
func WithRetryObserver(fn func(attempt int, delay time.Duration)) ManagerOption {
	return func(m *Manager) { m.onRetry = fn }
}

// NewManager returns an unconnected Manager.
func NewManager(provider TokenProvider, dial Dialer, opts ...ManagerOption) *Manager {
	m := &Manager{
		provider: provider,
		dial:     dial,
		policy:   DefaultRetryPolicy(),
		logger:   pslog.NoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect returns the scope's connection, dialing it on first use. Concurrent
// first callers share a single dial.
//
// An authentication failure is permanent: it is never retried and is returned
// by every later Connect until Close. A transient failure is retried per the
// policy; once retries are exhausted the next Connect starts over.
func (m *Manager) Connect(ctx context.Context) (*Connection, error) {
	m.mu.Lock()
	if m.conn != nil {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	if m.authErr != nil {
		err := m.authErr
		m.mu.Unlock()
		return nil, err
	}
	m.state = StateConnecting
	gen := m.gen
	m.mu.Unlock()

	ch := m.group.DoChan("connect-"+strconv.FormatUint(gen, 10), func() (any, error) {
		return m.connect(context.WithoutCancel(ctx), gen)
	})
	select {
	case <-ctx.Done():
		return nil, fileerr.Connection(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Connection), nil
	}
}

func (m *Manager) connect(ctx context.Context, gen uint64) (*Connection, error) {
	attempt := 0
	operation := func() (*Connection, error) {
		attempt++
		conn, err := m.attempt(ctx)
		if err == nil {
			m.metrics.ObserveConnectAttempt("ok")
			return conn, nil
		}
		if IsAuthFailure(err) {
			m.metrics.ObserveConnectAttempt("auth")
			return nil, backoff.Permanent(fileerr.Auth(err))
		}
		m.metrics.ObserveConnectAttempt("transient")
		return nil, fileerr.Connection(err)
	}

	policy := &backoff.ExponentialBackOff{
		InitialInterval:     m.policy.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          m.policy.Multiplier,
		MaxInterval:         m.policy.MaxDelay,
	}
	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(m.policy.MaxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			m.logger.Warn("storage.connect.retry",
				"attempt", attempt,
				"max_attempts", m.policy.MaxAttempts,
				"delay", delay,
				"error", err,
			)
			if m.onRetry != nil {
				m.onRetry(attempt, delay)
			}
		}),
	)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.logger.Warn("storage.connect.discarded", "attempts", attempt)
		if conn != nil {
			_ = conn.close()
		}
		return nil, fileerr.Connection(errScopeClosed)
	}
	defer m.mu.Unlock()
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		if fileerr.KindOf(err) == "" {
			err = fileerr.Connection(err)
		}
		m.state = StateFailed
		if fileerr.KindOf(err) == fileerr.KindAuth {
			m.authErr = err
		}
		m.logger.Error("storage.connect.failed", "attempts", attempt, "error", err)
		return nil, err
	}
	m.conn = conn
	m.state = StateConnected
	m.logger.Info("storage.connect.ok", "attempts", attempt, "workspace", conn.Workspace())
	return conn, nil
}

func (m *Manager) attempt(ctx context.Context) (*Connection, error) {
	if m.provider == nil || m.dial == nil {
		return nil, errors.New("storage manager is not configured")
	}
	session, err := m.provider.Exchange(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := m.dial(ctx, session)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.New("dialer returned no connection")
	}
	return conn, nil
}

// Invalidate drops conn if it is still the cached connection, forcing the next
// Connect to re-authenticate.
func (m *Manager) Invalidate(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conn != nil && m.conn == conn {
		m.conn = nil
		m.gen++
		m.state = StateUnconnected
		m.logger.Warn("storage.connect.invalidated", "workspace", conn.Workspace())
	}
}

// Close releases the connection and clears any sticky auth failure. A dial
// still in flight is abandoned: its connection is closed rather than cached.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.authErr = nil
	m.gen++
	m.state = StateUnconnected
	m.mu.Unlock()
	if conn != nil {
		return conn.close()
	}
	return nil
}
