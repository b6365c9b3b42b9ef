// Package connection owns the lifecycle of the single store handle shared by
// every request.
//
// The handle moves through four states:
//
//	disconnected -> connecting -> connected
//	                    |             |
//	                    v             v
//	                  error <---------+
//
// Only a connect attempt and failure notifications for the live handle write
// the state. Concurrent EnsureConnected calls share one in-flight attempt.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/db"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultConnectTimeout = 30 * time.Second

	connectKey   = "connect"
	closeTimeout = 5 * time.Second
)

var errManagerClosed = errors.New("connection manager closed")

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// ConnectionError is returned when an attempt does not reach Connected.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Dialer opens a store handle. notify must be called by the handle whenever
// it observes a failure after the dial has returned.
type Dialer func(ctx context.Context, notify func(error)) (db.Database, error)

type Manager struct {
	dial    Dialer
	timeout time.Duration
	log     *logrus.Entry

	group singleflight.Group

	mu         sync.RWMutex
	state      State
	database   db.Database
	generation uint64
	lastErr    error
}

func NewManager(dial Dialer, timeout time.Duration, log *logrus.Entry) *Manager {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Manager{
		dial:    dial,
		timeout: timeout,
		log:     log.WithField("component", "connection"),
	}
}

// State is a non-blocking read of the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastError returns the failure that last moved the manager into Error.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// EnsureConnected returns the live handle, connecting first if needed.
func (m *Manager) EnsureConnected(ctx context.Context) (db.Database, error) {
	m.mu.RLock()
	if m.state == Connected {
		d := m.database
		m.mu.RUnlock()
		return d, nil
	}
	m.mu.RUnlock()

	ch := m.group.DoChan(connectKey, func() (interface{}, error) {
		return m.connect()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(db.Database), nil
	case <-ctx.Done():
		return nil, &ConnectionError{Err: ctx.Err()}
	}
}

// connect runs one attempt. The attempt is detached from any caller's context
// since other callers may be waiting on it.
func (m *Manager) connect() (db.Database, error) {
	m.mu.Lock()
	if m.state == Connected {
		d := m.database
		m.mu.Unlock()
		return d, nil
	}
	stale := m.database
	m.database = nil
	m.state = Connecting
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if stale != nil {
		m.closeHandle(stale)
	}

	m.log.WithField("attempt", gen).Info("creating new store connection")

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	database, err := m.dial(ctx, func(err error) { m.fail(gen, err) })
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		if database != nil {
			go m.closeHandle(database)
		}
		if err == nil {
			err = errManagerClosed
		}
		return nil, &ConnectionError{Err: err}
	}

	if err != nil {
		if database != nil {
			go m.closeHandle(database)
		}
		m.state = Error
		m.lastErr = err
		m.log.WithError(err).Error("store connection attempt failed")
		return nil, &ConnectionError{Err: err}
	}

	m.state = Connected
	m.database = database
	m.lastErr = nil
	m.log.Info("connected to store")
	return database, nil
}

// Notify records an asynchronous failure of the current handle.
func (m *Manager) Notify(err error) {
	m.mu.RLock()
	gen := m.generation
	m.mu.RUnlock()
	m.fail(gen, err)
}

func (m *Manager) fail(gen uint64, err error) {
	if err == nil {
		err = errors.New("store connection lost")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.state != Connected {
		return
	}

	m.state = Error
	m.lastErr = err
	m.log.WithError(err).Warn("store connection lost")
}

// Ping checks the live handle, if any, and records a failure on error.
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	if m.state != Connected {
		m.mu.RUnlock()
		return nil
	}
	d := m.database
	gen := m.generation
	m.mu.RUnlock()

	if err := d.Ping(ctx); err != nil {
		m.fail(gen, err)
		return err
	}
	return nil
}

// Close releases the handle. The manager returns to Disconnected.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	d := m.database
	m.database = nil
	m.state = Disconnected
	m.generation++
	m.mu.Unlock()

	if d == nil {
		return nil
	}
	return d.Close(ctx)
}

func (m *Manager) closeHandle(d db.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if err := d.Close(ctx); err != nil {
		m.log.WithError(err).Warn("unable to close stale store connection")
	}
}
