package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trititantech/server/pkg/db"
)

type fakeDatabase struct {
	pingErr error
	closed  atomic.Bool
}

func (f *fakeDatabase) InsertRecord(context.Context, db.Record) (string, error) { return "id", nil }
func (f *fakeDatabase) ListRecords(context.Context) ([]db.Record, error)        { return nil, nil }
func (f *fakeDatabase) CountRecords(context.Context) (int64, error)             { return 0, nil }
func (f *fakeDatabase) Ping(context.Context) error                              { return f.pingErr }
func (f *fakeDatabase) Close(context.Context) error {
	f.closed.Store(true)
	return nil
}

type countingDialer struct {
	calls   atomic.Int32
	release chan struct{}
	err     error

	mu      sync.Mutex
	handles []*fakeDatabase
	notify  func(error)
}

func (c *countingDialer) dial(ctx context.Context, notify func(error)) (db.Database, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}

	h := &fakeDatabase{}
	c.mu.Lock()
	c.handles = append(c.handles, h)
	c.notify = notify
	c.mu.Unlock()
	return h, nil
}

func (c *countingDialer) lastNotify() func(error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notify
}

func TestInitialState(t *testing.T) {
	m := NewManager((&countingDialer{}).dial, time.Second, nil)
	if got := m.State(); got != Disconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
	if m.LastError() != nil {
		t.Errorf("expected no last error, got %v", m.LastError())
	}
}

func TestEnsureConnectedIsIdempotent(t *testing.T) {
	d := &countingDialer{}
	m := NewManager(d.dial, time.Second, nil)

	first, err := m.EnsureConnected(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	second, err := m.EnsureConnected(context.Background())
	if err != nil {
		t.Fatalf("second connect: %v", err)
	}

	if first != second {
		t.Error("expected the same handle on repeated calls")
	}
	if calls := d.calls.Load(); calls != 1 {
		t.Errorf("expected 1 dial, got %d", calls)
	}
	if got := m.State(); got != Connected {
		t.Errorf("expected connected, got %s", got)
	}
}

func TestConcurrentEnsureConnectedDialsOnce(t *testing.T) {
	d := &countingDialer{release: make(chan struct{})}
	m := NewManager(d.dial, 5*time.Second, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.EnsureConnected(context.Background())
			errs <- err
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.State() != Connecting && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := m.State(); got != Connecting {
		t.Fatalf("expected connecting while the dial is blocked, got %s", got)
	}
	// give the remaining callers time to join the in-flight attempt
	time.Sleep(20 * time.Millisecond)
	close(d.release)

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls := d.calls.Load(); calls != 1 {
		t.Errorf("expected exactly 1 dial, got %d", calls)
	}
}

func TestDialFailureMovesToError(t *testing.T) {
	dialErr := errors.New("handshake rejected")
	d := &countingDialer{err: dialErr}
	m := NewManager(d.dial, time.Second, nil)

	_, err := m.EnsureConnected(context.Background())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("expected error to wrap the dial error, got %v", err)
	}
	if got := m.State(); got != Error {
		t.Errorf("expected error state, got %s", got)
	}
	if !errors.Is(m.LastError(), dialErr) {
		t.Errorf("expected last error to be the dial error, got %v", m.LastError())
	}

	// error -> connecting retries from scratch
	d.err = nil
	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls := d.calls.Load(); calls != 2 {
		t.Errorf("expected 2 dials, got %d", calls)
	}
	if got := m.State(); got != Connected {
		t.Errorf("expected connected after retry, got %s", got)
	}
}

func TestConnectTimeout(t *testing.T) {
	d := &countingDialer{release: make(chan struct{})}
	defer close(d.release)
	m := NewManager(d.dial, 20*time.Millisecond, nil)

	_, err := m.EnsureConnected(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if got := m.State(); got != Error {
		t.Errorf("expected error state, got %s", got)
	}
}

func TestCallerContextCancelled(t *testing.T) {
	d := &countingDialer{release: make(chan struct{})}
	m := NewManager(d.dial, 5*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.EnsureConnected(ctx)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled ConnectionError, got %v", err)
	}

	// the shared attempt keeps going for other callers
	close(d.release)
	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if calls := d.calls.Load(); calls != 1 {
		t.Errorf("expected 1 dial, got %d", calls)
	}
}

func TestAsyncFailureNotification(t *testing.T) {
	d := &countingDialer{}
	m := NewManager(d.dial, time.Second, nil)

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	stale := d.lastNotify()

	lost := errors.New("network drop")
	stale(lost)
	if got := m.State(); got != Error {
		t.Fatalf("expected error after notification, got %s", got)
	}
	if !errors.Is(m.LastError(), lost) {
		t.Errorf("expected last error %v, got %v", lost, m.LastError())
	}

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !d.handles[0].closed.Load() {
		t.Error("expected the stale handle to be closed on reconnect")
	}

	// a notification from the superseded handle is ignored
	stale(errors.New("late event"))
	if got := m.State(); got != Connected {
		t.Errorf("expected stale notification to be ignored, got %s", got)
	}
}

func TestPingFailureMarksError(t *testing.T) {
	handle := &fakeDatabase{}
	m := NewManager(func(context.Context, func(error)) (db.Database, error) {
		return handle, nil
	}, time.Second, nil)

	if err := m.Ping(context.Background()); err != nil {
		t.Fatalf("ping while disconnected should be a no-op, got %v", err)
	}

	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	handle.pingErr = errors.New("socket closed")
	if err := m.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if got := m.State(); got != Error {
		t.Errorf("expected error state, got %s", got)
	}
}

func TestClose(t *testing.T) {
	d := &countingDialer{}
	m := NewManager(d.dial, time.Second, nil)

	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close without handle: %v", err)
	}
	if _, err := m.EnsureConnected(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !d.handles[0].closed.Load() {
		t.Error("expected handle to be closed")
	}
	if got := m.State(); got != Disconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
}

func TestCloseDuringConnect(t *testing.T) {
	d := &countingDialer{release: make(chan struct{})}
	m := NewManager(d.dial, time.Second, nil)

	errs := make(chan error, 1)
	go func() {
		_, err := m.EnsureConnected(context.Background())
		errs <- err
	}()

	for d.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	close(d.release)

	err := <-errs
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if got := m.State(); got != Disconnected {
		t.Errorf("expected disconnected after close, got %s", got)
	}

	deadline := time.Now().Add(time.Second)
	for {
		d.mu.Lock()
		closed := len(d.handles) == 1 && d.handles[0].closed.Load()
		d.mu.Unlock()
		if closed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handle dialed during close was never released")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Disconnected: "disconnected",
		Connecting:   "connecting",
		Connected:    "connected",
		Error:        "error",
		State(42):    "unknown(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
