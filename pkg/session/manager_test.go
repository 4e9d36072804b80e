package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTTL        = 5 * time.Minute
	testShortTTL   = 50 * time.Millisecond
	testGoroutines = 10
	testUser       = "user-1"
	testSess1      = "sess-1"
)

// fakeTransport counts handled requests and close calls.
type fakeTransport struct {
	mu       sync.Mutex
	handled  int
	closes   int
	closeErr error
}

func (t *fakeTransport) HandleRequest(w http.ResponseWriter, _ *http.Request) {
	t.mu.Lock()
	t.handled++
	t.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closes++
	return t.closeErr
}

func (t *fakeTransport) closeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closes
}

func (t *fakeTransport) handledCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handled
}

// logCounter is a slog.Handler that counts records by message.
type logCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newLogCounter() *logCounter {
	return &logCounter{counts: make(map[string]int)}
}

func (c *logCounter) Enabled(context.Context, slog.Level) bool { return true }

func (c *logCounter) Handle(_ context.Context, rec slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[rec.Message]++
	return nil
}

func (c *logCounter) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *logCounter) WithGroup(string) slog.Handler      { return c }

func (c *logCounter) count(msg string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[msg]
}

func newTestManager(cfg ManagerConfig) (*Manager, *logCounter) {
	counter := newLogCounter()
	m := NewManager(NewStore(), cfg, slog.New(counter), nil)
	return m, counter
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})
	transport := &fakeTransport{}

	id, err := m.Create(transport, testUser, testSess1, testTTL)
	require.NoError(t, err)
	assert.Equal(t, testSess1, id)

	sess, ok := m.Get(testSess1)
	require.True(t, ok)
	assert.Equal(t, testUser, sess.UserID)
	assert.Equal(t, int64(0), sess.MetricsSnapshot().TotalInteractions)
	assert.True(t, sess.ExpiresAt.After(sess.CreatedAt))
}

func TestManager_CreateValidation(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	tests := []struct {
		name      string
		transport Transport
		userID    string
		sessionID string
		wantErr   error
	}{
		{"empty session id", &fakeTransport{}, testUser, "", ErrInvalidArgument},
		{"nil transport", nil, testUser, testSess1, ErrInvalidArgument},
		{"missing owner", &fakeTransport{}, "", testSess1, ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(tt.transport, tt.userID, tt.sessionID, testTTL)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, m.Count(), "store must be unchanged")
		})
	}
}

func TestManager_CreateDuplicate(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	_, err := m.Create(&fakeTransport{}, testUser, testSess1, testTTL)
	require.NoError(t, err)

	_, err = m.Create(&fakeTransport{}, testUser, testSess1, testTTL)
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, 1, m.Count())
}

func TestManager_CapacityExceeded(t *testing.T) {
	const maxSessions = 3
	m, _ := newTestManager(ManagerConfig{TTL: testTTL, MaxSessions: maxSessions})

	for _, id := range []string{"a", "b", "c"} {
		_, err := m.Create(&fakeTransport{}, testUser, id, testTTL)
		require.NoError(t, err)
	}

	_, err := m.Create(&fakeTransport{}, testUser, "d", testTTL)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, maxSessions, m.Count())
}

func TestManager_DestroyIdempotent(t *testing.T) {
	m, logs := newTestManager(ManagerConfig{TTL: testTTL})
	transport := &fakeTransport{}

	_, err := m.Create(transport, testUser, testSess1, testTTL)
	require.NoError(t, err)

	m.Destroy(testSess1)
	m.Destroy(testSess1)

	assert.Equal(t, 1, transport.closeCount(), "transport closed exactly once")
	assert.Equal(t, 1, logs.count("session: destroyed"), "exactly one destroyed event")
	_, ok := m.Get(testSess1)
	assert.False(t, ok)
}

func TestManager_DestroyUnknown(t *testing.T) {
	m, logs := newTestManager(ManagerConfig{TTL: testTTL})

	m.Destroy("nonexistent")

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, logs.count("session: destroyed"))
}

func TestManager_DestroyCloseFailure(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})
	transport := &fakeTransport{closeErr: errors.New("connection reset")}

	_, err := m.Create(transport, testUser, testSess1, testTTL)
	require.NoError(t, err)

	m.Destroy(testSess1)

	_, ok := m.Get(testSess1)
	assert.False(t, ok, "a failed close must not leave a zombie entry")
	assert.Equal(t, 0, m.Count())
}

func TestManager_TimerExpiry(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})
	transport := &fakeTransport{}

	_, err := m.Create(transport, testUser, testSess1, testShortTTL)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := m.Get(testSess1)
		return !ok
	}, time.Second, 10*time.Millisecond, "timer should destroy the session")
	assert.Equal(t, 1, transport.closeCount())
}

func TestManager_ExtendNeverShortens(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	_, err := m.Create(&fakeTransport{}, testUser, testSess1, time.Hour)
	require.NoError(t, err)

	sess, ok := m.Get(testSess1)
	require.True(t, ok)
	before := sess.ExpiresAt

	// Shorter than the remaining lifetime: deadline must not move back.
	assert.True(t, m.Extend(testSess1, time.Minute))
	sess, ok = m.Get(testSess1)
	require.True(t, ok)
	assert.False(t, sess.ExpiresAt.Before(before))

	// Longer than the remaining lifetime: deadline moves forward.
	assert.True(t, m.Extend(testSess1, 2*time.Hour))
	sess, ok = m.Get(testSess1)
	require.True(t, ok)
	assert.True(t, sess.ExpiresAt.After(before))
}

func TestManager_ExtendUnknown(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	assert.False(t, m.Extend("nonexistent", testTTL))
}

func TestManager_ExtendNonPositiveTTL(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	_, err := m.Create(&fakeTransport{}, testUser, testSess1, testTTL)
	require.NoError(t, err)

	assert.False(t, m.Extend(testSess1, 0))
	assert.False(t, m.Extend(testSess1, -time.Second))
}

func TestManager_ExtendKeepsCreatedAtAndMetrics(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	_, err := m.Create(&fakeTransport{}, testUser, testSess1, testTTL)
	require.NoError(t, err)

	sess, _ := m.Get(testSess1)
	createdAt := sess.CreatedAt

	recorder := NewRecorder(m, slog.New(newLogCounter()), nil)
	recorder.RecordInteraction(testSess1)

	require.True(t, m.Extend(testSess1, testTTL))

	sess, ok := m.Get(testSess1)
	require.True(t, ok)
	assert.Equal(t, createdAt, sess.CreatedAt)
	assert.Equal(t, int64(1), sess.MetricsSnapshot().TotalInteractions)
}

func TestManager_Shutdown(t *testing.T) {
	m, logs := newTestManager(ManagerConfig{TTL: testTTL})
	transports := make([]*fakeTransport, 0, 3)

	for _, id := range []string{"a", "b", "c"} {
		transport := &fakeTransport{}
		transports = append(transports, transport)
		_, err := m.Create(transport, testUser, id, testTTL)
		require.NoError(t, err)
	}

	m.Shutdown()

	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 3, logs.count("session: destroyed"))
	for _, transport := range transports {
		assert.Equal(t, 1, transport.closeCount())
	}
}

func TestManager_ConcurrentCreateSameID(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{TTL: testTTL})

	var wg sync.WaitGroup
	var mu sync.Mutex
	var created, duplicates int

	for range testGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Create(&fakeTransport{}, testUser, testSess1, testTTL)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicateSession):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one creation wins")
	assert.Equal(t, testGoroutines-1, duplicates)
	assert.Equal(t, 1, m.Count())
}

func TestManager_ConcurrentDestroy(t *testing.T) {
	m, logs := newTestManager(ManagerConfig{TTL: testTTL})
	transport := &fakeTransport{}

	_, err := m.Create(transport, testUser, testSess1, testTTL)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range testGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Destroy(testSess1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transport.closeCount())
	assert.Equal(t, 1, logs.count("session: destroyed"))
}

func TestManager_Defaults(t *testing.T) {
	m := NewManager(NewStore(), ManagerConfig{}, nil, nil)

	assert.Equal(t, DefaultTTL, m.TTL())

	_, err := m.Create(&fakeTransport{}, testUser, testSess1, 0)
	require.NoError(t, err)

	sess, ok := m.Get(testSess1)
	require.True(t, ok)
	assert.WithinDuration(t, sess.CreatedAt.Add(DefaultTTL), sess.ExpiresAt, time.Second)
}
