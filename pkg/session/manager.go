package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voxlink/mcp-voice-gateway/pkg/telemetry"
)

const (
	// DefaultTTL is the session lifetime when the config leaves it unset.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxSessions bounds memory growth from abandoned or malicious
	// session floods when the config leaves it unset.
	DefaultMaxSessions = 1000
)

// ManagerConfig configures the lifecycle manager.
type ManagerConfig struct {
	// TTL is the default session lifetime. Defaults to DefaultTTL.
	TTL time.Duration

	// MaxSessions caps the number of live sessions. Defaults to
	// DefaultMaxSessions.
	MaxSessions int
}

// Manager owns all session lifecycle policy: when sessions may be
// created, reused, extended, or destroyed. It is the sole writer of the
// destroying latch, the expiry timer, and ExpiresAt.
//
// The manager's mutex serializes the check-then-insert of Create and the
// latch handling of Destroy and Extend. The store's own locking is not
// enough for those compound operations.
type Manager struct {
	mu        sync.Mutex
	store     *Store
	ttl       time.Duration
	max       int
	logger    *slog.Logger
	collector *telemetry.Collector
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store *Store, cfg ManagerConfig, logger *slog.Logger, collector *telemetry.Collector) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		ttl:       cfg.TTL,
		max:       cfg.MaxSessions,
		logger:    logger,
		collector: collector,
	}
}

// TTL returns the manager's default session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create allocates a session bound to the given transport, schedules its
// expiry timer, and inserts it into the store. A zero ttl uses the
// manager default. Creation is not an upsert: an existing id fails with
// ErrDuplicateSession.
func (m *Manager) Create(transport Transport, userID, sessionID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrUserNotFound
	}
	if sessionID == "" {
		return "", ErrInvalidArgument
	}
	if transport == nil {
		return "", ErrInvalidArgument
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	m.mu.Lock()
	if m.store.Has(sessionID) {
		m.mu.Unlock()
		return "", ErrDuplicateSession
	}
	if m.store.Count() >= m.max {
		m.mu.Unlock()
		return "", ErrCapacityExceeded
	}

	now := time.Now()
	sess := &Session{
		ID:        sessionID,
		UserID:    userID,
		Transport: transport,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	sess.metrics.LastActivityAt = now
	sess.timer = time.AfterFunc(ttl, func() {
		m.Destroy(sessionID)
	})

	if err := m.store.Set(sessionID, sess); err != nil {
		sess.timer.Stop()
		m.mu.Unlock()
		return "", err
	}
	count := m.store.Count()
	m.mu.Unlock()

	m.logger.Info("session: created",
		"session_id", sessionID,
		"user_id", userID,
		"ttl", ttl,
		"active_sessions", count,
	)
	m.collector.SessionCreated()
	return sessionID, nil
}

// Get retrieves a live session. Sessions whose destroying latch is set
// are reported as absent: closure and removal are a single logical
// transition to every observer outside Destroy itself.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.store.Get(sessionID)
	if !ok || sess.destroying {
		return nil, false
	}
	return sess, true
}

// Destroy tears down a session: latch, timer cancel, transport close,
// store removal, destroyed event, in that order. It is idempotent:
// unknown ids and sessions already being destroyed are silent no-ops, so
// a timer firing while an explicit DELETE races the same id never
// surfaces an error to either path. A transport close failure is logged
// and never leaves a zombie entry behind.
func (m *Manager) Destroy(sessionID string) {
	m.mu.Lock()
	sess, ok := m.store.Get(sessionID)
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("session: destroy of unknown session", "session_id", sessionID)
		return
	}
	if sess.destroying {
		m.mu.Unlock()
		m.logger.Debug("session: destroy already in progress", "session_id", sessionID)
		return
	}
	sess.destroying = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	m.mu.Unlock()

	// Close may block on I/O; the latch is already visible so concurrent
	// callers observe the session as gone.
	if err := sess.Transport.Close(); err != nil {
		m.logger.Warn("session: transport close failed",
			"session_id", sessionID, "error", err)
	}
	m.store.Delete(sessionID)

	final := sess.MetricsSnapshot()
	m.logger.Info("session: destroyed",
		"session_id", sessionID,
		"user_id", sess.UserID,
		"lifetime", time.Since(sess.CreatedAt),
		"total_interactions", final.TotalInteractions,
		"total_tool_calls", final.TotalToolCalls,
		"error_count", final.ErrorCount,
	)
	m.collector.SessionDestroyed()
}

// Extend pushes the session's expiry forward by ttl from now and
// reschedules the timer. It returns false if the session does not exist,
// is being destroyed, or ttl is not positive. ExpiresAt never moves
// backward: an extension shorter than the remaining lifetime is a no-op
// on the deadline but still counts as success.
func (m *Manager) Extend(sessionID string, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.store.Get(sessionID)
	if !ok || sess.destroying {
		return false
	}

	if sess.timer != nil {
		sess.timer.Stop()
	}
	if exp := time.Now().Add(ttl); exp.After(sess.ExpiresAt) {
		sess.ExpiresAt = exp
	}
	sess.timer = time.AfterFunc(time.Until(sess.ExpiresAt), func() {
		m.Destroy(sessionID)
	})

	m.logger.Debug("session: extended",
		"session_id", sessionID, "expires_at", sess.ExpiresAt)
	return true
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.store.Count()
}

// Shutdown destroys every live session. Individual destroy failures are
// handled inside Destroy and never abort the sweep. Called on process
// termination.
func (m *Manager) Shutdown() {
	snapshot := m.store.All()
	for id := range snapshot {
		m.Destroy(id)
	}
	m.logger.Info("session: shutdown complete", "destroyed", len(snapshot))
}
