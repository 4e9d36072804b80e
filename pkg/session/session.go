// Package session implements the session lifecycle core of the gateway:
// a concurrent-safe store of active client sessions, the lifecycle manager
// that creates, extends, expires, and tears down sessions bound to MCP
// transports, a metrics recorder that attributes usage to sessions, and a
// background reaper that sweeps expired sessions.
package session

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// Sentinel errors returned by the lifecycle manager. Callers distinguish
// them with errors.Is and map them to protocol responses at the HTTP
// boundary.
var (
	// ErrInvalidArgument indicates caller misuse: an empty session id or
	// a nil transport.
	ErrInvalidArgument = errors.New("session: invalid argument")

	// ErrDuplicateSession indicates the session id already exists.
	// Creation is not an upsert; a concurrent loser receives this.
	ErrDuplicateSession = errors.New("session: duplicate session id")

	// ErrCapacityExceeded indicates the store has reached its configured
	// maximum number of sessions.
	ErrCapacityExceeded = errors.New("session: capacity exceeded")

	// ErrUserNotFound indicates the owning identity could not be resolved
	// from the request's authenticated context.
	ErrUserNotFound = errors.New("session: owner identity not resolved")

	// ErrSessionNotFound indicates a request referenced a session that
	// does not exist or has expired. Returned only on the routing path;
	// destroy and metrics operations treat unknown ids as no-ops.
	ErrSessionNotFound = errors.New("session: not found, reinitialize")
)

// Transport is the protocol transport bound to one client connection.
// The core treats it as a black box: it handles decoded requests and is
// closed exactly once, during session destruction.
type Transport interface {
	HandleRequest(w http.ResponseWriter, r *http.Request)
	Close() error
}

// Metrics holds per-session usage counters. Counters only increase for
// the lifetime of a session.
type Metrics struct {
	TotalInteractions   int64
	TotalToolCalls      int64
	ErrorCount          int64
	LastActivityAt      time.Time
	AverageResponseTime time.Duration
}

// Session represents one active client session. The record is owned by
// the Store; the Manager is the sole writer of the destroying latch, the
// expiry timer, and ExpiresAt.
type Session struct {
	// ID is the opaque unique session identifier, immutable for the
	// record's lifetime.
	ID string

	// UserID identifies the authenticated owner of the session.
	UserID string

	// Transport is exclusively owned by this record and closed exactly
	// once when the session is destroyed.
	Transport Transport

	// CreatedAt is when the session was established.
	CreatedAt time.Time

	// ExpiresAt is when the session expires. It only ever moves forward,
	// never backward, except at creation.
	ExpiresAt time.Time

	// mu guards the metrics substructure. Lifecycle state (destroying,
	// timer) is guarded by the Manager instead, so metrics recording can
	// interleave with a pending destroy without corrupting lifecycle
	// state.
	mu      sync.Mutex
	metrics Metrics

	// destroying is a one-way latch set by the Manager before any
	// teardown step runs. Once set the record will be removed from the
	// store and never reused.
	destroying bool

	// timer fires destruction when the TTL elapses. Cancelled on any
	// path that destroys or extends the session.
	timer *time.Timer
}

// MetricsSnapshot returns a copy of the session's usage counters.
func (s *Session) MetricsSnapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
