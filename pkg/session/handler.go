package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/voxlink/mcp-voice-gateway/pkg/mcpcontext"
	"github.com/voxlink/mcp-voice-gateway/pkg/telemetry"
)

const (
	// SessionIDHeader is the MCP session header name.
	SessionIDHeader = "Mcp-Session-Id"

	// maxSniffBytes caps how much of the request body is read to detect
	// initialize requests.
	maxSniffBytes = 1 << 20

	// methodInitialize is the JSON-RPC method that opens an MCP session.
	methodInitialize = "initialize"
)

// Decision is the router's verdict for an inbound request.
type Decision int

const (
	// DecisionReuse routes the request to an existing session.
	DecisionReuse Decision = iota

	// DecisionCreate establishes a new session for the request.
	DecisionCreate

	// DecisionReject refuses the request: it references a session that
	// does not exist or has expired and is not an initialize request.
	DecisionReject
)

// IdentityResolver resolves the authenticated user id for a request.
// Authentication middleware runs before the router, so resolution is
// expected to succeed; a failure aborts session creation.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// TransportFactory builds the protocol transport for a new session.
type TransportFactory func(r *http.Request) (Transport, error)

// HandlerConfig configures the session router.
type HandlerConfig struct {
	Manager   *Manager
	Recorder  *Recorder
	Identity  IdentityResolver
	Factory   TransportFactory
	Logger    *slog.Logger
	Collector *telemetry.Collector
}

// Handler routes inbound HTTP traffic to per-session transports. Per
// request it decides whether to reuse an existing session, create one
// for an initialize request, or reject the request outright. Protocol
// decoding is the transport's job; the handler only manages the session
// binding.
type Handler struct {
	manager   *Manager
	recorder  *Recorder
	identity  IdentityResolver
	factory   TransportFactory
	logger    *slog.Logger
	collector *telemetry.Collector
}

// NewHandler creates the session router.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		manager:   cfg.Manager,
		recorder:  cfg.Recorder,
		identity:  cfg.Identity,
		factory:   cfg.Factory,
		logger:    logger,
		collector: cfg.Collector,
	}
}

// Resolve extracts or generates the session id for the request and
// decides how it will be handled. The request body may be consumed and
// restored to sniff for initialize requests.
func (h *Handler) Resolve(r *http.Request) (Decision, string) {
	sessionID := r.Header.Get(SessionIDHeader)
	if sessionID != "" {
		if _, ok := h.manager.Get(sessionID); ok {
			return DecisionReuse, sessionID
		}
	}

	if isInitialize(r) {
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		return DecisionCreate, sessionID
	}

	return DecisionReject, sessionID
}

// ServeHTTP dispatches the request based on session state.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.handleDelete(w, r)
		return
	}

	decision, sessionID := h.Resolve(r)
	switch decision {
	case DecisionReuse:
		h.handleReuse(w, r, sessionID)
	case DecisionCreate:
		h.handleCreate(w, r, sessionID)
	default:
		h.reject(w, sessionID)
	}
}

// handleReuse routes a request to its existing session after an
// ownership check.
func (h *Handler) handleReuse(w http.ResponseWriter, r *http.Request, sessionID string) {
	sess, ok := h.manager.Get(sessionID)
	if !ok {
		// Destroyed between Resolve and here.
		h.reject(w, sessionID)
		return
	}

	if !h.ownershipMatches(sess, r) {
		http.Error(w, "session ownership mismatch", http.StatusForbidden)
		return
	}

	h.recorder.RecordInteraction(sessionID)
	sess.Transport.HandleRequest(w, withSessionContext(r, sessionID))
}

// handleCreate establishes a new session for an initialize request and
// routes the request to its fresh transport.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, sessionID string) {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		h.logger.Warn("session: identity resolution failed", "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	transport, err := h.factory(r)
	if err != nil {
		h.logger.Error("session: transport creation failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if _, err := h.manager.Create(transport, userID, sessionID, 0); err != nil {
		h.closeQuietly(transport, sessionID)
		h.writeCreateError(w, sessionID, err)
		return
	}

	sw := &sessionIDWriter{ResponseWriter: w, sessionID: sessionID}
	r.Header.Set(SessionIDHeader, sessionID)
	h.recorder.RecordInteraction(sessionID)

	sess, ok := h.manager.Get(sessionID)
	if !ok {
		h.reject(w, sessionID)
		return
	}
	sess.Transport.HandleRequest(sw, withSessionContext(r, sessionID))
}

// handleDelete is the explicit client-initiated termination path: route
// the DELETE to the transport, then destroy the session. Termination is
// subject to the same ownership check as reuse; a session id alone does
// not grant the right to destroy it.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(SessionIDHeader)
	sess, ok := h.manager.Get(sessionID)
	if !ok {
		h.reject(w, sessionID)
		return
	}

	if !h.ownershipMatches(sess, r) {
		http.Error(w, "session ownership mismatch", http.StatusForbidden)
		return
	}

	sess.Transport.HandleRequest(w, withSessionContext(r, sessionID))
	h.manager.Destroy(sessionID)
}

// withSessionContext stamps the gateway session id onto the request
// context so MCP middleware downstream can attribute tool calls.
func withSessionContext(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(mcpcontext.WithSessionID(r.Context(), sessionID))
}

// reject refuses a request referencing an unknown or expired session. A
// client must not silently continue against a non-existent session.
func (h *Handler) reject(w http.ResponseWriter, sessionID string) {
	h.logger.Debug("session: rejected unknown session", "session_id", sessionID)
	h.collector.SessionRejected()
	http.Error(w, "session not found, reinitialize", http.StatusNotFound)
}

// writeCreateError maps lifecycle creation failures to HTTP responses.
func (h *Handler) writeCreateError(w http.ResponseWriter, sessionID string, err error) {
	h.logger.Warn("session: create failed", "session_id", sessionID, "error", err)
	switch {
	case errors.Is(err, ErrDuplicateSession):
		http.Error(w, "session already exists", http.StatusConflict)
	case errors.Is(err, ErrCapacityExceeded):
		http.Error(w, "session capacity exceeded, retry later", http.StatusServiceUnavailable)
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrUserNotFound):
		http.Error(w, "invalid session request", http.StatusBadRequest)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// ownershipMatches checks that the requester's identity matches the
// session owner. A request whose identity cannot be resolved never
// matches: every stored session has a non-empty owner.
func (h *Handler) ownershipMatches(sess *Session, r *http.Request) bool {
	userID, err := h.identity.Resolve(r)
	if err != nil {
		return false
	}
	return sess.UserID == userID
}

// closeQuietly closes a transport that never made it into the store.
func (h *Handler) closeQuietly(t Transport, sessionID string) {
	if err := t.Close(); err != nil {
		h.logger.Debug("session: orphan transport close failed",
			"session_id", sessionID, "error", err)
	}
}

// isInitialize reports whether the request body is a JSON-RPC initialize
// request. The body is restored for the downstream transport.
func isInitialize(r *http.Request) bool {
	if r.Body == nil {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}

	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Method == methodInitialize
}

// sessionIDWriter injects the Mcp-Session-Id header before the first
// write so clients of a fresh session learn their id.
type sessionIDWriter struct {
	http.ResponseWriter
	sessionID     string
	headerWritten bool
}

func (w *sessionIDWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.ResponseWriter.Header().Set(SessionIDHeader, w.sessionID)
		w.headerWritten = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionIDWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.ResponseWriter.Header().Set(SessionIDHeader, w.sessionID)
		w.headerWritten = true
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher for SSE streaming compatibility.
func (w *sessionIDWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
