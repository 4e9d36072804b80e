// Package health tracks gateway readiness and serves the probe endpoints.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Readiness states.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// SessionCounter reports the number of live sessions. Satisfied by the
// session manager.
type SessionCounter interface {
	Count() int
}

// Checker tracks gateway readiness. Safe for concurrent use.
type Checker struct {
	state    atomic.Int32
	sessions SessionCounter
}

// NewChecker creates a Checker in the starting state. sessions may be
// nil when no session layer is running (stdio transport).
func NewChecker(sessions SessionCounter) *Checker {
	return &Checker{sessions: sessions}
}

// SetReady marks the gateway ready to accept sessions.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining marks the gateway as shutting down. New sessions should
// go elsewhere while existing ones drain.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady reports whether the gateway accepts new sessions.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

type probeResponse struct {
	Status   string `json:"status"`
	Sessions *int   `json:"sessions,omitempty"`
}

// LivenessHandler always responds 200 OK. Use for livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, probeResponse{Status: "ok"})
	}
}

// ReadinessHandler responds 200 when ready and 503 when starting or
// draining, with the live session count. Use for readinessProbe (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := probeResponse{Status: c.State()}
		if c.sessions != nil {
			n := c.sessions.Count()
			resp.Sessions = &n
		}

		code := http.StatusOK
		if !c.IsReady() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
