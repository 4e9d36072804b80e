package session

import (
	"log/slog"
	"time"

	"github.com/voxlink/mcp-voice-gateway/pkg/telemetry"
)

// interactionEmitInterval bounds log volume under high-frequency traffic:
// generic interactions only emit a metrics event every Nth occurrence.
// Tool calls and errors are high-signal and always emit.
const interactionEmitInterval = 10

// Recorder attributes usage to sessions without callers touching Session
// internals. All recording methods are no-ops when the session id does
// not resolve: a request racing a session's destruction must not crash
// the request pipeline.
type Recorder struct {
	manager   *Manager
	logger    *slog.Logger
	collector *telemetry.Collector
}

// NewRecorder creates a metrics recorder over the manager.
func NewRecorder(manager *Manager, logger *slog.Logger, collector *telemetry.Collector) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		manager:   manager,
		logger:    logger,
		collector: collector,
	}
}

// RecordInteraction counts one generic interaction. Every
// interactionEmitInterval-th interaction emits a metrics event.
func (r *Recorder) RecordInteraction(sessionID string) {
	sess, ok := r.manager.Get(sessionID)
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.metrics.TotalInteractions++
	sess.metrics.LastActivityAt = time.Now()
	snapshot := sess.metrics
	sess.mu.Unlock()

	if snapshot.TotalInteractions%interactionEmitInterval == 0 {
		r.emit(sess, snapshot)
	}
}

// RecordToolCall counts one tool call. A tool call is also an
// interaction. The call duration feeds the running average response
// time. Always emits a metrics event.
func (r *Recorder) RecordToolCall(sessionID string, duration time.Duration) {
	sess, ok := r.manager.Get(sessionID)
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.metrics.TotalToolCalls++
	sess.metrics.TotalInteractions++
	sess.metrics.LastActivityAt = time.Now()
	sess.metrics.AverageResponseTime +=
		(duration - sess.metrics.AverageResponseTime) / time.Duration(sess.metrics.TotalToolCalls)
	snapshot := sess.metrics
	sess.mu.Unlock()

	r.collector.ToolCall()
	r.emit(sess, snapshot)
}

// RecordError counts one error. Always emits a metrics event.
func (r *Recorder) RecordError(sessionID string) {
	sess, ok := r.manager.Get(sessionID)
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.metrics.ErrorCount++
	snapshot := sess.metrics
	sess.mu.Unlock()

	r.collector.ToolError()
	r.emit(sess, snapshot)
}

// emit logs a structured metrics event for the session.
func (r *Recorder) emit(sess *Session, m Metrics) {
	r.logger.Info("session: metrics",
		"session_id", sess.ID,
		"user_id", sess.UserID,
		"total_interactions", m.TotalInteractions,
		"total_tool_calls", m.TotalToolCalls,
		"error_count", m.ErrorCount,
		"avg_response_time", m.AverageResponseTime,
	)
}
