// Package middleware provides MCP protocol-level middleware for the
// gateway: structured request logging and per-session usage metrics.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxlink/mcp-voice-gateway/pkg/mcpcontext"
	"github.com/voxlink/mcp-voice-gateway/pkg/session"
)

const methodToolsCall = "tools/call"

// MCPLoggingMiddleware logs every MCP method call with its duration and
// outcome. Tool calls are logged at info level, other methods at debug.
func MCPLoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{
				"method", method,
				"duration", duration,
				"session_id", mcpcontext.SessionID(ctx),
			}
			if tool := extractToolName(req); tool != "" {
				attrs = append(attrs, "tool", tool)
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}

			if method == methodToolsCall {
				logger.Info("mcp: request", attrs...)
			} else {
				logger.Debug("mcp: request", attrs...)
			}
			return result, err
		}
	}
}

// MCPSessionMetricsMiddleware attributes tool calls and errors to the
// gateway session carried on the context. Requests without a session id
// (stdio transport) are passed through untouched.
func MCPSessionMetricsMiddleware(recorder *session.Recorder) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			sessionID := mcpcontext.SessionID(ctx)
			if sessionID == "" {
				return result, err
			}

			recorder.RecordToolCall(sessionID, duration)
			if err != nil || isErrorResult(result) {
				recorder.RecordError(sessionID)
			}
			return result, err
		}
	}
}

// extractToolName returns the tool name for tools/call requests.
func extractToolName(req mcp.Request) string {
	if ctr, ok := req.(*mcp.CallToolRequest); ok && ctr.Params != nil {
		return ctr.Params.Name
	}
	return ""
}

// isErrorResult reports whether a tool call completed with a
// protocol-level error result.
func isErrorResult(result mcp.Result) bool {
	ctr, ok := result.(*mcp.CallToolResult)
	return ok && ctr.IsError
}
