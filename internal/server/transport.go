package server

import (
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxlink/mcp-voice-gateway/pkg/session"
)

// streamableTransport serves one session's MCP traffic over streamable
// HTTP. The session router owns session identity, so the wrapped SDK
// handler runs stateless; this type only adds the closed-state guard the
// lifecycle layer needs.
type streamableTransport struct {
	handler http.Handler

	mu     sync.Mutex
	closed bool
}

// newTransportFactory builds per-session transports over the MCP server.
func newTransportFactory(mcpServer *mcp.Server) session.TransportFactory {
	return func(*http.Request) (session.Transport, error) {
		handler := mcp.NewStreamableHTTPHandler(
			func(*http.Request) *mcp.Server { return mcpServer },
			&mcp.StreamableHTTPOptions{Stateless: true},
		)
		return &streamableTransport{handler: handler}, nil
	}
}

// HandleRequest serves one HTTP request on this session's transport.
func (t *streamableTransport) HandleRequest(w http.ResponseWriter, r *http.Request) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()

	if closed {
		http.Error(w, "session closed", http.StatusGone)
		return
	}
	t.handler.ServeHTTP(w, r)
}

// Close marks the transport closed. Later requests get 410 Gone.
func (t *streamableTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Verify interface compliance.
var _ session.Transport = (*streamableTransport)(nil)
