package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxlink/mcp-voice-gateway/pkg/voxlink"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	}
}

func TestParseTemplateVars(t *testing.T) {
	vars, err := parseTemplateVars(voicemailTemplateURI, "voxlink://mailbox/101/voicemail/v1")
	require.NoError(t, err)
	assert.Equal(t, "101", vars["mailbox"])
	assert.Equal(t, "v1", vars["id"])
}

func TestParseTemplateVars_NoMatch(t *testing.T) {
	_, err := parseTemplateVars(voicemailTemplateURI, "voxlink://other/thing")
	assert.Error(t, err)
}

func TestVoicemailResource(t *testing.T) {
	tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mailboxes/101/voicemails/v1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(voxlink.Voicemail{
			ID:         "v1",
			Mailbox:    "101",
			Transcript: "meeting moved to three",
		})
	})

	uri := "voxlink://mailbox/101/voicemail/v1"
	result, err := tk.handleVoicemailResource(context.Background(), readRequest(uri))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, uri, result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	assert.Contains(t, result.Contents[0].Text, "meeting moved to three")
}

func TestVoicemailResource_NotFound(t *testing.T) {
	tk := newTestToolkit(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no such voicemail"})
	})

	_, err := tk.handleVoicemailResource(context.Background(), readRequest("voxlink://mailbox/101/voicemail/nope"))
	assert.Error(t, err)
}

func TestVoicemailResource_BadURI(t *testing.T) {
	tk := newTestToolkit(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("request must not reach the server")
	})

	_, err := tk.handleVoicemailResource(context.Background(), readRequest("voxlink://unrelated"))
	assert.Error(t, err)
}

func TestFolderMessagesResource(t *testing.T) {
	tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "support", r.URL.Query().Get("folder"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{{"id": "m1", "folder": "support"}},
		})
	})

	result, err := tk.handleFolderMessagesResource(context.Background(), readRequest("voxlink://folder/support/messages"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Contains(t, result.Contents[0].Text, "support")
}
