package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"
)

// Resource template URI patterns.
const (
	voicemailTemplateURI      = "voxlink://mailbox/{mailbox}/voicemail/{id}"
	folderMessagesTemplateURI = "voxlink://folder/{folder}/messages"
)

// registerResourceTemplates registers the VoxLink MCP resource templates.
func (t *Toolkit) registerResourceTemplates(server *mcp.Server) {
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: voicemailTemplateURI,
		Name:        "Voicemail",
		Description: "A single voicemail with its transcript and metadata",
		MIMEType:    "application/json",
	}, t.handleVoicemailResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: folderMessagesTemplateURI,
		Name:        "Folder Messages",
		Description: "The messages filed under a folder",
		MIMEType:    "application/json",
	}, t.handleFolderMessagesResource)
}

// handleVoicemailResource handles voxlink://mailbox/{mailbox}/voicemail/{id}.
func (t *Toolkit) handleVoicemailResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(voicemailTemplateURI, uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	mailbox, id := vars["mailbox"], vars["id"]
	if mailbox == "" || id == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	vm, err := t.client.GetVoicemail(ctx, mailbox, id)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return marshalResourceResult(uri, vm)
}

// handleFolderMessagesResource handles voxlink://folder/{folder}/messages.
func (t *Toolkit) handleFolderMessagesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	vars, err := parseTemplateVars(folderMessagesTemplateURI, uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	folder := vars["folder"]
	if folder == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	messages, err := t.client.ListMessages(ctx, folder, defaultListLimit)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return marshalResourceResult(uri, map[string]any{
		"folder":   folder,
		"messages": messages,
	})
}

// parseTemplateVars extracts named variables from a URI using a URI
// template. Returns an error if the URI does not match the template.
func parseTemplateVars(templateStr, uri string) (map[string]string, error) {
	tmpl, err := uritemplate.New(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template %q: %w", templateStr, err)
	}

	match := tmpl.Match(uri)
	if match == nil {
		return nil, fmt.Errorf("uri %q does not match template %q", uri, templateStr)
	}

	result := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		result[name] = match.Get(name).String()
	}
	return result, nil
}

// marshalResourceResult renders a value as a JSON resource result.
func marshalResourceResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
