// Package tools registers the VoxLink platform's messaging and voice
// operations as MCP tools and resources. The handlers are uniform thin
// adapters over the REST client; all session and transport policy lives
// in the session package.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/voxlink/mcp-voice-gateway/pkg/voxlink"
)

const defaultListLimit = 50

// Toolkit registers VoxLink tools on an MCP server.
type Toolkit struct {
	client *voxlink.Client
}

// New creates a toolkit over the VoxLink client.
func New(client *voxlink.Client) *Toolkit {
	return &Toolkit{client: client}
}

// Register adds all VoxLink tools and resource templates to the server.
func (t *Toolkit) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_messages_list",
		Description: "List messages, optionally filtered by folder. Returns the most recent messages first.",
	}, t.handleMessagesList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_message_send",
		Description: "Send a chat or SMS message to a phone number or extension.",
	}, t.handleMessageSend)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_voicemails_list",
		Description: "List voicemails in a mailbox, including transcripts where available.",
	}, t.handleVoicemailsList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_folders_list",
		Description: "List message folders with their message counts.",
	}, t.handleFoldersList)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_folder_create",
		Description: "Create a new message folder.",
	}, t.handleFolderCreate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "voxlink_calls_list",
		Description: "List recent call history entries including missed calls.",
	}, t.handleCallsList)

	t.registerResourceTemplates(server)
}

type messagesListInput struct {
	Folder string `json:"folder,omitempty" jsonschema:"folder name to filter by"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of messages to return"`
}

func (t *Toolkit) handleMessagesList(ctx context.Context, _ *mcp.CallToolRequest, args messagesListInput) (*mcp.CallToolResult, any, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	messages, err := t.client.ListMessages(ctx, args.Folder, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]any{"messages": messages, "count": len(messages)})
}

type messageSendInput struct {
	To     string `json:"to" jsonschema:"destination phone number or extension"`
	Body   string `json:"body" jsonschema:"message text"`
	Folder string `json:"folder,omitempty" jsonschema:"folder to file the message under"`
}

func (t *Toolkit) handleMessageSend(ctx context.Context, _ *mcp.CallToolRequest, args messageSendInput) (*mcp.CallToolResult, any, error) {
	msg, err := t.client.SendMessage(ctx, voxlink.SendMessageRequest{
		To:     args.To,
		Body:   args.Body,
		Folder: args.Folder,
	})
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(msg)
}

type voicemailsListInput struct {
	Mailbox string `json:"mailbox" jsonschema:"mailbox number, e.g. an extension"`
}

func (t *Toolkit) handleVoicemailsList(ctx context.Context, _ *mcp.CallToolRequest, args voicemailsListInput) (*mcp.CallToolResult, any, error) {
	voicemails, err := t.client.ListVoicemails(ctx, args.Mailbox)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]any{"voicemails": voicemails, "count": len(voicemails)})
}

type foldersListInput struct{}

func (t *Toolkit) handleFoldersList(ctx context.Context, _ *mcp.CallToolRequest, _ foldersListInput) (*mcp.CallToolResult, any, error) {
	folders, err := t.client.ListFolders(ctx)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]any{"folders": folders, "count": len(folders)})
}

type folderCreateInput struct {
	Name string `json:"name" jsonschema:"name for the new folder"`
}

func (t *Toolkit) handleFolderCreate(ctx context.Context, _ *mcp.CallToolRequest, args folderCreateInput) (*mcp.CallToolResult, any, error) {
	folder, err := t.client.CreateFolder(ctx, args.Name)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(folder)
}

type callsListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of call records to return"`
}

func (t *Toolkit) handleCallsList(ctx context.Context, _ *mcp.CallToolRequest, args callsListInput) (*mcp.CallToolResult, any, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	calls, err := t.client.ListCalls(ctx, limit)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(map[string]any{"calls": calls, "count": len(calls)})
}

// jsonResult renders a value as a JSON text content result.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

// errorResult reports an upstream failure as a tool error, not a Go
// error, so the protocol surfaces it to the model.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + err.Error()},
		},
		IsError: true,
	}
}
