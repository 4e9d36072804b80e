// Package voxlink is a thin REST client for the VoxLink voice/messaging
// platform API. The gateway's MCP tools are uniform adapters over it.
package voxlink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config configures the VoxLink API client.
type Config struct {
	// BaseURL is the platform API root, e.g. "https://api.voxlink.example/v2".
	BaseURL string `yaml:"base_url"`

	// APIToken authenticates the gateway against the platform.
	APIToken string `yaml:"api_token"`

	// Timeout bounds each API request. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// Client calls the VoxLink REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voxlink: api error %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a VoxLink API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("voxlink: base_url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ListMessages returns messages, optionally filtered by folder.
func (c *Client) ListMessages(ctx context.Context, folder string, limit int) ([]Message, error) {
	q := url.Values{}
	if folder != "" {
		q.Set("folder", folder)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendMessage sends a message and returns the created record.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if req.To == "" || req.Body == "" {
		return nil, fmt.Errorf("voxlink: to and body are required")
	}

	var out Message
	if err := c.do(ctx, http.MethodPost, "/messages", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListVoicemails returns the voicemails in a mailbox.
func (c *Client) ListVoicemails(ctx context.Context, mailbox string) ([]Voicemail, error) {
	if mailbox == "" {
		return nil, fmt.Errorf("voxlink: mailbox is required")
	}

	var out struct {
		Voicemails []Voicemail `json:"voicemails"`
	}
	path := "/mailboxes/" + url.PathEscape(mailbox) + "/voicemails"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Voicemails, nil
}

// GetVoicemail fetches one voicemail with its transcript.
func (c *Client) GetVoicemail(ctx context.Context, mailbox, id string) (*Voicemail, error) {
	if mailbox == "" || id == "" {
		return nil, fmt.Errorf("voxlink: mailbox and id are required")
	}

	var out Voicemail
	path := "/mailboxes/" + url.PathEscape(mailbox) + "/voicemails/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListFolders returns all message folders.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var out struct {
		Folders []Folder `json:"folders"`
	}
	if err := c.do(ctx, http.MethodGet, "/folders", nil, &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

// CreateFolder creates a message folder.
func (c *Client) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	if name == "" {
		return nil, fmt.Errorf("voxlink: folder name is required")
	}

	var out Folder
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/folders", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCalls returns the most recent call history entries.
func (c *Client) ListCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Calls []CallRecord `json:"calls"`
	}
	if err := c.do(ctx, http.MethodGet, "/calls?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Calls, nil
}

// do performs one API request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("voxlink: marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("voxlink: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voxlink: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("voxlink: decoding response: %w", err)
	}
	return nil
}

// apiError extracts the platform's error message from a failed response.
func (c *Client) apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
