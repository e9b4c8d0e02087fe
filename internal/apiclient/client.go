// Package apiclient talks to the Flow API over HTTP. It implements the
// collaborators the editor needs: flow persistence, reference lists and
// file uploads.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/persistence"
	"whatsapp-flow-editor/internal/schema"
	"whatsapp-flow-editor/pkg/models"
)

// Client is a Flow API client.
type Client struct {
	BaseURL        string
	Token          string
	OrganizationID string
	UserID         string
	HTTP           *http.Client
}

// New returns a client for baseURL.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) sendRequest(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		if r, ok := body.(io.Reader); ok {
			bodyReader = r
		} else {
			jsonData, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			bodyReader = bytes.NewBuffer(jsonData)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &persistence.APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return respBody, responseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// responseError maps a failed response. 409 is the active-flow conflict;
// its reason is kept verbatim.
func responseError(status int, body []byte) error {
	var e models.ErrorResponse
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	if status == http.StatusConflict {
		return &persistence.ConflictError{Reason: msg}
	}
	return &persistence.APIError{Status: status, Message: msg}
}

// List returns the flows of an organization.
func (c *Client) List(ctx context.Context, organizationID string) ([]flow.Flow, error) {
	q := url.Values{"organization_id": {organizationID}}
	resp, err := c.sendRequest(ctx, http.MethodGet, "/api/flows?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var payloads []models.FlowPayload
	if err := json.Unmarshal(resp, &payloads); err != nil {
		return nil, fmt.Errorf("decode flows: %w", err)
	}
	out := make([]flow.Flow, len(payloads))
	for i, p := range payloads {
		out[i] = *p.ToFlow()
	}
	return out, nil
}

// Get returns one flow.
func (c *Client) Get(ctx context.Context, id string) (*flow.Flow, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, "/api/flows/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	var p models.FlowPayload
	if err := json.Unmarshal(resp, &p); err != nil {
		return nil, fmt.Errorf("decode flow: %w", err)
	}
	return p.ToFlow(), nil
}

// Save creates or updates a flow.
func (c *Client) Save(ctx context.Context, f *flow.Flow) (*flow.Flow, error) {
	p := models.FromFlow(f)
	if p.UserID == "" {
		p.UserID = c.UserID
	}
	resp, err := c.sendRequest(ctx, http.MethodPost, "/api/flows", p, nil)
	if err != nil {
		return nil, err
	}
	var saved models.FlowPayload
	if err := json.Unmarshal(resp, &saved); err != nil {
		return nil, fmt.Errorf("decode saved flow: %w", err)
	}
	return saved.ToFlow(), nil
}

// Delete removes a flow.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.sendRequest(ctx, http.MethodDelete, "/api/flows/"+url.PathEscape(id), nil, nil)
	return err
}

// SetActive activates or deactivates a flow.
func (c *Client) SetActive(ctx context.Context, id string, active bool) error {
	_, err := c.sendRequest(ctx, http.MethodPost, "/api/flows/"+url.PathEscape(id)+"/toggle", models.ToggleRequest{Ativo: active}, nil)
	return err
}

// References returns the client as a refdata.Source.
func (c *Client) References() *ReferenceSource {
	return &ReferenceSource{c: c}
}

// ReferenceSource reads the agent, department, team and AI agent lists.
type ReferenceSource struct {
	c *Client
}

// List fetches one reference list.
func (r *ReferenceSource) List(ctx context.Context, entity blocks.Entity, organizationID string) ([]schema.Reference, error) {
	path, ok := models.ReferencePaths[entity]
	if !ok {
		return nil, fmt.Errorf("unknown reference entity %q", entity)
	}
	q := url.Values{"organization_id": {organizationID}}
	resp, err := r.c.sendRequest(ctx, http.MethodGet, "/api/"+path+"?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}
	var items []models.ReferenceItem
	if err := json.Unmarshal(resp, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	out := make([]schema.Reference, len(items))
	for i, it := range items {
		out[i] = schema.Reference{ID: it.ID, Name: it.Name}
	}
	return out, nil
}

// Upload sends a file as multipart form data and returns its token.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if c.OrganizationID != "" {
		writer.WriteField("organization_id", c.OrganizationID)
	}
	writer.Close()

	resp, err := c.sendRequest(ctx, http.MethodPost, "/api/uploads", body, map[string]string{
		"Content-Type": writer.FormDataContentType(),
	})
	if err != nil {
		return "", err
	}

	var up models.UploadResponse
	if err := json.Unmarshal(resp, &up); err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	}
	if up.Token == "" {
		return "", fmt.Errorf("upload %s: empty token", filename)
	}
	return up.Token, nil
}
