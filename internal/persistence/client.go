// Package persistence implements the REST client for the page persistence
// gateway. The gateway is an external collaborator: this package only
// serializes drafts over the wire and maps failures into the persistence
// error taxonomy. A failed save never touches the caller's in-memory draft.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	composererrors "github.com/conduitcms/composer/internal/errors"
	"github.com/conduitcms/composer/internal/types"
)

// Client talks to the persistence gateway REST API. Responses are wrapped
// {"data": …} on success; failures carry an error object with a
// human-readable message.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a gateway client against the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// draftPayload is the gateway wire shape of a page draft, entity fields
// flattened alongside the draft body.
type draftPayload struct {
	ID       string             `json:"id,omitempty"`
	Title    string             `json:"title"`
	Slug     string             `json:"slug"`
	Status   types.PageStatus   `json:"status"`
	Blocks   types.ContentTree  `json:"blocks"`
	Settings types.PageSettings `json:"settings"`
}

// LoadDraft fetches a draft by id.
func (c *Client) LoadDraft(ctx context.Context, id string) (*types.PageDraft, error) {
	endpoint := fmt.Sprintf("%s/pages/%s", c.baseURL, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building load request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, composererrors.NewPersistenceError(
			composererrors.ErrCodeLoadFailed, "loading draft "+id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp, composererrors.ErrCodeLoadFailed)
	}

	return decodeDraft(resp)
}

// CreateDraft creates a new draft and returns the persisted version,
// including the gateway-assigned id.
func (c *Client) CreateDraft(ctx context.Context, draft *types.PageDraft) (*types.PageDraft, error) {
	return c.write(ctx, http.MethodPost, c.baseURL+"/pages", "", draft)
}

// UpdateDraft updates an existing draft.
func (c *Client) UpdateDraft(ctx context.Context, id string, draft *types.PageDraft) (*types.PageDraft, error) {
	endpoint := fmt.Sprintf("%s/pages/%s", c.baseURL, url.PathEscape(id))
	return c.write(ctx, http.MethodPatch, endpoint, id, draft)
}

func (c *Client) write(ctx context.Context, method, endpoint, id string, draft *types.PageDraft) (*types.PageDraft, error) {
	payload := draftPayload{
		ID:       id,
		Title:    draft.Title,
		Slug:     draft.Slug,
		Status:   draft.Status,
		Blocks:   draft.Content,
		Settings: draft.Settings,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding draft: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, composererrors.NewPersistenceError(
			composererrors.ErrCodeSaveFailed, "saving draft", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.apiError(resp, composererrors.ErrCodeSaveFailed)
	}

	return decodeDraft(resp)
}

// apiError maps a failure response into a persistence error carrying the
// gateway's human-readable message.
func (c *Client) apiError(resp *http.Response, code string) error {
	var apiErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error
	}
	if message == "" {
		message = resp.Status
	}

	return composererrors.NewPersistenceError(code, "gateway: "+message, nil).
		WithContext("status", resp.StatusCode)
}

func decodeDraft(resp *http.Response) (*types.PageDraft, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}

	var payload draftPayload
	if err := json.Unmarshal(wrapper.Data, &payload); err != nil {
		return nil, fmt.Errorf("decoding draft payload: %w", err)
	}

	// Keep unrecognized entity fields so nothing the gateway owns is lost
	// on the next write.
	var extra map[string]any
	_ = json.Unmarshal(wrapper.Data, &extra)
	for _, known := range []string{"title", "slug", "status", "blocks", "settings"} {
		delete(extra, known)
	}

	draft := &types.PageDraft{
		Title:        payload.Title,
		Slug:         payload.Slug,
		Status:       payload.Status,
		Content:      payload.Blocks,
		Settings:     payload.Settings,
		EntityFields: extra,
	}
	if draft.Content == nil {
		draft.Content = types.ContentTree{}
	}
	return draft, nil
}
