package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduitcms/composer/internal/config"
	"github.com/conduitcms/composer/internal/editor"
	"github.com/conduitcms/composer/internal/logging"
	"github.com/conduitcms/composer/internal/patterns"
	"github.com/conduitcms/composer/internal/registry"
	"github.com/conduitcms/composer/internal/types"
)

type unreachableStore struct{}

func (unreachableStore) FetchPattern(ctx context.Context, patternID string) (*types.Pattern, error) {
	return nil, patterns.ErrPatternNotFound
}

func newTestServer(t *testing.T) *EditorServer {
	t.Helper()

	reg := registry.NewBlockRegistry()
	reg.Register(&registry.BlockDefinition{
		Type:   "text",
		Name:   "Text",
		Schema: types.FieldSchema{{Name: "content", Type: types.FieldTextarea}},
		Render: func(ctx context.Context, props map[string]any) (string, error) {
			content, _ := props["content"].(string)
			return "<p>" + content + "</p>", nil
		},
	})

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0},
	}

	return New(
		cfg,
		logging.NopLogger{},
		reg,
		patterns.NewResolver(unreachableStore{}),
		editor.NewController(),
	)
}

func postCommand(t *testing.T, s *EditorServer, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/commands", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeCommandResponse(t *testing.T, rec *httptest.ResponseRecorder) commandResponse {
	t.Helper()

	var wrapper struct {
		Data commandResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wrapper))
	return wrapper.Data
}

func TestHandleCommands_AddBlock(t *testing.T) {
	s := newTestServer(t)

	rec := postCommand(t, s, map[string]any{"command": "addBlock", "blockType": "text"})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeCommandResponse(t, rec)
	require.Len(t, resp.Tree, 1)
	require.NotNil(t, resp.NewID)
	require.NotNil(t, resp.SelectedID)
	assert.Equal(t, *resp.NewID, *resp.SelectedID)
	assert.True(t, resp.Dirty)
}

func TestHandleCommands_FullEditingFlow(t *testing.T) {
	s := newTestServer(t)

	first := decodeCommandResponse(t, postCommand(t, s, map[string]any{"command": "addBlock", "blockType": "text"}))
	second := decodeCommandResponse(t, postCommand(t, s, map[string]any{"command": "addBlock", "blockType": "text"}))

	rec := postCommand(t, s, map[string]any{
		"command":    "updateProperties",
		"id":         *first.NewID,
		"properties": map[string]any{"content": "updated"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postCommand(t, s, map[string]any{
		"command": "reorder",
		"order":   []string{*second.NewID, *first.NewID},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCommandResponse(t, rec)
	assert.Equal(t, []string{*second.NewID, *first.NewID}, resp.Tree.IDs())
	assert.Equal(t, "updated", resp.Tree[1].Block.Properties["content"])
}

func TestHandleCommands_InvalidReorderRejected(t *testing.T) {
	s := newTestServer(t)
	added := decodeCommandResponse(t, postCommand(t, s, map[string]any{"command": "addBlock", "blockType": "text"}))

	rec := postCommand(t, s, map[string]any{
		"command": "reorder",
		"order":   []string{*added.NewID, "ghost"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghost")
}

func TestHandleCommands_UnknownCommand(t *testing.T) {
	s := newTestServer(t)

	rec := postCommand(t, s, map[string]any{"command": "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCommands_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/commands", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleBlocks_ListsDefinitions(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var wrapper struct {
		Data []struct {
			Type   string            `json:"type"`
			Name   string            `json:"name"`
			Fields types.FieldSchema `json:"fields"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wrapper))
	require.Len(t, wrapper.Data, 1)
	assert.Equal(t, "text", wrapper.Data[0].Type)
	require.Len(t, wrapper.Data[0].Fields, 1)
	assert.Equal(t, "content", wrapper.Data[0].Fields[0].Name)
}

func TestHandleSave_ValidationFailure(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/save", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")
}

func TestHandlePreviewFragment(t *testing.T) {
	s := newTestServer(t)
	added := decodeCommandResponse(t, postCommand(t, s, map[string]any{"command": "addBlock", "blockType": "text"}))

	payload, err := json.Marshal(map[string]any{
		"blocks":          added.Tree,
		"selectedBlockId": *added.NewID,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/preview/fragment", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "composer-canvas")
	assert.Contains(t, rec.Body.String(), "composer-element--selected")
}

func TestHandleDraft_Snapshot(t *testing.T) {
	s := newTestServer(t)
	postCommand(t, s, map[string]any{"command": "setMeta", "title": "Home", "slug": "home"})

	req := httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var wrapper struct {
		Data struct {
			Draft types.PageDraft `json:"draft"`
			Dirty bool            `json:"dirty"`
			State string          `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wrapper))
	assert.Equal(t, "Home", wrapper.Data.Draft.Title)
	assert.Equal(t, "ready", wrapper.Data.State)
	assert.True(t, wrapper.Data.Dirty)
}

func TestOriginValidator(t *testing.T) {
	v := originValidator{host: "localhost", port: 8090, allowed: []string{"https://studio.example"}}

	assert.True(t, v.IsAllowedOrigin("http://localhost:8090"))
	assert.True(t, v.IsAllowedOrigin("https://studio.example"))
	assert.False(t, v.IsAllowedOrigin("https://evil.example"))
}
