package server

import (
	"encoding/json"
	"net/http"

	composererrors "github.com/conduitcms/composer/internal/errors"
	"github.com/conduitcms/composer/internal/renderer"
	"github.com/conduitcms/composer/internal/types"
)

// commandRequest is the JSON shape of one editor command.
type commandRequest struct {
	Command    string           `json:"command"`
	BlockType  string           `json:"blockType,omitempty"`
	AfterID    string           `json:"afterId,omitempty"`
	PatternID  string           `json:"patternId,omitempty"`
	ID         string           `json:"id,omitempty"`
	Order      []string         `json:"order,omitempty"`
	Properties map[string]any   `json:"properties,omitempty"`
	Title      *string          `json:"title,omitempty"`
	Slug       *string          `json:"slug,omitempty"`
	Status     types.PageStatus `json:"status,omitempty"`
}

// commandResponse reports the controller state after a command.
type commandResponse struct {
	Tree       types.ContentTree `json:"blocks"`
	SelectedID *string           `json:"selectedBlockId"`
	Dirty      bool              `json:"dirty"`
	NewID      *string           `json:"newId,omitempty"`
}

func (s *EditorServer) handleEditor(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(editorHTML)); err != nil {
		s.logger.Warn(r.Context(), err, "writing editor page")
	}
}

func (s *EditorServer) handleFramePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(renderer.FramePage())); err != nil {
		s.logger.Warn(r.Context(), err, "writing frame page")
	}
}

func (s *EditorServer) handleBlocks(w http.ResponseWriter, r *http.Request) {
	type blockInfo struct {
		Type   string            `json:"type"`
		Name   string            `json:"name"`
		Schema types.FieldSchema `json:"fields"`
	}

	all := s.registry.GetAll()
	blocks := make([]blockInfo, 0, len(all))
	for _, def := range all {
		blocks = append(blocks, blockInfo{Type: def.Type, Name: def.Name, Schema: def.Schema})
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": blocks})
}

func (s *EditorServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	draft := s.controller.Draft()
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"draft":           draft,
			"selectedBlockId": s.controller.SelectedID(),
			"dirty":           s.controller.Dirty(),
			"state":           s.controller.State().String(),
		},
	})
}

// handleCommands dispatches one mutation command to the controller.
// Structurally invalid input returns a structured rejection; missing ids
// are controller-level no-ops and still succeed.
func (s *EditorServer) handleCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid command payload: "+err.Error())
		return
	}

	var newID *string
	switch req.Command {
	case "addBlock":
		block := s.controller.AddBlock(req.BlockType, req.AfterID)
		newID = &block.ID
	case "addPatternReference":
		ref := s.controller.AddPatternReference(req.PatternID)
		newID = &ref.ID
	case "removeElement":
		s.controller.RemoveElement(req.ID)
	case "duplicateElement":
		newID = s.controller.DuplicateElement(req.ID)
	case "updateProperties":
		s.controller.UpdateProperties(req.ID, req.Properties)
	case "reorder":
		if err := s.controller.Reorder(req.Order); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	case "moveUp":
		s.controller.MoveUp(req.ID)
	case "moveDown":
		s.controller.MoveDown(req.ID)
	case "select":
		s.controller.Select(req.ID)
	case "clearSelection":
		s.controller.ClearSelection()
	case "setMeta":
		if req.Title != nil {
			s.controller.SetTitle(*req.Title)
		}
		if req.Slug != nil {
			s.controller.SetSlug(*req.Slug)
		}
		if req.Status != "" {
			s.controller.SetStatus(req.Status)
		}
	default:
		writeError(w, http.StatusBadRequest, "unknown command: "+req.Command)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": commandResponse{
		Tree:       s.controller.Tree(),
		SelectedID: s.controller.SelectedID(),
		Dirty:      s.controller.Dirty(),
		NewID:      newID,
	}})
}

// handleSave validates and persists the draft. Validation failures are
// reported per field and never reach the gateway.
func (s *EditorServer) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.controller.Save(r.Context()); err != nil {
		status := http.StatusBadGateway
		if !composererrors.IsPersistenceError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"saved": true}})
}

func (s *EditorServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	draft := s.controller.Draft()
	page := s.renderer.RenderPage(r.Context(), draft.Title, draft.Content, s.controller.SelectedID())

	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(page)); err != nil {
		s.logger.Warn(r.Context(), err, "writing preview page")
	}
}

// handlePreviewFragment renders a posted tree snapshot, used by the frame
// to turn full-state pushes into markup with the same projection logic as
// the host side.
func (s *EditorServer) handlePreviewFragment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Blocks          types.ContentTree `json:"blocks"`
		SelectedBlockID *string           `json:"selectedBlockId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preview payload: "+err.Error())
		return
	}

	fragment := s.renderer.RenderTree(r.Context(), req.Blocks, req.SelectedBlockID)
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write([]byte(fragment)); err != nil {
		s.logger.Warn(r.Context(), err, "writing preview fragment")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}
