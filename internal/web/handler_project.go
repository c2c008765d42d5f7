package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/layout"
	"github.com/vbonduro/dreamspace/internal/service"
	"github.com/vbonduro/dreamspace/internal/store"
)

const (
	maxJSONBody    = 1 << 20
	maxProjectName = 200
)

// ownerID identifies the caller. Authentication happens upstream; the proxy
// forwards the user id in X-User-Id.
func ownerID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}

type createProjectRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	RoomType         string `json:"room_type"`
	StylePreference  string `json:"style_preference"`
	ColorScheme      string `json:"color_scheme"`
	OriginalImageRef string `json:"original_image_ref"`
	IsPublic         bool   `json:"is_public"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Name) > maxProjectName {
		s.writeError(w, r, domain.Invalid("project name too long"))
		return
	}

	p, err := s.projects.CreateProject(r.Context(), service.CreateProjectInput{
		Name:             req.Name,
		Description:      req.Description,
		OwnerID:          ownerID(r),
		RoomType:         req.RoomType,
		StylePreference:  req.StylePreference,
		ColorScheme:      req.ColorScheme,
		OriginalImageRef: req.OriginalImageRef,
		IsPublic:         req.IsPublic,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, map[string]any{"success": true, "project": p})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := s.projects.ListProjects(r.Context(), ownerID(r), page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, p)
}

type updateProjectRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	StylePreference *string `json:"style_preference"`
	ColorScheme     *string `json:"color_scheme"`
	IsPublic        *bool   `json:"is_public"`
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name != nil && len(*req.Name) > maxProjectName {
		s.writeError(w, r, domain.Invalid("project name too long"))
		return
	}

	p, err := s.projects.UpdateProject(r.Context(), r.PathValue("id"), store.ProjectUpdate{
		Name:            req.Name,
		Description:     req.Description,
		StylePreference: req.StylePreference,
		ColorScheme:     req.ColorScheme,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"success": true, "project": p})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"success": true})
}

type addFurnitureRequest struct {
	FurnitureID string       `json:"furniture_id"`
	Name        string       `json:"name"`
	Position    *domain.Vec3 `json:"position"`
	Rotation    *domain.Vec3 `json:"rotation"`
	Scale       *domain.Vec3 `json:"scale"`
}

func (s *Server) handleAddFurniture(w http.ResponseWriter, r *http.Request) {
	var req addFurnitureRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entryID, snapshot, err := s.projects.AddFurniture(r.Context(), r.PathValue("id"), layout.Placement{
		FurnitureRef: req.FurnitureID,
		Name:         req.Name,
		Position:     req.Position,
		Rotation:     req.Rotation,
		Scale:        req.Scale,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success":          true,
		"entry_id":         entryID,
		"furniture_layout": snapshot,
	})
}

type updateFurnitureRequest struct {
	Position *domain.Vec3 `json:"position"`
	Rotation *domain.Vec3 `json:"rotation"`
	Scale    *domain.Vec3 `json:"scale"`
}

func (s *Server) handleUpdateFurniture(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseEntryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateFurnitureRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	entry, snapshot, err := s.projects.UpdateFurniture(r.Context(), r.PathValue("id"), entryID, layout.FurniturePatch{
		Position: req.Position,
		Rotation: req.Rotation,
		Scale:    req.Scale,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success":          true,
		"furniture":        entry,
		"furniture_layout": snapshot,
	})
}

func (s *Server) handleRemoveFurniture(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseEntryID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	removed, snapshot, err := s.projects.RemoveFurniture(r.Context(), r.PathValue("id"), entryID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success":           true,
		"removed_furniture": removed,
		"furniture_layout":  snapshot,
	})
}

// parseEntryID extracts the {entry_id} path variable.
func parseEntryID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("entry_id"), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.Invalid("entry id must be a positive integer")
	}
	return id, nil
}
