package web

import (
	"net/http"
	"strconv"

	"github.com/vbonduro/dreamspace/internal/prompt"
	"github.com/vbonduro/dreamspace/internal/service"
	"github.com/vbonduro/dreamspace/internal/store"
)

type generateFurnitureRequest struct {
	Category     string `json:"category"`
	Style        string `json:"style"`
	Color        string `json:"color"`
	Material     string `json:"material"`
	CustomPrompt string `json:"custom_prompt"`
}

func (s *Server) handleGenerateFurniture(w http.ResponseWriter, r *http.Request) {
	var req generateFurnitureRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.furniture.GenerateFurniture(r.Context(), service.GenerateFurnitureInput{
		FurnitureSpec: prompt.FurnitureSpec{
			Category:     req.Category,
			Style:        req.Style,
			Color:        req.Color,
			Material:     req.Material,
			CustomPrompt: req.CustomPrompt,
		},
		CreatedBy: ownerID(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusCreated, map[string]any{
		"success":   true,
		"furniture": item,
	})
}

func (s *Server) handleFurnitureLibrary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	result, err := s.furniture.ListLibrary(r.Context(), store.FurnitureFilter{
		CreatedBy: ownerID(r),
		Category:  q.Get("category"),
		Style:     q.Get("style"),
	}, page, perPage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}
