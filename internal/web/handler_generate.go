package web

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/service"
)

type generateRequest struct {
	ProjectID     string              `json:"project_id"`
	CanvasImage   string              `json:"canvas_image"`
	OriginalImage string              `json:"original_image"`
	Furniture     []domain.CanvasItem `json:"furniture"`
}

type generateResponse struct {
	Success      bool   `json:"success"`
	GenerationID string `json:"generation_id"`
	ImageRef     string `json:"generated_image_ref"`
	Prompt       string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, s.canvasBodyLimit(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	canvas, err := s.decodeCanvas(req.CanvasImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.generations.Generate(r.Context(), service.GenerateInput{
		ProjectID:        req.ProjectID,
		CanvasImage:      canvas,
		Furniture:        req.Furniture,
		OriginalImageRef: req.OriginalImage,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, generateResponse{
		Success:      true,
		GenerationID: result.GenerationID,
		ImageRef:     result.OutputRef,
		Prompt:       result.Prompt,
	})
}

type projectGenerateRequest struct {
	CanvasImage   string `json:"canvas_image"`
	OriginalImage string `json:"original_image"`
}

func (s *Server) handleGenerateForProject(w http.ResponseWriter, r *http.Request) {
	var req projectGenerateRequest
	if err := decodeJSON(w, r, s.canvasBodyLimit(), &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	canvas, err := s.decodeCanvas(req.CanvasImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.generations.GenerateForProject(r.Context(), r.PathValue("id"), canvas, req.OriginalImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, generateResponse{
		Success:      true,
		GenerationID: result.GenerationID,
		ImageRef:     result.OutputRef,
		Prompt:       result.Prompt,
	})
}

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	result, err := s.generations.GetGeneration(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, result)
}

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	if _, err := s.projects.GetProject(r.Context(), projectID); err != nil {
		s.writeError(w, r, err)
		return
	}
	results, err := s.generations.ListGenerations(r.Context(), projectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"generations": results})
}

// canvasBodyLimit allows for base64 expansion of a maximum-size canvas plus
// the rest of the request.
func (s *Server) canvasBodyLimit() int64 {
	return s.opts.MaxCanvasSize/3*4 + maxJSONBody
}

// decodeCanvas accepts a data URI ("data:image/png;base64,....") or bare
// base64, and checks the payload is an image.
func (s *Server) decodeCanvas(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, domain.Invalid("canvas_image is required")
	}
	if strings.HasPrefix(encoded, "data:") {
		_, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, domain.Invalid("canvas_image data URI has no payload")
		}
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, domain.Invalid("canvas_image is not valid base64")
	}
	if int64(len(data)) > s.opts.MaxCanvasSize {
		return nil, domain.Invalid("canvas_image exceeds %d bytes", s.opts.MaxCanvasSize)
	}
	if _, ok := allowedImageMIME(data); !ok {
		return nil, domain.Invalid("canvas_image is not a supported image")
	}
	return data, nil
}
