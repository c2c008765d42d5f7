package web

import (
	"net/http"

	"github.com/vbonduro/dreamspace/internal/service"
)

type suggestStyleRequest struct {
	RoomType        string `json:"room_type"`
	DetectedObjects []struct {
		Name string `json:"name"`
	} `json:"detected_objects"`
	RoomDimensions struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"room_dimensions"`
}

func (s *Server) handleSuggestStyle(w http.ResponseWriter, r *http.Request) {
	var req suggestStyleRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	names := make([]string, 0, len(req.DetectedObjects))
	for _, obj := range req.DetectedObjects {
		names = append(names, obj.Name)
	}
	writeJSON(w, s.logger, http.StatusOK, service.SuggestStyles(service.StyleRequest{
		RoomType:        req.RoomType,
		DetectedObjects: names,
		RoomWidth:       req.RoomDimensions.Width,
		RoomHeight:      req.RoomDimensions.Height,
	}))
}
