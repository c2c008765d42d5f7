package service

import (
	"slices"
	"strings"
)

const maxStyleSuggestions = 5

var roomStyles = map[string][]string{
	"living_room": {"modern", "cozy", "entertainment"},
	"bedroom":     {"minimalist", "cozy", "romantic"},
	"kitchen":     {"modern", "functional", "clean"},
	"office":      {"minimalist", "professional", "functional"},
}

type StyleRequest struct {
	RoomType        string   `json:"room_type"`
	DetectedObjects []string `json:"detected_objects"`
	RoomWidth       float64  `json:"room_width"`
	RoomHeight      float64  `json:"room_height"`
}

type StyleScore struct {
	Style      string  `json:"style"`
	Score      int     `json:"score"`
	Confidence float64 `json:"confidence"`
}

type StyleSummary struct {
	RoomType               string  `json:"room_type"`
	EstimatedArea          float64 `json:"estimated_area"`
	ExistingFurnitureCount int     `json:"existing_furniture_count"`
	Recommendations        string  `json:"recommendations"`
}

type StyleSuggestion struct {
	Styles  []StyleScore `json:"suggested_styles"`
	Summary StyleSummary `json:"analysis_summary"`
}

// SuggestStyles ranks interior styles for a room. Every rule that fires
// votes for its styles; a style's score is its vote count and its
// confidence is the score over all votes cast. Ties keep the order in
// which styles first received a vote.
func SuggestStyles(req StyleRequest) StyleSuggestion {
	roomType := req.RoomType
	if roomType == "" {
		roomType = "living_room"
	}
	area := req.RoomWidth * req.RoomHeight

	var votes []string
	switch {
	case area > 200000:
		votes = append(votes, "modern", "classic", "luxurious")
	case area > 100000:
		votes = append(votes, "modern", "minimalist", "scandinavian")
	default:
		votes = append(votes, "minimalist", "compact", "scandinavian")
	}

	if slices.Contains(req.DetectedObjects, "couch") || slices.Contains(req.DetectedObjects, "chair") {
		votes = append(votes, "cozy")
	}
	if slices.Contains(req.DetectedObjects, "tv") {
		votes = append(votes, "entertainment")
	}

	if styles, ok := roomStyles[roomType]; ok {
		votes = append(votes, styles...)
	} else {
		votes = append(votes, "modern")
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range votes {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	slices.SortStableFunc(order, func(a, b string) int {
		return counts[b] - counts[a]
	})

	scores := make([]StyleScore, 0, maxStyleSuggestions)
	for _, style := range order[:min(len(order), maxStyleSuggestions)] {
		scores = append(scores, StyleScore{
			Style:      style,
			Score:      counts[style],
			Confidence: min(float64(counts[style])/float64(len(votes)), 1),
		})
	}

	top := order[:min(len(order), 3)]
	return StyleSuggestion{
		Styles: scores,
		Summary: StyleSummary{
			RoomType:               roomType,
			EstimatedArea:          area,
			ExistingFurnitureCount: len(req.DetectedObjects),
			Recommendations:        "Suggested styles: " + strings.Join(top, ", "),
		},
	}
}
