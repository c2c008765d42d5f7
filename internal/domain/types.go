package domain

import "time"

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlacedFurniture is one entry of a project's layout. EntryID is assigned on
// insertion and never reused within the project.
type PlacedFurniture struct {
	EntryID      int64     `json:"entry_id"`
	FurnitureRef string    `json:"furniture_id"`
	Name         string    `json:"name"`
	Position     Vec3      `json:"position"`
	Rotation     Vec3      `json:"rotation"`
	Scale        Vec3      `json:"scale"`
	PlacedAt     time.Time `json:"timestamp"`
}

type Project struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	OwnerID          string            `json:"owner_id"`
	FurnitureLayout  []PlacedFurniture `json:"furniture_layout"`
	NextEntryID      int64             `json:"-"`
	StylePreference  string            `json:"style_preference"`
	ColorScheme      string            `json:"color_scheme"`
	RoomType         string            `json:"room_type"`
	OriginalImageRef string            `json:"original_image_ref"`
	IsPublic         bool              `json:"is_public"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// BoundingBox is in source-image pixel coordinates.
type BoundingBox struct {
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewBoundingBox derives width and height from the corner coordinates.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Width: x2 - x1, Height: y2 - y1}
}

type DetectedObject struct {
	Name       string      `json:"name"`
	Confidence float64     `json:"confidence"`
	BBox       BoundingBox `json:"bbox"`
}

// CanvasItem is the 2D footprint of one furniture entry on the design canvas.
type CanvasItem struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationCompleted GenerationStatus = "completed"
	GenerationFailed    GenerationStatus = "failed"
)

// GenerationRequest holds a copy of the furniture taken when the request was
// made; later layout edits do not affect it.
type GenerationRequest struct {
	GenerationID     string
	ProjectID        string
	CanvasImage      []byte
	Furniture        []CanvasItem
	OriginalImageRef string
	Status           GenerationStatus
}

type GenerationResult struct {
	GenerationID string           `json:"generation_id"`
	ProjectID    string           `json:"project_id,omitempty"`
	Status       GenerationStatus `json:"status"`
	OutputRef    string           `json:"generated_image_ref,omitempty"`
	Prompt       string           `json:"prompt,omitempty"`
	Duration     time.Duration    `json:"processing_duration"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// GeneratedFurniture is a single piece of furniture rendered from a text
// description and kept in the owner's library.
type GeneratedFurniture struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Style        string    `json:"style"`
	Color        string    `json:"color"`
	Material     string    `json:"material"`
	ImageRef     string    `json:"image_ref"`
	Prompt       string    `json:"prompt_used"`
	CustomPrompt string    `json:"custom_prompt,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
