// Package detection finds furniture and room objects in uploaded photos.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/dreamspace/internal/domain"
)

// MinConfidence is exclusive: a detection must score above it to be kept.
const MinConfidence = 0.5

// AllowedClasses are the object classes reported to clients.
var AllowedClasses = map[string]bool{
	"chair":        true,
	"couch":        true,
	"bed":          true,
	"dining table": true,
	"toilet":       true,
	"tv":           true,
	"laptop":       true,
	"microwave":    true,
	"oven":         true,
	"toaster":      true,
	"sink":         true,
	"refrigerator": true,
}

// Image is a photo handed to a Model, both raw and decoded.
type Image struct {
	Data     []byte
	MimeType string
	Decoded  image.Image
}

// Model produces raw detections in source-image pixel coordinates. Filtering
// is applied by the Adapter, not the model.
type Model interface {
	Detect(ctx context.Context, img Image) ([]domain.DetectedObject, error)
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Analysis struct {
	Dimensions Dimensions              `json:"image_dimensions"`
	Objects    []domain.DetectedObject `json:"detected_objects"`
	Total      int                     `json:"total_objects"`
}

type Adapter struct {
	model Model
}

// NewAdapter wraps model. A nil model yields an adapter that always reports
// domain.ErrModelUnavailable.
func NewAdapter(model Model) *Adapter {
	return &Adapter{model: model}
}

// Detect analyses the image stored at path.
func (a *Adapter) Detect(ctx context.Context, path string) (*Analysis, error) {
	if a.model == nil {
		return nil, fmt.Errorf("detection model not loaded: %w", domain.ErrModelUnavailable)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", errors.Join(domain.ErrDecodeFailure, err))
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", errors.Join(domain.ErrDecodeFailure, err))
	}

	raw, err := a.model.Detect(ctx, Image{Data: data, MimeType: http.DetectContentType(data), Decoded: decoded})
	if err != nil {
		return nil, fmt.Errorf("failed to run detection: %w", err)
	}

	objects := Filter(raw)
	b := decoded.Bounds()
	return &Analysis{
		Dimensions: Dimensions{Width: b.Dx(), Height: b.Dy()},
		Objects:    objects,
		Total:      len(objects),
	}, nil
}

// Filter keeps allow-listed classes scoring above MinConfidence, in input order.
func Filter(raw []domain.DetectedObject) []domain.DetectedObject {
	kept := make([]domain.DetectedObject, 0, len(raw))
	for _, obj := range raw {
		if !AllowedClasses[obj.Name] || obj.Confidence <= MinConfidence {
			continue
		}
		kept = append(kept, obj)
	}
	return kept
}
