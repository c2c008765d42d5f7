// Package claude detects room objects with Claude's vision API.
package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"slices"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/dreamspace/internal/detection"
	"github.com/vbonduro/dreamspace/internal/domain"
)

const detectionPrompt = `Detect the furniture and appliances in this room photo.
Use only these labels: %s.
The image is %d pixels wide and %d pixels high.
Respond with only a JSON array, one element per object:
[{"name": "<label>", "confidence": <0..1>, "bbox": [x1, y1, x2, y2]}]
Coordinates are pixels from the top-left corner. Respond with [] if nothing matches.`

type Detector struct {
	client *anthropic.Client
	model  string
}

func New(apiKey, model string, opts ...anthropic.ClientOption) (*Detector, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude api key is not set: %w", domain.ErrModelUnavailable)
	}
	return &Detector{client: anthropic.NewClient(apiKey, opts...), model: model}, nil
}

func (d *Detector) Detect(ctx context.Context, img detection.Image) ([]domain.DetectedObject, error) {
	w, h := 0, 0
	if img.Decoded != nil {
		b := img.Decoded.Bounds()
		w, h = b.Dx(), b.Dy()
	}

	resp, err := d.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(d.model),
		MaxTokens: 1024,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(img.MimeType),
					base64.StdEncoding.EncodeToString(img.Data),
				)),
				anthropic.NewTextMessageContent(fmt.Sprintf(detectionPrompt, labels(), w, h)),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var text string
	for _, c := range resp.Content {
		if t := c.GetText(); t != "" {
			text = t
			break
		}
	}
	return ParseResponse(text, image.Rect(0, 0, w, h))
}

type rawObject struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

// ParseResponse extracts the JSON array from a model reply. Boxes are clamped
// to bounds when bounds is non-empty; malformed boxes are dropped.
func ParseResponse(raw string, bounds image.Rectangle) ([]domain.DetectedObject, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, errors.New("claude response contained no JSON array")
	}

	var parsed []rawObject
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse claude response: %w", err)
	}

	objects := make([]domain.DetectedObject, 0, len(parsed))
	for _, p := range parsed {
		if len(p.BBox) != 4 || p.Name == "" {
			continue
		}
		x1, y1, x2, y2 := p.BBox[0], p.BBox[1], p.BBox[2], p.BBox[3]
		if !bounds.Empty() {
			x1, x2 = clamp(x1, bounds.Max.X), clamp(x2, bounds.Max.X)
			y1, y2 = clamp(y1, bounds.Max.Y), clamp(y2, bounds.Max.Y)
		}
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		objects = append(objects, domain.DetectedObject{
			Name:       strings.ToLower(strings.TrimSpace(p.Name)),
			Confidence: p.Confidence,
			BBox:       domain.NewBoundingBox(x1, y1, x2, y2),
		})
	}
	return objects, nil
}

func labels() string {
	names := make([]string, 0, len(detection.AllowedClasses))
	for name := range detection.AllowedClasses {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func clamp(v float64, limit int) float64 {
	return min(max(v, 0), float64(limit))
}

// normaliseMIME maps sniffed content types to the values the Anthropic API
// accepts. Anything else is sent as jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
