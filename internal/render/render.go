// Package render defines the capability that turns a canvas and prompt into a
// generated interior image. Implementations must be safe for concurrent use.
package render

import (
	"context"

	"github.com/vbonduro/dreamspace/internal/domain"
)

type Renderer interface {
	Render(ctx context.Context, in Input) (*Output, error)
}

// Input is one render request. An empty Canvas asks for an image from the
// prompt alone.
type Input struct {
	Canvas         []byte
	Prompt         string
	NegativePrompt string
	Furniture      []domain.CanvasItem
}

type Output struct {
	Image    []byte
	MimeType string
}
