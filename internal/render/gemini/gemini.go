// Package gemini renders interiors with a Gemini image-capable model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/dreamspace/internal/render"
)

const instructions = `Redraw this furniture layout sketch as a finished interior.
Keep every piece of furniture where the sketch places it.`

const promptOnlyInstructions = `Generate a single photorealistic image for this description.`

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Renderer struct {
	client *genai.Client
	model  generator
}

// New connects to the Gemini API. Close releases the client.
func New(ctx context.Context, apiKey, model string) (*Renderer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Renderer{client: client, model: client.GenerativeModel(model)}, nil
}

func (r *Renderer) Close() error {
	return r.client.Close()
}

func (r *Renderer) Render(ctx context.Context, in render.Input) (*render.Output, error) {
	var parts []genai.Part
	if len(in.Canvas) == 0 {
		parts = append(parts, genai.Text(describe(promptOnlyInstructions, in)))
	} else {
		mimeType := http.DetectContentType(in.Canvas)
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("canvas is not an image: %s", mimeType)
		}
		parts = append(parts,
			genai.Text(describe(instructions, in)),
			genai.ImageData(strings.TrimPrefix(mimeType, "image/"), in.Canvas),
		)
	}

	resp, err := r.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return firstImage(resp)
}

func describe(preamble string, in render.Input) string {
	text := preamble + "\n\n" + in.Prompt
	if in.NegativePrompt != "" {
		text += "\n\nAvoid: " + in.NegativePrompt
	}
	return text
}

func firstImage(resp *genai.GenerateContentResponse) (*render.Output, error) {
	if resp == nil {
		return nil, errors.New("empty gemini response")
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && strings.HasPrefix(blob.MIMEType, "image/") && len(blob.Data) > 0 {
				return &render.Output{Image: blob.Data, MimeType: blob.MIMEType}, nil
			}
		}
	}
	return nil, errors.New("gemini response contained no image")
}
