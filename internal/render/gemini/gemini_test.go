package gemini

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/render"
)

type fakeModel struct {
	resp  *genai.GenerateContentResponse
	err   error
	parts []genai.Part
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.parts = parts
	return f.resp, f.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func respWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestRenderReturnsFirstImagePart(t *testing.T) {
	model := &fakeModel{resp: respWith(
		genai.Text("here you go"),
		genai.Blob{MIMEType: "image/png", Data: []byte("png-data")},
	)}
	r := &Renderer{model: model}

	out, err := r.Render(context.Background(), render.Input{
		Canvas:         pngBytes(t),
		Prompt:         "realistic interior design, featuring sofa",
		NegativePrompt: "blurry",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("png-data"), out.Image)
	assert.Equal(t, "image/png", out.MimeType)

	require.Len(t, model.parts, 2)
	text, ok := model.parts[0].(genai.Text)
	require.True(t, ok)
	assert.Contains(t, string(text), "featuring sofa")
	assert.Contains(t, string(text), "Avoid: blurry")
	blob, ok := model.parts[1].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.MIMEType)
}

func TestRenderTextOnlyResponse(t *testing.T) {
	r := &Renderer{model: &fakeModel{resp: respWith(genai.Text("I cannot draw"))}}

	_, err := r.Render(context.Background(), render.Input{Canvas: pngBytes(t)})
	assert.ErrorContains(t, err, "no image")
}

func TestRenderModelError(t *testing.T) {
	r := &Renderer{model: &fakeModel{err: errors.New("quota exceeded")}}

	_, err := r.Render(context.Background(), render.Input{Canvas: pngBytes(t)})
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestRenderRejectsNonImageCanvas(t *testing.T) {
	model := &fakeModel{}
	r := &Renderer{model: model}

	_, err := r.Render(context.Background(), render.Input{Canvas: []byte("hello")})
	assert.Error(t, err)
	assert.Nil(t, model.parts)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "model")
	assert.Error(t, err)
}

func TestRenderWithoutCanvasSendsTextOnly(t *testing.T) {
	model := &fakeModel{resp: respWith(genai.Blob{MIMEType: "image/png", Data: []byte("chair")})}
	r := &Renderer{model: model}

	out, err := r.Render(context.Background(), render.Input{
		Prompt:         "elegant modern black metal chair",
		NegativePrompt: "watermark",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("chair"), out.Image)

	require.Len(t, model.parts, 1)
	text, ok := model.parts[0].(genai.Text)
	require.True(t, ok)
	assert.Contains(t, string(text), "black metal chair")
	assert.Contains(t, string(text), "Avoid: watermark")
	assert.NotContains(t, string(text), "sketch")
}
