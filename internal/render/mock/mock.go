// Package mock renders without a model: it draws every furniture footprint
// onto the canvas as a translucent box and stamps a watermark.
package mock

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/render"
)

const Watermark = "AI Generated Interior"

var (
	boxFill      = color.NRGBA{R: 100, G: 150, B: 200, A: 30}
	boxOutline   = color.NRGBA{R: 50, G: 100, B: 150, A: 80}
	watermarkInk = color.NRGBA{R: 100, G: 100, B: 100, A: 200}
)

const outlineWidth = 2

// BlankSize is the edge length of the white square used when no canvas is given.
const BlankSize = 512

type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(ctx context.Context, in render.Input) (*render.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := canvas(in.Canvas)
	if err != nil {
		return nil, err
	}

	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, src, bounds.Min, draw.Src)

	overlay := image.NewRGBA(bounds)
	for _, item := range in.Furniture {
		drawBox(overlay, footprint(item, bounds.Min))
	}
	draw.Draw(out, bounds, overlay, bounds.Min, draw.Over)

	stamp(out, bounds)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &render.Output{Image: buf.Bytes(), MimeType: "image/png"}, nil
}

func canvas(data []byte) (image.Image, error) {
	if len(data) == 0 {
		blank := image.NewRGBA(image.Rect(0, 0, BlankSize, BlankSize))
		draw.Draw(blank, blank.Bounds(), image.White, image.Point{}, draw.Src)
		return blank, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode canvas: %w", err)
	}
	return img, nil
}

func footprint(item domain.CanvasItem, origin image.Point) image.Rectangle {
	x, y := int(item.X), int(item.Y)
	w, h := int(item.Width), int(item.Height)
	return image.Rect(x, y, x+w+1, y+h+1).Add(origin)
}

// drawBox fills r and then draws its outline on top, both replacing whatever
// the overlay held there.
func drawBox(dst *image.RGBA, r image.Rectangle) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(boxFill), image.Point{}, draw.Src)

	ink := image.NewUniform(boxOutline)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth),
		image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y),
		image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), ink, image.Point{}, draw.Src)
	}
}

func stamp(dst *image.RGBA, bounds image.Rectangle) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(watermarkInk),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+10, bounds.Max.Y-30+face.Ascent),
	}
	d.DrawString(Watermark)
}
