package yolo

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/domain"
)

func classIndex(t *testing.T, name string) int {
	t.Helper()
	for i, c := range cocoClasses {
		if c == name {
			return i
		}
	}
	t.Fatalf("unknown class %q", name)
	return -1
}

// setAnchor writes one anchor column into a flat YOLOv8 output buffer.
func setAnchor(out []float32, a int, cx, cy, w, h float32, class int, score float32) {
	out[a] = cx
	out[numAnchors+a] = cy
	out[2*numAnchors+a] = w
	out[3*numAnchors+a] = h
	out[(4+class)*numAnchors+a] = score
}

func TestCocoClassCount(t *testing.T) {
	assert.Equal(t, 80, numClasses)
	assert.Equal(t, "couch", cocoClasses[57])
}

func TestDecodeScalesToSourceImage(t *testing.T) {
	out := make([]float32, (4+numClasses)*numAnchors)
	setAnchor(out, 7, 320, 320, 64, 128, classIndex(t, "bed"), 0.9)
	setAnchor(out, 8, 100, 100, 10, 10, classIndex(t, "chair"), 0.1)

	objects := decode(out, 1280, 640)
	require.Len(t, objects, 1)

	obj := objects[0]
	assert.Equal(t, "bed", obj.Name)
	assert.InDelta(t, 0.9, obj.Confidence, 1e-6)
	assert.InDelta(t, 576, obj.BBox.X1, 1e-6)
	assert.InDelta(t, 256, obj.BBox.Y1, 1e-6)
	assert.InDelta(t, 704, obj.BBox.X2, 1e-6)
	assert.InDelta(t, 384, obj.BBox.Y2, 1e-6)
	assert.InDelta(t, 128, obj.BBox.Width, 1e-6)
}

func TestDecodeClampsToImage(t *testing.T) {
	out := make([]float32, (4+numClasses)*numAnchors)
	setAnchor(out, 0, 5, 5, 40, 40, classIndex(t, "tv"), 0.7)

	objects := decode(out, 640, 640)
	require.Len(t, objects, 1)
	assert.Equal(t, 0.0, objects[0].BBox.X1)
	assert.Equal(t, 0.0, objects[0].BBox.Y1)
}

func TestNMSSuppressesSameClassOverlap(t *testing.T) {
	objects := []domain.DetectedObject{
		{Name: "chair", Confidence: 0.6, BBox: domain.NewBoundingBox(0, 0, 100, 100)},
		{Name: "chair", Confidence: 0.9, BBox: domain.NewBoundingBox(5, 5, 105, 105)},
		{Name: "couch", Confidence: 0.8, BBox: domain.NewBoundingBox(5, 5, 105, 105)},
		{Name: "chair", Confidence: 0.7, BBox: domain.NewBoundingBox(300, 300, 350, 350)},
	}

	kept := nms(objects, iouThreshold)
	require.Len(t, kept, 3)
	assert.Equal(t, 0.9, kept[0].Confidence)
	assert.Equal(t, "couch", kept[1].Name)
	assert.Equal(t, 0.7, kept[2].Confidence)
}

func TestPreprocessLayout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	pixels := preprocess(img)
	const plane = inputSize * inputSize
	require.Len(t, pixels, 3*plane)
	assert.InDelta(t, 1.0, pixels[0], 1e-6)
	assert.InDelta(t, 0.0, pixels[plane], 1e-6)
	assert.InDelta(t, 0.2, pixels[2*plane+plane-1], 1e-6)
}
