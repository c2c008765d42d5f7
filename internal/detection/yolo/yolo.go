// Package yolo runs a YOLOv8 object detector exported to ONNX through ONNX
// Runtime.
package yolo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	xdraw "golang.org/x/image/draw"

	"github.com/vbonduro/dreamspace/internal/detection"
	"github.com/vbonduro/dreamspace/internal/domain"
)

const (
	inputSize  = 640
	numAnchors = 8400

	// scoreFloor drops anchors early; the adapter applies the real threshold.
	scoreFloor   = 0.25
	iouThreshold = 0.45
)

const numClasses = len(cocoClasses)

// InitRuntime loads the ONNX Runtime shared library. It must be called once
// before New. An empty libPath uses the platform default name.
func InitRuntime(libPath string) error {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", errors.Join(domain.ErrModelUnavailable, err))
	}
	return nil
}

// Detector holds one ONNX session with preallocated tensors, so runs are
// serialized.
type Detector struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func New(modelPath string) (*Detector, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputSize, inputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+numClasses), numAnchors))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create detector session: %w", errors.Join(domain.ErrModelUnavailable, err))
	}

	return &Detector{session: session, input: input, output: output}, nil
}

func (d *Detector) Detect(ctx context.Context, img detection.Image) ([]domain.DetectedObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Decoded == nil {
		return nil, fmt.Errorf("image not decoded: %w", domain.ErrDecodeFailure)
	}

	b := img.Decoded.Bounds()
	pixels := preprocess(img.Decoded)

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.input.GetData(), pixels)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	boxes := decode(d.output.GetData(), b.Dx(), b.Dy())
	return nms(boxes, iouThreshold), nil
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	if d.output != nil {
		d.output.Destroy()
	}
}

// preprocess stretches img to the model input size and returns it as
// normalized CHW RGB.
func preprocess(img image.Image) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	const plane = inputSize * inputSize
	out := make([]float32, 3*plane)
	for y := range inputSize {
		for x := range inputSize {
			i := dst.PixOffset(x, y)
			p := y*inputSize + x
			out[p] = float32(dst.Pix[i]) / 255
			out[plane+p] = float32(dst.Pix[i+1]) / 255
			out[2*plane+p] = float32(dst.Pix[i+2]) / 255
		}
	}
	return out
}

// decode reads a [1, 4+classes, anchors] YOLOv8 output. Each anchor column
// holds cx, cy, w, h in input pixels followed by one score per class.
func decode(out []float32, origW, origH int) []domain.DetectedObject {
	sx := float64(origW) / inputSize
	sy := float64(origH) / inputSize

	var objects []domain.DetectedObject
	for a := range numAnchors {
		best, score := 0, float32(0)
		for c := range numClasses {
			if s := out[(4+c)*numAnchors+a]; s > score {
				best, score = c, s
			}
		}
		if score < scoreFloor {
			continue
		}

		cx := float64(out[a])
		cy := float64(out[numAnchors+a])
		w := float64(out[2*numAnchors+a])
		h := float64(out[3*numAnchors+a])

		x1 := clamp((cx-w/2)*sx, 0, float64(origW))
		y1 := clamp((cy-h/2)*sy, 0, float64(origH))
		x2 := clamp((cx+w/2)*sx, 0, float64(origW))
		y2 := clamp((cy+h/2)*sy, 0, float64(origH))

		objects = append(objects, domain.DetectedObject{
			Name:       cocoClasses[best],
			Confidence: float64(score),
			BBox:       domain.NewBoundingBox(x1, y1, x2, y2),
		})
	}
	return objects
}

// nms suppresses overlapping boxes of the same class, keeping the highest
// scoring one.
func nms(objects []domain.DetectedObject, threshold float64) []domain.DetectedObject {
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Confidence > objects[j].Confidence
	})

	kept := make([]domain.DetectedObject, 0, len(objects))
	for _, obj := range objects {
		suppressed := false
		for _, k := range kept {
			if k.Name == obj.Name && iou(k.BBox, obj.BBox) > threshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, obj)
		}
	}
	return kept
}

func iou(a, b domain.BoundingBox) float64 {
	w := math.Max(0, math.Min(a.X2, b.X2)-math.Max(a.X1, b.X1))
	h := math.Max(0, math.Min(a.Y2, b.Y2)-math.Max(a.Y1, b.Y1))
	inter := w * h
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
