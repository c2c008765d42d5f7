// Package prompt turns a furniture snapshot into the text prompt sent to the
// render backend.
package prompt

import (
	"strconv"
	"strings"

	"github.com/vbonduro/dreamspace/internal/domain"
)

const (
	floorPlanScene = "architectural floor plan with furniture layout"
	interiorScene  = "realistic interior design"
	emptyRoom      = "an empty room"
	styleSuffix    = "modern style, clean and organized space, high quality, detailed"

	// NegativePrompt lists what render backends that support it should avoid.
	NegativePrompt = "blurry, low quality, distorted, ugly, bad anatomy, extra limbs, text, watermark"
)

// Context carries optional hints about where the canvas came from.
type Context struct {
	// SourceHint is a free-form description of the source image, such as
	// its file name. A hint mentioning "floor" selects the floor-plan scene.
	SourceHint string
}

// Build is deterministic: the same items and context always produce the same
// prompt. Names are counted by exact match and listed in first-seen order.
func Build(items []domain.CanvasItem, pc Context) string {
	scene := interiorScene
	if strings.Contains(strings.ToLower(pc.SourceHint), "floor") {
		scene = floorPlanScene
	}
	return scene + ", featuring " + describe(items) + ", " + styleSuffix
}

func describe(items []domain.CanvasItem) string {
	if len(items) == 0 {
		return emptyRoom
	}

	counts := make(map[string]int, len(items))
	var order []string
	for _, it := range items {
		if counts[it.Name] == 0 {
			order = append(order, it.Name)
		}
		counts[it.Name]++
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		if n := counts[name]; n > 1 {
			parts = append(parts, strconv.Itoa(n)+" "+name)
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ", ")
}
