package prompt

import (
	"fmt"
	"strings"
)

const (
	defaultFurnitureColor    = "neutral"
	defaultFurnitureMaterial = "wood"
)

// FurnitureSpec describes a single piece of furniture to render on its own.
type FurnitureSpec struct {
	Category     string
	Style        string
	Color        string
	Material     string
	CustomPrompt string
}

// WithDefaults fills an empty color or material.
func (f FurnitureSpec) WithDefaults() FurnitureSpec {
	if f.Color == "" {
		f.Color = defaultFurnitureColor
	}
	if f.Material == "" {
		f.Material = defaultFurnitureMaterial
	}
	return f
}

var furnitureTemplates = map[string]string{
	"sofa":    "modern %s sofa, clean background, product photography, high quality, detailed",
	"chair":   "elegant %s chair, minimalist background, professional lighting, 4k",
	"table":   "stylish %s table, white background, studio lighting, detailed texture",
	"bed":     "comfortable %s bed, clean room setting, soft lighting, high resolution",
	"cabinet": "functional %s cabinet, modern interior, professional photography",
	"desk":    "contemporary %s desk, office setting, clean background, detailed",
}

// Furniture builds the prompt for a single-piece render. A non-blank custom
// prompt is used as is.
func Furniture(spec FurnitureSpec) string {
	if custom := strings.TrimSpace(spec.CustomPrompt); custom != "" {
		return custom
	}

	spec = spec.WithDefaults()
	traits := spec.Style + " " + spec.Color + " " + spec.Material
	if tmpl, ok := furnitureTemplates[strings.ToLower(spec.Category)]; ok {
		return fmt.Sprintf(tmpl, traits)
	}
	return traits + " furniture, clean background, high quality"
}
