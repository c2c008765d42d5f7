package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/dreamspace/internal/domain"
)

func TestBuildCountsByName(t *testing.T) {
	items := []domain.CanvasItem{
		{Name: "chair"}, {Name: "table"}, {Name: "chair"}, {Name: "Chair"},
	}

	got := Build(items, Context{})
	assert.Equal(t,
		"realistic interior design, featuring 2 chair, table, Chair, modern style, clean and organized space, high quality, detailed",
		got)
}

func TestBuildFloorPlanHint(t *testing.T) {
	got := Build([]domain.CanvasItem{{Name: "bed"}}, Context{SourceHint: "Apartment_FLOOR_plan.png"})
	assert.Equal(t,
		"architectural floor plan with furniture layout, featuring bed, modern style, clean and organized space, high quality, detailed",
		got)
}

func TestBuildEmptySnapshot(t *testing.T) {
	got := Build(nil, Context{})
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "featuring an empty room")
	assert.Equal(t, got, Build([]domain.CanvasItem{}, Context{}))
}

func TestBuildIsPure(t *testing.T) {
	items := []domain.CanvasItem{{Name: "sofa"}, {Name: "lamp"}, {Name: "sofa"}, {Name: "rug"}}
	ctx := Context{SourceHint: "living room"}

	first := Build(items, ctx)
	for range 100 {
		assert.Equal(t, first, Build(items, ctx))
	}
	assert.Equal(t, "sofa", items[0].Name)
}
