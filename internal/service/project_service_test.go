package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/catalog"
	"github.com/vbonduro/dreamspace/internal/db"
	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/layout"
	"github.com/vbonduro/dreamspace/internal/store"
)

func newProjectService(t *testing.T) *ProjectService {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	projects := store.NewProjectStore(d)
	return NewProjectService(projects, layout.NewStore(projects, catalog.Default()), slog.Default())
}

func TestCreateProject(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "  Living Room  ", OwnerID: "u1", RoomType: "living_room"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Living Room", p.Name)
	assert.Equal(t, "u1", p.OwnerID)
	assert.Empty(t, p.FurnitureLayout)

	_, err = svc.CreateProject(ctx, CreateProjectInput{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestGetProjectNotFound(t *testing.T) {
	svc := newProjectService(t)
	_, err := svc.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListProjectsPaging(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	for range 12 {
		_, err := svc.CreateProject(ctx, CreateProjectInput{Name: "p", OwnerID: "u1"})
		require.NoError(t, err)
	}
	_, err := svc.CreateProject(ctx, CreateProjectInput{Name: "other", OwnerID: "u2"})
	require.NoError(t, err)

	page, err := svc.ListProjects(ctx, "u1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Projects, 10)

	page, err = svc.ListProjects(ctx, "u1", 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Projects, 2)

	page, err = svc.ListProjects(ctx, "u1", 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PerPage)
	assert.Equal(t, 1, page.Pages)
}

func TestUpdateProject(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Old"})
	require.NoError(t, err)

	name := " New "
	style := "scandinavian"
	updated, err := svc.UpdateProject(ctx, p.ID, store.ProjectUpdate{Name: &name, StylePreference: &style})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "scandinavian", updated.StylePreference)

	blank := " "
	_, err = svc.UpdateProject(ctx, p.ID, store.ProjectUpdate{Name: &blank})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.UpdateProject(ctx, "missing", store.ProjectUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProject(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Gone"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))
	_, err = svc.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProject(ctx, p.ID), domain.ErrNotFound)
}

func TestFurnitureLifecycle(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Den"})
	require.NoError(t, err)

	first, snapshot, err := svc.AddFurniture(ctx, p.ID, layout.Placement{FurnitureRef: "chair1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "office chair", snapshot[0].Name)

	second, snapshot, err := svc.AddFurniture(ctx, p.ID, layout.Placement{FurnitureRef: "bed2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
	assert.Len(t, snapshot, 2)

	pos := domain.Vec3{X: 5, Y: 6, Z: 7}
	entry, snapshot, err := svc.UpdateFurniture(ctx, p.ID, second, layout.FurniturePatch{Position: &pos})
	require.NoError(t, err)
	assert.Equal(t, pos, entry.Position)
	assert.Equal(t, pos, snapshot[1].Position)

	removed, snapshot, err := svc.RemoveFurniture(ctx, p.ID, first)
	require.NoError(t, err)
	assert.Equal(t, "chair1", removed.FurnitureRef)
	require.Len(t, snapshot, 1)
	assert.Equal(t, second, snapshot[0].EntryID)

	_, _, err = svc.RemoveFurniture(ctx, p.ID, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	third, _, err := svc.AddFurniture(ctx, p.ID, layout.Placement{FurnitureRef: "table1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third)

	got, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.FurnitureLayout, 2)
	assert.Equal(t, []int64{2, 3}, []int64{got.FurnitureLayout[0].EntryID, got.FurnitureLayout[1].EntryID})
}

func TestAddFurnitureRejectsUnknownRef(t *testing.T) {
	svc := newProjectService(t)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{Name: "Den"})
	require.NoError(t, err)

	_, _, err = svc.AddFurniture(ctx, p.ID, layout.Placement{FurnitureRef: "spaceship"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, _, err = svc.AddFurniture(ctx, "missing", layout.Placement{FurnitureRef: "chair1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
