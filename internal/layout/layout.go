// Package layout owns the furniture layout of each project. Every mutation of
// one project's layout runs under that project's lock, so concurrent requests
// never lose updates or remove the wrong entry.
package layout

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vbonduro/dreamspace/internal/catalog"
	"github.com/vbonduro/dreamspace/internal/domain"
)

// DefaultFootprint is the width and height given to furniture that the
// catalog does not know.
const DefaultFootprint = 60.0

// Repository is the persistence the layout store needs.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	SaveLayout(ctx context.Context, id string, layout []domain.PlacedFurniture, nextEntryID int64) error
}

// Placement describes a new layout entry. Nil vectors take their defaults:
// zero position and rotation, unit scale.
type Placement struct {
	FurnitureRef string
	Name         string
	Position     *domain.Vec3
	Rotation     *domain.Vec3
	Scale        *domain.Vec3
}

// FurniturePatch is a partial update; nil fields are left unchanged.
type FurniturePatch struct {
	Position *domain.Vec3
	Rotation *domain.Vec3
	Scale    *domain.Vec3
}

type Store struct {
	repo    Repository
	catalog *catalog.Catalog
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*projectLock
}

type projectLock struct {
	mu   sync.RWMutex
	refs int
}

func NewStore(repo Repository, cat *catalog.Catalog) *Store {
	return &Store{
		repo:    repo,
		catalog: cat,
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*projectLock),
	}
}

// AddFurniture appends a placement and returns its new entry id together
// with the layout as it stands after the append.
func (s *Store) AddFurniture(ctx context.Context, projectID string, p Placement) (int64, []domain.PlacedFurniture, error) {
	if p.FurnitureRef == "" {
		return 0, nil, domain.Invalid("furniture_id is required")
	}

	name := p.Name
	if name == "" {
		item, ok := s.catalog.Lookup(p.FurnitureRef)
		if !ok {
			return 0, nil, domain.Invalid("unknown furniture_id %q", p.FurnitureRef)
		}
		name = item.Name
	}

	unlock := s.lock(projectID)
	defer unlock()

	project, err := s.load(ctx, projectID)
	if err != nil {
		return 0, nil, err
	}

	entry := domain.PlacedFurniture{
		EntryID:      nextEntryID(project),
		FurnitureRef: p.FurnitureRef,
		Name:         name,
		Position:     valueOr(p.Position, domain.Vec3{}),
		Rotation:     valueOr(p.Rotation, domain.Vec3{}),
		Scale:        valueOr(p.Scale, domain.Vec3{X: 1, Y: 1, Z: 1}),
		PlacedAt:     s.now(),
	}
	layout := append(project.FurnitureLayout, entry)

	if err := s.repo.SaveLayout(ctx, projectID, layout, entry.EntryID+1); err != nil {
		return 0, nil, fmt.Errorf("failed to add furniture: %w", err)
	}
	return entry.EntryID, slices.Clone(layout), nil
}

// UpdateFurniture merges patch into the entry with entryID and returns the
// updated entry with the resulting layout.
func (s *Store) UpdateFurniture(ctx context.Context, projectID string, entryID int64, patch FurniturePatch) (domain.PlacedFurniture, []domain.PlacedFurniture, error) {
	unlock := s.lock(projectID)
	defer unlock()

	project, err := s.load(ctx, projectID)
	if err != nil {
		return domain.PlacedFurniture{}, nil, err
	}

	i := indexOf(project.FurnitureLayout, entryID)
	if i < 0 {
		return domain.PlacedFurniture{}, nil, entryNotFound(entryID)
	}

	entry := &project.FurnitureLayout[i]
	if patch.Position != nil {
		entry.Position = *patch.Position
	}
	if patch.Rotation != nil {
		entry.Rotation = *patch.Rotation
	}
	if patch.Scale != nil {
		entry.Scale = *patch.Scale
	}

	if err := s.repo.SaveLayout(ctx, projectID, project.FurnitureLayout, project.NextEntryID); err != nil {
		return domain.PlacedFurniture{}, nil, fmt.Errorf("failed to update furniture: %w", err)
	}
	return *entry, slices.Clone(project.FurnitureLayout), nil
}

// RemoveFurniture deletes the entry with entryID and returns it with the
// resulting layout. The id is never handed out again for this project.
func (s *Store) RemoveFurniture(ctx context.Context, projectID string, entryID int64) (domain.PlacedFurniture, []domain.PlacedFurniture, error) {
	unlock := s.lock(projectID)
	defer unlock()

	project, err := s.load(ctx, projectID)
	if err != nil {
		return domain.PlacedFurniture{}, nil, err
	}

	i := indexOf(project.FurnitureLayout, entryID)
	if i < 0 {
		return domain.PlacedFurniture{}, nil, entryNotFound(entryID)
	}

	removed := project.FurnitureLayout[i]
	layout := append(project.FurnitureLayout[:i:i], project.FurnitureLayout[i+1:]...)

	if err := s.repo.SaveLayout(ctx, projectID, layout, project.NextEntryID); err != nil {
		return domain.PlacedFurniture{}, nil, fmt.Errorf("failed to remove furniture: %w", err)
	}
	return removed, slices.Clone(layout), nil
}

// Snapshot returns a copy of the layout as of the call. Concurrent snapshots
// share a read lock; they never observe a half-applied mutation.
func (s *Store) Snapshot(ctx context.Context, projectID string) ([]domain.PlacedFurniture, error) {
	unlock := s.rlock(projectID)
	defer unlock()

	project, err := s.load(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(project.FurnitureLayout), nil
}

// CanvasItems converts a layout into 2D footprints, one per entry: catalog
// width and height scaled by the entry's X and Y scale, placed at the entry's
// X and Y position. Furniture missing from the catalog uses DefaultFootprint.
func (s *Store) CanvasItems(layout []domain.PlacedFurniture) []domain.CanvasItem {
	items := make([]domain.CanvasItem, 0, len(layout))
	for _, e := range layout {
		width, height := DefaultFootprint, DefaultFootprint
		name := e.Name
		if item, ok := s.catalog.Lookup(e.FurnitureRef); ok {
			width, height = item.Width, item.Height
			if name == "" {
				name = item.Name
			}
		}
		if name == "" {
			name = e.FurnitureRef
		}
		items = append(items, domain.CanvasItem{
			Name:   name,
			X:      e.Position.X,
			Y:      e.Position.Y,
			Width:  width * e.Scale.X,
			Height: height * e.Scale.Y,
		})
	}
	return items
}

func (s *Store) load(ctx context.Context, projectID string) (*domain.Project, error) {
	project, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
	}
	if project.FurnitureLayout == nil {
		project.FurnitureLayout = []domain.PlacedFurniture{}
	}
	return project, nil
}

func (s *Store) lock(projectID string) func() {
	l := s.acquire(projectID)
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.release(projectID, l)
	}
}

func (s *Store) rlock(projectID string) func() {
	l := s.acquire(projectID)
	l.mu.RLock()
	return func() {
		l.mu.RUnlock()
		s.release(projectID, l)
	}
}

func (s *Store) acquire(projectID string) *projectLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &projectLock{}
		s.locks[projectID] = l
	}
	l.refs++
	return l
}

// release drops the lock entry once nobody holds or waits on it.
func (s *Store) release(projectID string, l *projectLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, projectID)
	}
}

// nextEntryID never returns an id at or below one already present in the
// layout, even if the stored counter lags behind.
func nextEntryID(p *domain.Project) int64 {
	next := max(p.NextEntryID, 1)
	for _, e := range p.FurnitureLayout {
		if e.EntryID >= next {
			next = e.EntryID + 1
		}
	}
	return next
}

func indexOf(layout []domain.PlacedFurniture, entryID int64) int {
	for i, e := range layout {
		if e.EntryID == entryID {
			return i
		}
	}
	return -1
}

func entryNotFound(entryID int64) error {
	return fmt.Errorf("furniture entry %d: %w", entryID, domain.ErrNotFound)
}

func valueOr(v *domain.Vec3, def domain.Vec3) domain.Vec3 {
	if v == nil {
		return def
	}
	return *v
}
