package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/layout"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/metrics"
	"github.com/vbonduro/dreamspace/internal/store"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// projectRepository is the subset of store.ProjectStore that ProjectService requires.
type projectRepository interface {
	Create(ctx context.Context, p *domain.Project) (*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Project, int, error)
	Update(ctx context.Context, id string, u store.ProjectUpdate) error
	Delete(ctx context.Context, id string) error
}

// layoutEditor is the subset of layout.Store that ProjectService requires.
type layoutEditor interface {
	AddFurniture(ctx context.Context, projectID string, p layout.Placement) (int64, []domain.PlacedFurniture, error)
	UpdateFurniture(ctx context.Context, projectID string, entryID int64, patch layout.FurniturePatch) (domain.PlacedFurniture, []domain.PlacedFurniture, error)
	RemoveFurniture(ctx context.Context, projectID string, entryID int64) (domain.PlacedFurniture, []domain.PlacedFurniture, error)
}

type ProjectService struct {
	projects projectRepository
	layouts  layoutEditor
	logger   *slog.Logger
}

func NewProjectService(projects projectRepository, layouts layoutEditor, logger *slog.Logger) *ProjectService {
	return &ProjectService{projects: projects, layouts: layouts, logger: logger}
}

type CreateProjectInput struct {
	Name             string
	Description      string
	OwnerID          string
	RoomType         string
	StylePreference  string
	ColorScheme      string
	OriginalImageRef string
	IsPublic         bool
}

// ProjectPage is one page of a project listing.
type ProjectPage struct {
	Projects []*domain.Project `json:"projects"`
	Total    int               `json:"total"`
	Pages    int               `json:"pages"`
	Page     int               `json:"current_page"`
	PerPage  int               `json:"per_page"`
}

func (s *ProjectService) CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("project name is required")
	}

	p, err := s.projects.Create(ctx, &domain.Project{
		Name:             name,
		Description:      in.Description,
		OwnerID:          in.OwnerID,
		RoomType:         in.RoomType,
		StylePreference:  in.StylePreference,
		ColorScheme:      in.ColorScheme,
		OriginalImageRef: in.OriginalImageRef,
		IsPublic:         in.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx, s.logger).Info("project created", "project_id", p.ID, "owner_id", p.OwnerID)
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// ListProjects pages through ownerID's projects, most recently updated first.
// Out of range page values fall back to the first page of ten.
func (s *ProjectService) ListProjects(ctx context.Context, ownerID string, page, perPage int) (*ProjectPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	projects, total, err := s.projects.List(ctx, ownerID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &ProjectPage{
		Projects: projects,
		Total:    total,
		Pages:    (total + perPage - 1) / perPage,
		Page:     page,
		PerPage:  perPage,
	}, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id string, u store.ProjectUpdate) (*domain.Project, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, domain.Invalid("project name must not be empty")
		}
		u.Name = &name
	}
	if err := s.projects.Update(ctx, id, u); err != nil {
		return nil, err
	}
	return s.GetProject(ctx, id)
}

func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("project deleted", "project_id", id)
	return nil
}

// AddFurniture places a new entry and returns its id with the resulting layout.
func (s *ProjectService) AddFurniture(ctx context.Context, projectID string, p layout.Placement) (int64, []domain.PlacedFurniture, error) {
	entryID, snapshot, err := s.layouts.AddFurniture(ctx, projectID, p)
	if err != nil {
		return 0, nil, err
	}
	metrics.LayoutMutations.WithLabelValues("add").Inc()
	logging.FromContext(ctx, s.logger).Info("furniture added", "project_id", projectID, "entry_id", entryID, "furniture_id", p.FurnitureRef)
	return entryID, snapshot, nil
}

func (s *ProjectService) UpdateFurniture(ctx context.Context, projectID string, entryID int64, patch layout.FurniturePatch) (domain.PlacedFurniture, []domain.PlacedFurniture, error) {
	entry, snapshot, err := s.layouts.UpdateFurniture(ctx, projectID, entryID, patch)
	if err != nil {
		return domain.PlacedFurniture{}, nil, err
	}
	metrics.LayoutMutations.WithLabelValues("update").Inc()
	return entry, snapshot, nil
}

// RemoveFurniture deletes an entry and returns it with the resulting layout.
func (s *ProjectService) RemoveFurniture(ctx context.Context, projectID string, entryID int64) (domain.PlacedFurniture, []domain.PlacedFurniture, error) {
	removed, snapshot, err := s.layouts.RemoveFurniture(ctx, projectID, entryID)
	if err != nil {
		return domain.PlacedFurniture{}, nil, err
	}
	metrics.LayoutMutations.WithLabelValues("remove").Inc()
	logging.FromContext(ctx, s.logger).Info("furniture removed", "project_id", projectID, "entry_id", entryID)
	return removed, snapshot, nil
}
