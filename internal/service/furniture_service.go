package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/filestore"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/metrics"
	"github.com/vbonduro/dreamspace/internal/prompt"
	"github.com/vbonduro/dreamspace/internal/render"
	"github.com/vbonduro/dreamspace/internal/store"
)

const defaultLibraryPerPage = 20

// furnitureRepository is the subset of store.FurnitureStore that
// FurnitureService requires.
type furnitureRepository interface {
	Create(ctx context.Context, f *domain.GeneratedFurniture) (*domain.GeneratedFurniture, error)
	List(ctx context.Context, f store.FurnitureFilter, limit, offset int) ([]*domain.GeneratedFurniture, int, error)
}

// FurnitureService renders single pieces of furniture from a description and
// keeps them in a per-owner library.
type FurnitureService struct {
	library       furnitureRepository
	renderer      render.Renderer
	files         artifactStore
	renderTimeout time.Duration
	logger        *slog.Logger
}

func NewFurnitureService(library furnitureRepository, renderer render.Renderer, files artifactStore, renderTimeout time.Duration, logger *slog.Logger) *FurnitureService {
	return &FurnitureService{
		library:       library,
		renderer:      renderer,
		files:         files,
		renderTimeout: renderTimeout,
		logger:        logger,
	}
}

type GenerateFurnitureInput struct {
	prompt.FurnitureSpec
	CreatedBy string
}

// FurniturePage is one page of a library listing.
type FurniturePage struct {
	Furniture []*domain.GeneratedFurniture `json:"furniture"`
	Total     int                          `json:"total"`
	Pages     int                          `json:"pages"`
	Page      int                          `json:"current_page"`
	PerPage   int                          `json:"per_page"`
}

// GenerateFurniture renders one piece of furniture, stores the image and adds
// it to the creator's library. Category and style are required.
func (s *FurnitureService) GenerateFurniture(ctx context.Context, in GenerateFurnitureInput) (*domain.GeneratedFurniture, error) {
	spec := in.FurnitureSpec
	spec.Category = strings.TrimSpace(spec.Category)
	spec.Style = strings.TrimSpace(spec.Style)
	if spec.Category == "" || spec.Style == "" {
		return nil, domain.Invalid("category and style are required")
	}
	spec = spec.WithDefaults()

	logger := logging.FromContext(ctx, s.logger).With("category", spec.Category, "style", spec.Style)
	text := prompt.Furniture(spec)

	out, err := renderWithin(ctx, s.renderer, s.renderTimeout, render.Input{
		Prompt:         text,
		NegativePrompt: prompt.NegativePrompt,
	})
	if err != nil {
		kind := domain.ErrRenderFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ErrRenderTimeout
		}
		return nil, s.fail(logger, kind, err)
	}

	key := filestore.FurnitureName()
	ref, err := s.files.Store(ctx, out.Image, key)
	if err != nil {
		return nil, s.fail(logger, domain.ErrStorageFailure, err)
	}

	f, err := s.library.Create(ctx, &domain.GeneratedFurniture{
		Name:         titleWord(spec.Style) + " " + titleWord(spec.Category),
		Category:     spec.Category,
		Style:        spec.Style,
		Color:        spec.Color,
		Material:     spec.Material,
		ImageRef:     ref,
		Prompt:       text,
		CustomPrompt: strings.TrimSpace(spec.CustomPrompt),
		CreatedBy:    in.CreatedBy,
	})
	if err != nil {
		if derr := s.files.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.Warn("failed to delete unrecorded furniture image", "key", key, "error", derr)
		}
		return nil, s.fail(logger, domain.ErrStorageFailure, err)
	}

	metrics.FurnitureRendersTotal.WithLabelValues(string(domain.GenerationCompleted)).Inc()
	logger.Info("furniture generated", "furniture_id", f.ID, "ref", ref)
	return f, nil
}

// ListLibrary pages through generated furniture, newest first. Out of range
// page values fall back to the first page of twenty.
func (s *FurnitureService) ListLibrary(ctx context.Context, filter store.FurnitureFilter, page, perPage int) (*FurniturePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultLibraryPerPage
	}
	perPage = min(perPage, maxPerPage)

	items, total, err := s.library.List(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	return &FurniturePage{
		Furniture: items,
		Total:     total,
		Pages:     (total + perPage - 1) / perPage,
		Page:      page,
		PerPage:   perPage,
	}, nil
}

func (s *FurnitureService) fail(logger *slog.Logger, kind, cause error) error {
	logger.Error("furniture generation failed", "kind", kind.Error(), "error", cause)
	metrics.FurnitureRendersTotal.WithLabelValues(string(domain.GenerationFailed)).Inc()
	return fmt.Errorf("furniture generation failed: %w", errors.Join(kind, cause))
}

func titleWord(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
