package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/events"
	"github.com/vbonduro/dreamspace/internal/filestore"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/metrics"
	"github.com/vbonduro/dreamspace/internal/prompt"
	"github.com/vbonduro/dreamspace/internal/render"
)

// generationRepository is the subset of store.GenerationStore that
// GenerationService requires.
type generationRepository interface {
	Append(ctx context.Context, r *domain.GenerationResult) error
	GetByID(ctx context.Context, id string) (*domain.GenerationResult, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationResult, error)
}

// layoutReader is the subset of layout.Store that GenerationService requires.
type layoutReader interface {
	Snapshot(ctx context.Context, projectID string) ([]domain.PlacedFurniture, error)
	CanvasItems(layout []domain.PlacedFurniture) []domain.CanvasItem
}

// artifactStore is the subset of filestore.Manager that the services require.
type artifactStore interface {
	StageTemp(data []byte, suffix string) (string, func(), error)
	Persist(ctx context.Context, tempPath, key string) (string, error)
	Store(ctx context.Context, data []byte, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type GenerateInput struct {
	ProjectID        string
	CanvasImage      []byte
	Furniture        []domain.CanvasItem
	OriginalImageRef string
	// Timeout bounds the render step; zero uses the service default.
	Timeout time.Duration
}

type GenerationService struct {
	generations   generationRepository
	layouts       layoutReader
	renderer      render.Renderer
	files         artifactStore
	events        events.Publisher
	renderTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewGenerationService(
	generations generationRepository,
	layouts layoutReader,
	renderer render.Renderer,
	files artifactStore,
	publisher events.Publisher,
	renderTimeout time.Duration,
	logger *slog.Logger,
) *GenerationService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &GenerationService{
		generations:   generations,
		layouts:       layouts,
		renderer:      renderer,
		files:         files,
		events:        publisher,
		renderTimeout: renderTimeout,
		logger:        logger,
		now:           time.Now,
	}
}

// Generate runs the generation pipeline for one request. Every error after
// validation is a *domain.GenerationError carrying the allocated id, and a
// failed record is kept for it.
func (s *GenerationService) Generate(ctx context.Context, in GenerateInput) (*domain.GenerationResult, error) {
	if err := validateGenerate(in); err != nil {
		metrics.GenerationsTotal.WithLabelValues(string(domain.GenerationFailed), kindLabel(domain.ErrInvalidRequest)).Inc()
		return nil, &domain.GenerationError{Kind: domain.ErrInvalidRequest, Err: err}
	}

	req := domain.GenerationRequest{
		GenerationID:     newGenerationID(),
		ProjectID:        in.ProjectID,
		CanvasImage:      in.CanvasImage,
		Furniture:        slices.Clone(in.Furniture),
		OriginalImageRef: in.OriginalImageRef,
		Status:           domain.GenerationPending,
	}
	logger := logging.FromContext(ctx, s.logger).With("generation_id", req.GenerationID, "project_id", req.ProjectID)
	start := s.now()
	logger.Info("generation started", "furniture", len(req.Furniture), "canvas_bytes", len(req.CanvasImage))

	if ref, err := s.files.Store(ctx, req.CanvasImage, filestore.CanvasName()); err != nil {
		logger.Warn("failed to save canvas copy", "error", err)
	} else {
		logger.Debug("canvas copy saved", "ref", ref)
	}

	text := prompt.Build(req.Furniture, prompt.Context{SourceHint: req.OriginalImageRef})
	logger.Debug("prompt built", "prompt", text)

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = s.renderTimeout
	}
	renderStart := s.now()
	out, err := s.render(ctx, timeout, render.Input{
		Canvas:         req.CanvasImage,
		Prompt:         text,
		NegativePrompt: prompt.NegativePrompt,
		Furniture:      req.Furniture,
	})
	metrics.GenerationDuration.WithLabelValues("render").Observe(s.now().Sub(renderStart).Seconds())
	if err != nil {
		kind := domain.ErrRenderFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ErrRenderTimeout
		}
		return nil, s.fail(ctx, logger, req, text, start, kind, err)
	}

	key := filestore.GeneratedName()
	ref, err := s.persistOutput(ctx, out.Image, key)
	if err != nil {
		return nil, s.fail(ctx, logger, req, text, start, domain.ErrStorageFailure, err)
	}

	result := &domain.GenerationResult{
		GenerationID: req.GenerationID,
		ProjectID:    req.ProjectID,
		Status:       domain.GenerationCompleted,
		OutputRef:    ref,
		Prompt:       text,
		Duration:     s.now().Sub(start),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.generations.Append(ctx, result); err != nil {
		if derr := s.files.Delete(context.WithoutCancel(ctx), key); derr != nil {
			logger.Warn("failed to delete unrecorded output", "key", key, "error", derr)
		}
		return nil, s.fail(ctx, logger, req, text, start, domain.ErrStorageFailure, err)
	}

	s.publish(ctx, logger, result)
	metrics.GenerationsTotal.WithLabelValues(string(domain.GenerationCompleted), "").Inc()
	metrics.GenerationDuration.WithLabelValues("total").Observe(result.Duration.Seconds())
	logger.Info("generation completed", "ref", ref, "duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// GenerateForProject generates from the project's current layout.
func (s *GenerationService) GenerateForProject(ctx context.Context, projectID string, canvas []byte, originalImageRef string) (*domain.GenerationResult, error) {
	snapshot, err := s.layouts.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.Generate(ctx, GenerateInput{
		ProjectID:        projectID,
		CanvasImage:      canvas,
		Furniture:        s.layouts.CanvasItems(snapshot),
		OriginalImageRef: originalImageRef,
	})
}

func (s *GenerationService) GetGeneration(ctx context.Context, id string) (*domain.GenerationResult, error) {
	r, err := s.generations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("generation %s: %w", id, domain.ErrNotFound)
	}
	return r, nil
}

func (s *GenerationService) ListGenerations(ctx context.Context, projectID string) ([]*domain.GenerationResult, error) {
	return s.generations.ListByProject(ctx, projectID)
}

func (s *GenerationService) render(ctx context.Context, timeout time.Duration, in render.Input) (*render.Output, error) {
	return renderWithin(ctx, s.renderer, timeout, in)
}

// renderWithin calls r and gives up once timeout passes, even if r ignores
// cancellation.
func renderWithin(ctx context.Context, r render.Renderer, timeout time.Duration, in render.Input) (*render.Output, error) {
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out *render.Output
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := r.Render(rctx, in)
		done <- outcome{out, err}
	}()

	select {
	case <-rctx.Done():
		return nil, fmt.Errorf("render did not finish: %w", rctx.Err())
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		if o.out == nil || len(o.out.Image) == 0 {
			return nil, errors.New("renderer returned no image")
		}
		return o.out, nil
	}
}

func (s *GenerationService) persistOutput(ctx context.Context, image []byte, key string) (string, error) {
	path, release, err := s.files.StageTemp(image, ".png")
	if err != nil {
		return "", err
	}
	defer release()
	return s.files.Persist(ctx, path, key)
}

// fail records a failed result for req and returns the error for the caller.
func (s *GenerationService) fail(ctx context.Context, logger *slog.Logger, req domain.GenerationRequest, text string, start time.Time, kind, cause error) error {
	genErr := &domain.GenerationError{GenerationID: req.GenerationID, Kind: kind, Err: cause}
	logger.Error("generation failed", "kind", kind.Error(), "error", cause)

	result := &domain.GenerationResult{
		GenerationID: req.GenerationID,
		ProjectID:    req.ProjectID,
		Status:       domain.GenerationFailed,
		Prompt:       text,
		Duration:     s.now().Sub(start),
		Error:        kind.Error(),
		CreatedAt:    s.now().UTC(),
	}
	// The request context may already be done after a timeout.
	recordCtx := context.WithoutCancel(ctx)
	if err := s.generations.Append(recordCtx, result); err != nil {
		logger.Error("failed to record failed generation", "error", err)
	}
	s.publish(recordCtx, logger, result)
	metrics.GenerationsTotal.WithLabelValues(string(domain.GenerationFailed), kindLabel(kind)).Inc()
	return genErr
}

func (s *GenerationService) publish(ctx context.Context, logger *slog.Logger, r *domain.GenerationResult) {
	if err := s.events.PublishGeneration(ctx, r); err != nil {
		logger.Warn("failed to publish generation event", "error", err)
	}
}

func validateGenerate(in GenerateInput) error {
	if len(in.CanvasImage) == 0 {
		return errors.New("canvas_image is required")
	}
	if len(in.Furniture) == 0 {
		return errors.New("furniture must not be empty")
	}
	for i, item := range in.Furniture {
		if item.Name == "" {
			return fmt.Errorf("furniture[%d] has no name", i)
		}
	}
	return nil
}

// newGenerationID returns "gen_" followed by 16 hex digits.
func newGenerationID() string {
	id := uuid.New()
	return "gen_" + hex.EncodeToString(id[:8])
}

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(kind, domain.ErrRenderTimeout):
		return "render_timeout"
	case errors.Is(kind, domain.ErrRenderFailure):
		return "render_failure"
	case errors.Is(kind, domain.ErrStorageFailure):
		return "storage_failure"
	default:
		return "internal"
	}
}
