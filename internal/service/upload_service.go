package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vbonduro/dreamspace/internal/detection"
	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/filestore"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/metrics"
)

type detector interface {
	Detect(ctx context.Context, path string) (*detection.Analysis, error)
}

// uploadStager is the subset of filestore.Manager that UploadService requires.
type uploadStager interface {
	StageTempFrom(r io.Reader, suffix string) (string, func(), error)
	Persist(ctx context.Context, tempPath, key string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type UploadService struct {
	detector detector
	files    uploadStager
	logger   *slog.Logger
}

func NewUploadService(d detector, files uploadStager, logger *slog.Logger) *UploadService {
	return &UploadService{detector: d, files: files, logger: logger}
}

type UploadResult struct {
	ImageRef string              `json:"image_ref"`
	Analysis *detection.Analysis `json:"analysis,omitempty"`
	// AnalysisError is set when the photo was stored but detection was
	// unavailable.
	AnalysisError string `json:"analysis_error,omitempty"`
}

// Upload stages a room photo, runs detection on it and persists it as
// "<uuid-hex>_<sanitized name>". The staged copy is always removed.
func (s *UploadService) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	key, err := filestore.UploadName(filename)
	if err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx, s.logger).With("key", key)

	path, release, err := s.files.StageTempFrom(r, filepath.Ext(key))
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer release()

	result := &UploadResult{}
	analysis, err := s.detector.Detect(ctx, path)
	switch {
	case err == nil:
		result.Analysis = analysis
		metrics.DetectedObjects.Add(float64(analysis.Total))
		logger.Info("detection complete", "objects", analysis.Total)
	case errors.Is(err, domain.ErrModelUnavailable):
		result.AnalysisError = domain.ErrModelUnavailable.Error()
		logger.Warn("detection unavailable, storing photo without analysis", "error", err)
	default:
		return nil, err
	}

	ref, err := s.files.Persist(ctx, path, key)
	if err != nil {
		return nil, err
	}
	result.ImageRef = ref
	logger.Info("upload stored", "ref", ref)
	return result, nil
}

// Analyze runs detection again on an already stored photo. Unlike Upload, an
// unavailable model is an error since there is nothing else to return.
func (s *UploadService) Analyze(ctx context.Context, ref string) (*detection.Analysis, error) {
	if ref == "" {
		return nil, domain.Invalid("image_ref is required")
	}
	if ref != filestore.SanitizeFilename(ref) {
		return nil, domain.Invalid("invalid image_ref %q", ref)
	}
	logger := logging.FromContext(ctx, s.logger).With("key", ref)

	rc, _, err := s.files.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			logger.Error("failed to close stored image", "error", err)
		}
	}()

	path, release, err := s.files.StageTempFrom(rc, filepath.Ext(ref))
	if err != nil {
		return nil, fmt.Errorf("failed to stage stored image: %w", err)
	}
	defer release()

	analysis, err := s.detector.Detect(ctx, path)
	if err != nil {
		return nil, err
	}
	metrics.DetectedObjects.Add(float64(analysis.Total))
	logger.Info("re-analysis complete", "objects", analysis.Total)
	return analysis, nil
}
