package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vbonduro/dreamspace/internal/catalog"
	"github.com/vbonduro/dreamspace/internal/config"
	"github.com/vbonduro/dreamspace/internal/db"
	"github.com/vbonduro/dreamspace/internal/detection"
	claudedetect "github.com/vbonduro/dreamspace/internal/detection/claude"
	"github.com/vbonduro/dreamspace/internal/detection/yolo"
	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/events"
	"github.com/vbonduro/dreamspace/internal/filestore"
	"github.com/vbonduro/dreamspace/internal/filestore/local"
	miniostore "github.com/vbonduro/dreamspace/internal/filestore/minio"
	s3store "github.com/vbonduro/dreamspace/internal/filestore/s3"
	"github.com/vbonduro/dreamspace/internal/layout"
	"github.com/vbonduro/dreamspace/internal/logging"
	"github.com/vbonduro/dreamspace/internal/render"
	"github.com/vbonduro/dreamspace/internal/render/gemini"
	"github.com/vbonduro/dreamspace/internal/render/mock"
	"github.com/vbonduro/dreamspace/internal/service"
	"github.com/vbonduro/dreamspace/internal/store"
	"github.com/vbonduro/dreamspace/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return err
		}
		logger.Info("loaded furniture catalog", "path", cfg.CatalogPath)
	}

	projectStore := store.NewProjectStore(database)
	generations := newGenerationRepository(ctx, cfg, store.NewGenerationStore(database), logger)
	layouts := layout.NewStore(projectStore, cat)

	backend, err := newStorageBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	files, err := filestore.NewManager(cfg.TempDir, backend, logger)
	if err != nil {
		return err
	}
	if cfg.PurgeOnStartup {
		files.PurgeAll(cfg.TempDir)
	}
	go files.RunSweeper(ctx, cfg.TempDir, cfg.PurgeMaxAge, cfg.PurgeInterval)
	if ls, ok := backend.(*local.Store); ok {
		go files.RunSweeper(ctx, ls.Dir(), cfg.PurgeMaxAge, cfg.PurgeInterval)
	}

	model, closeModel := newDetectionModel(cfg, logger)
	defer closeModel()

	renderer, closeRenderer, err := newRenderer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRenderer()

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	server := web.NewServer(
		service.NewProjectService(projectStore, layouts, logger),
		service.NewGenerationService(generations, layouts, renderer, files, publisher, cfg.RenderTimeout, logger),
		service.NewUploadService(detection.NewAdapter(model), files, logger),
		service.NewFurnitureService(store.NewFurnitureStore(database), renderer, files, cfg.RenderTimeout, logger),
		files,
		cat,
		web.Options{
			MaxUploadSize:  cfg.MaxUploadSize,
			MaxCanvasSize:  cfg.MaxCanvasSize,
			MetricsEnabled: cfg.MetricsEnabled,
		},
		logger,
	)
	return server.ListenAndServe(ctx, cfg.ListenAddr, 30*time.Second)
}

// generationRepository is what the generation service persists through;
// *store.GenerationStore and its cached wrapper both satisfy it.
type generationRepository interface {
	Append(ctx context.Context, r *domain.GenerationResult) error
	GetByID(ctx context.Context, id string) (*domain.GenerationResult, error)
	ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationResult, error)
}

func newGenerationRepository(ctx context.Context, cfg *config.Config, primary *store.GenerationStore, logger *slog.Logger) generationRepository {
	if cfg.RedisAddr == "" {
		return primary
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, generation lookups will hit the database until it recovers", "addr", cfg.RedisAddr, "error", err)
	} else {
		logger.Info("caching generation records in redis", "addr", cfg.RedisAddr)
	}
	return store.NewCachedGenerationStore(primary, store.NewGenerationCache(client, cfg.GenerationTTL), logger)
}

func newStorageBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (filestore.Backend, error) {
	switch cfg.StorageBackend {
	case "s3":
		logger.Info("using S3 storage backend", "bucket", cfg.S3Bucket, "region", cfg.S3Region)
		return s3store.New(ctx, cfg.S3Region, cfg.S3Bucket)
	case "minio":
		logger.Info("using MinIO storage backend", "endpoint", cfg.MinIOEndpoint, "bucket", cfg.MinIOBucket)
		s, err := miniostore.New(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		logger.Info("using local storage backend", "dir", cfg.UploadDir)
		return local.New(cfg.UploadDir)
	}
}

// newDetectionModel returns nil when no model could be loaded; uploads are
// then stored without analysis.
func newDetectionModel(cfg *config.Config, logger *slog.Logger) (detection.Model, func()) {
	noop := func() {}
	switch cfg.DetectionBackend {
	case "claude":
		d, err := claudedetect.New(cfg.ClaudeAPIKey, cfg.ClaudeModel)
		if err != nil {
			logger.Error("claude detection unavailable", "error", err)
			return nil, noop
		}
		logger.Info("using Claude detection backend", "model", cfg.ClaudeModel)
		return d, noop
	case "yolo":
		if err := yolo.InitRuntime(cfg.ORTLibraryPath); err != nil {
			logger.Error("onnx runtime unavailable", "error", err)
			return nil, noop
		}
		d, err := yolo.New(cfg.YOLOModelPath)
		if err != nil {
			logger.Error("failed to load YOLO model", "path", cfg.YOLOModelPath, "error", err)
			return nil, noop
		}
		logger.Info("using YOLO detection backend", "model", filepath.Base(cfg.YOLOModelPath))
		return d, d.Close
	default:
		logger.Warn("object detection disabled", "backend", cfg.DetectionBackend)
		return nil, noop
	}
}

func newRenderer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (render.Renderer, func(), error) {
	switch cfg.RenderBackend {
	case "gemini":
		r, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Gemini render backend", "model", cfg.GeminiModel)
		return r, func() {
			if err := r.Close(); err != nil {
				logger.Error("failed to close gemini client", "error", err)
			}
		}, nil
	default:
		logger.Info("using mock render backend")
		return mock.New(), func() {}, nil
	}
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, func()) {
	if cfg.NATSURL == "" {
		return events.Noop{}, func() {}
	}
	p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		logger.Error("nats unavailable, generation events disabled", "url", cfg.NATSURL, "error", err)
		return events.Noop{}, func() {}
	}
	logger.Info("publishing generation events", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	return p, p.Close
}
