package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string
	DBPath      string
	LogLevel    string
	LogFile     string
	CatalogPath string

	DetectionBackend string
	YOLOModelPath    string
	ORTLibraryPath   string
	ClaudeAPIKey     string
	ClaudeModel      string

	RenderBackend string
	RenderTimeout time.Duration
	GeminiAPIKey  string
	GeminiModel   string

	StorageBackend string
	UploadDir      string
	TempDir        string
	S3Bucket       string
	S3Region       string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	PurgeMaxAge    time.Duration
	PurgeInterval  time.Duration
	PurgeOnStartup bool
	RedisAddr      string
	GenerationTTL  time.Duration
	NATSURL        string
	NATSSubject    string
	MaxUploadSize  int64
	MaxCanvasSize  int64
	MetricsEnabled bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		DBPath:      getEnv("DB_PATH", "/data/dreamspace.db"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		CatalogPath: getEnv("CATALOG_PATH", ""),

		DetectionBackend: getEnv("DETECTION_BACKEND", "yolo"),
		YOLOModelPath:    getEnv("YOLO_MODEL_PATH", "/models/yolov8n.onnx"),
		ORTLibraryPath:   getEnv("ORT_LIBRARY_PATH", ""),
		ClaudeAPIKey:     getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:      getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),

		RenderBackend: getEnv("RENDER_BACKEND", "mock"),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 2*time.Minute),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash-preview-image-generation"),

		StorageBackend: getEnv("STORAGE_BACKEND", "local"),
		UploadDir:      getEnv("UPLOAD_DIR", "/data/uploads"),
		TempDir:        getEnv("TEMP_DIR", "/data/tmp"),
		S3Bucket:       getEnv("S3_BUCKET_NAME", "dreamspace-ai-images"),
		S3Region:       getEnv("AWS_REGION", "ap-northeast-2"),
		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "dreamspace"),
		MinIOUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		PurgeMaxAge:    getEnvDuration("PURGE_MAX_AGE", 24*time.Hour),
		PurgeInterval:  getEnvDuration("PURGE_INTERVAL", time.Hour),
		PurgeOnStartup: getEnvBool("PURGE_TEMP_ON_STARTUP", true),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		GenerationTTL:  getEnvDuration("GENERATION_CACHE_TTL", 7*24*time.Hour),
		NATSURL:        getEnv("NATS_URL", ""),
		NATSSubject:    getEnv("NATS_SUBJECT", "dreamspace.generations"),
		MaxUploadSize:  getEnvInt64("MAX_UPLOAD_SIZE", 20<<20),
		MaxCanvasSize:  getEnvInt64("MAX_CANVAS_SIZE", 20<<20),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}
}

// Validate rejects settings that would make start-up destructive.
func (c *Config) Validate() error {
	if c.TempDir == "" {
		return errors.New("TEMP_DIR must not be empty")
	}
	if samePath(c.TempDir, c.UploadDir) {
		return errors.New("TEMP_DIR and UPLOAD_DIR must be different directories")
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "default", defaultVal)
		return defaultVal
	}
	return d
}
