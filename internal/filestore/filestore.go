// Package filestore stages scratch image files for in-flight requests and
// hands finished artifacts to a durable backend.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vbonduro/dreamspace/internal/domain"
	"github.com/vbonduro/dreamspace/internal/metrics"
)

// Backend is durable storage. Open wraps domain.ErrNotFound for missing keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (ref string, err error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

type Manager struct {
	tempDir string
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

func NewManager(tempDir string, backend Backend, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &Manager{tempDir: tempDir, backend: backend, logger: logger, now: time.Now}, nil
}

func (m *Manager) TempDir() string {
	return m.tempDir
}

// StageTemp writes data to a new scratch file. The returned release func
// deletes it, is safe to call more than once, and should be deferred.
func (m *Manager) StageTemp(data []byte, suffix string) (string, func(), error) {
	return m.StageTempFrom(bytes.NewReader(data), suffix)
}

// StageTempFrom is StageTemp for a stream.
func (m *Manager) StageTempFrom(r io.Reader, suffix string) (string, func(), error) {
	f, err := os.CreateTemp(m.tempDir, "stage-*"+suffix)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				m.logger.Error("failed to remove temp file", "path", path, "error", err)
			}
		})
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		release()
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return path, release, nil
}

// Persist copies a staged file to the backend under key. Any failure is
// reported as domain.ErrStorageFailure. The staged file is left in place.
func (m *Manager) Persist(ctx context.Context, tempPath, key string) (string, error) {
	f, err := os.Open(tempPath)
	if err != nil {
		return "", storageFailure(key, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			m.logger.Error("failed to close staged file", "path", tempPath, "error", err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return "", storageFailure(key, err)
	}

	ref, err := m.backend.Put(ctx, key, f, info.Size(), ContentType(key))
	if err != nil {
		return "", storageFailure(key, err)
	}
	return ref, nil
}

// Store stages data, persists it under key and releases the staged copy.
func (m *Manager) Store(ctx context.Context, data []byte, key string) (string, error) {
	path, release, err := m.StageTemp(data, filepath.Ext(key))
	if err != nil {
		return "", storageFailure(key, err)
	}
	defer release()
	return m.Persist(ctx, path, key)
}

// Open streams a persisted artifact.
func (m *Manager) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return m.backend.Open(ctx, key)
}

// Delete removes a persisted artifact.
func (m *Manager) Delete(ctx context.Context, key string) error {
	if err := m.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// PurgeOlderThan deletes regular files in dir last modified more than maxAge
// ago and returns how many it removed. Errors on individual files are logged
// and skipped.
func (m *Manager) PurgeOlderThan(dir string, maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	n := m.purge(dir, func(info os.FileInfo) bool {
		return info.ModTime().Before(cutoff)
	})
	metrics.FilesPurged.WithLabelValues("age").Add(float64(n))
	return n
}

// PurgeAll deletes every regular file in dir. Only call it on scratch
// directories before any request is served.
func (m *Manager) PurgeAll(dir string) int {
	n := m.purge(dir, func(os.FileInfo) bool { return true })
	metrics.FilesPurged.WithLabelValues("all").Add(float64(n))
	return n
}

// RunSweeper purges dir every interval until ctx is done. A non-positive
// interval disables the sweeper and RunSweeper returns at once.
func (m *Manager) RunSweeper(ctx context.Context, dir string, maxAge, interval time.Duration) {
	if interval <= 0 {
		m.logger.Info("file sweeper disabled", "dir", dir, "interval", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.PurgeOlderThan(dir, maxAge); n > 0 {
				m.logger.Info("purged stale files", "dir", dir, "count", n)
			}
		}
	}
}

func (m *Manager) purge(dir string, match func(os.FileInfo) bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.logger.Warn("failed to read purge directory", "dir", dir, "error", err)
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			m.logger.Warn("failed to stat file", "name", e.Name(), "error", err)
			continue
		}
		if !match(info) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			if !os.IsNotExist(err) {
				m.logger.Warn("failed to purge file", "name", e.Name(), "error", err)
			}
			continue
		}
		count++
	}
	return count
}

// ContentType guesses an image content type from a key's extension.
func ContentType(key string) string {
	if t := mime.TypeByExtension(filepath.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func storageFailure(key string, err error) error {
	return fmt.Errorf("failed to persist %s: %w", key, errors.Join(domain.ErrStorageFailure, err))
}
