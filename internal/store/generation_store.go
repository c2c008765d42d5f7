package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/dreamspace/internal/domain"
)

// GenerationStore is the append-only record of generation outcomes.
type GenerationStore struct {
	db *sql.DB
}

func NewGenerationStore(db *sql.DB) *GenerationStore {
	return &GenerationStore{db: db}
}

// Append records a finished generation. A second record for the same
// generation id is rejected.
func (s *GenerationStore) Append(ctx context.Context, r *domain.GenerationResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (generation_id, project_id, status, output_ref, prompt, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.GenerationID, r.ProjectID, string(r.Status), r.OutputRef, r.Prompt,
		r.Duration.Milliseconds(), r.Error, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record generation %s: %w", r.GenerationID, err)
	}
	return nil
}

// GetByID returns nil, nil when no record exists.
func (s *GenerationStore) GetByID(ctx context.Context, id string) (*domain.GenerationResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT generation_id, project_id, status, output_ref, prompt, duration_ms, error, created_at
		FROM generations WHERE generation_id = ?
	`, id)
	r, err := scanGeneration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}
	return r, nil
}

func (s *GenerationStore) ListByProject(ctx context.Context, projectID string) ([]*domain.GenerationResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation_id, project_id, status, output_ref, prompt, duration_ms, error, created_at
		FROM generations WHERE project_id = ? ORDER BY created_at ASC, generation_id ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	results := make([]*domain.GenerationResult, 0)
	for rows.Next() {
		r, err := scanGeneration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan generation: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}
	return results, nil
}

func scanGeneration(row scanner) (*domain.GenerationResult, error) {
	r := &domain.GenerationResult{}
	var status string
	var durationMS int64
	if err := row.Scan(&r.GenerationID, &r.ProjectID, &status, &r.OutputRef, &r.Prompt,
		&durationMS, &r.Error, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Status = domain.GenerationStatus(status)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	return r, nil
}
