package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/dreamspace/internal/domain"
)

const projectColumns = `id, name, description, owner_id, furniture_layout, next_entry_id,
	style_preference, color_scheme, room_type, original_image_ref, is_public, created_at, updated_at`

type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// ProjectUpdate lists the user-editable project fields; nil fields are left unchanged.
type ProjectUpdate struct {
	Name            *string
	Description     *string
	StylePreference *string
	ColorScheme     *string
	IsPublic        *bool
}

func (s *ProjectStore) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	now := time.Now().UTC()
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner_id, furniture_layout, next_entry_id,
			style_preference, color_scheme, room_type, original_image_ref, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, '[]', 1, ?, ?, ?, ?, ?, ?, ?)
	`, id, p.Name, p.Description, p.OwnerID, p.StylePreference, p.ColorScheme, p.RoomType,
		p.OriginalImageRef, p.IsPublic, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID returns nil, nil when the project does not exist.
func (s *ProjectStore) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List returns one page of projects ordered by most recently updated, plus
// the total number of matching projects. An empty ownerID lists every project.
func (s *ProjectStore) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Project, int, error) {
	where := ""
	args := []any{}
	if ownerID != "" {
		where = "WHERE owner_id = ?"
		args = append(args, ownerID)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects `+where+` ORDER BY updated_at DESC, id ASC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, total, nil
}

func (s *ProjectStore) Update(ctx context.Context, id string, u ProjectUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.StylePreference != nil {
		sets = append(sets, "style_preference = ?")
		args = append(args, *u.StylePreference)
	}
	if u.ColorScheme != nil {
		sets = append(sets, "color_scheme = ?")
		args = append(args, *u.ColorScheme)
	}
	if u.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *u.IsPublic)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRow(result, "project")
}

// SaveLayout replaces the stored layout and entry-id counter of a project.
func (s *ProjectStore) SaveLayout(ctx context.Context, id string, layout []domain.PlacedFurniture, nextEntryID int64) error {
	if layout == nil {
		layout = []domain.PlacedFurniture{}
	}
	data, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET furniture_layout = ?, next_entry_id = ?, updated_at = ? WHERE id = ?
	`, string(data), nextEntryID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to save layout: %w", err)
	}
	return requireRow(result, "project")
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRow(result, "project")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	p := &domain.Project{}
	var layout string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &layout, &p.NextEntryID,
		&p.StylePreference, &p.ColorScheme, &p.RoomType, &p.OriginalImageRef, &p.IsPublic,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.FurnitureLayout = []domain.PlacedFurniture{}
	if err := json.Unmarshal([]byte(layout), &p.FurnitureLayout); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	if p.FurnitureLayout == nil {
		p.FurnitureLayout = []domain.PlacedFurniture{}
	}
	return p, nil
}

func requireRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	return nil
}
