package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/dreamspace/internal/domain"
)

const furnitureColumns = `id, name, category, style, color, material, image_ref, prompt, custom_prompt, created_by, created_at`

// FurnitureStore keeps the library of individually generated furniture.
type FurnitureStore struct {
	db *sql.DB
}

func NewFurnitureStore(db *sql.DB) *FurnitureStore {
	return &FurnitureStore{db: db}
}

// FurnitureFilter narrows a library listing. Empty fields match everything.
type FurnitureFilter struct {
	CreatedBy string
	Category  string
	Style     string
}

func (s *FurnitureStore) Create(ctx context.Context, f *domain.GeneratedFurniture) (*domain.GeneratedFurniture, error) {
	created := *f
	created.ID = uuid.NewString()
	created.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_furniture (`+furnitureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, created.ID, created.Name, created.Category, created.Style, created.Color, created.Material,
		created.ImageRef, created.Prompt, created.CustomPrompt, created.CreatedBy, created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create furniture: %w", err)
	}
	return &created, nil
}

// List returns one page of the filtered library, newest first, plus the total
// number of matching rows.
func (s *FurnitureStore) List(ctx context.Context, f FurnitureFilter, limit, offset int) ([]*domain.GeneratedFurniture, int, error) {
	var conds []string
	var args []any
	if f.CreatedBy != "" {
		conds = append(conds, "created_by = ?")
		args = append(args, f.CreatedBy)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Style != "" {
		conds = append(conds, "style = ?")
		args = append(args, f.Style)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generated_furniture `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count furniture: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+furnitureColumns+` FROM generated_furniture `+where+` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list furniture: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	items := make([]*domain.GeneratedFurniture, 0)
	for rows.Next() {
		item := &domain.GeneratedFurniture{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Style, &item.Color, &item.Material,
			&item.ImageRef, &item.Prompt, &item.CustomPrompt, &item.CreatedBy, &item.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan furniture: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating furniture: %w", err)
	}
	return items, total, nil
}
