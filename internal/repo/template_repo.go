package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/hrflow/internal/domain"
)

// TemplateRepo — репозиторий для работы с templates.
// Шаги хранятся как jsonb: их структура принадлежит домену, не схеме.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// Create создаёт новый template.
func (r *TemplateRepo) Create(ctx context.Context, tpl *domain.Template) error {
	stepsJSON, err := json.Marshal(tpl.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		INSERT INTO templates (id, name, category, priority, steps,
		                       compliance_required, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.pool.Exec(ctx, query,
		tpl.ID,
		tpl.Name,
		nullString(tpl.Category),
		tpl.Priority,
		stepsJSON,
		tpl.ComplianceRequired,
		tpl.Active,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// GetByID возвращает template по ID, включая неактивные.
func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	query := `
		SELECT id, name, category, priority, steps,
		       compliance_required, active, created_at, updated_at
		FROM templates
		WHERE id = $1
	`
	return r.scanTemplate(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список templates с фильтрацией.
func (r *TemplateRepo) List(ctx context.Context, filter TemplateFilter) ([]domain.Template, error) {
	query := `
		SELECT id, name, category, priority, steps,
		       compliance_required, active, created_at, updated_at
		FROM templates
		WHERE ($1::text IS NULL OR category = $1)
		  AND ($2::boolean IS NULL OR active = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Category),
		filter.Active,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.Template
	for rows.Next() {
		tpl, err := r.scanTemplateFromRows(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tpl)
	}
	return templates, rows.Err()
}

// SetActive включает/выключает template.
func (r *TemplateRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE templates SET active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// TemplateFilter — параметры фильтрации templates.
type TemplateFilter struct {
	Category string
	Active   *bool
	Limit    int
	Offset   int
}

func (r *TemplateRepo) scanTemplate(row pgx.Row) (*domain.Template, error) {
	var tpl domain.Template
	var category *string
	var stepsJSON []byte

	err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&category,
		&tpl.Priority,
		&stepsJSON,
		&tpl.ComplianceRequired,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	if category != nil {
		tpl.Category = *category
	}
	if err := json.Unmarshal(stepsJSON, &tpl.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &tpl, nil
}

func (r *TemplateRepo) scanTemplateFromRows(rows pgx.Rows) (*domain.Template, error) {
	var tpl domain.Template
	var category *string
	var stepsJSON []byte

	err := rows.Scan(
		&tpl.ID,
		&tpl.Name,
		&category,
		&tpl.Priority,
		&stepsJSON,
		&tpl.ComplianceRequired,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}

	if category != nil {
		tpl.Category = *category
	}
	if err := json.Unmarshal(stepsJSON, &tpl.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &tpl, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// nullInt возвращает nil для нулевого int.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}
