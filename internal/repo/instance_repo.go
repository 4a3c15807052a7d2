package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/hrflow/internal/domain"
)

// InstanceRepo — репозиторий для работы с instances.
//
// Update использует optimistic concurrency: строка обновляется только
// если current_step_index и status совпадают со значениями на момент
// чтения, иначе возвращается ErrConflict.
type InstanceRepo struct {
	pool *pgxpool.Pool
}

// NewInstanceRepo создаёт новый InstanceRepo.
func NewInstanceRepo(pool *pgxpool.Pool) *InstanceRepo {
	return &InstanceRepo{pool: pool}
}

// Create создаёт новый instance.
func (r *InstanceRepo) Create(ctx context.Context, inst *domain.Instance) error {
	stepsJSON, err := json.Marshal(inst.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	payloadJSON, err := json.Marshal(inst.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO instances (id, template_id, template_name, initiated_by, initiated_at,
		                       subject, payload, priority, idempotency_key, due_at,
		                       current_step_index, status, steps, wake_at, finished_at,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = r.pool.Exec(ctx, query,
		inst.ID,
		inst.TemplateID,
		inst.TemplateName,
		inst.InitiatedBy,
		inst.InitiatedAt,
		nullString(inst.Subject),
		payloadJSON,
		inst.Priority,
		nullString(inst.IdempotencyKey),
		inst.DueAt,
		inst.CurrentStepIndex,
		inst.Status,
		stepsJSON,
		inst.WakeAt,
		inst.FinishedAt,
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert instance: %w", err)
	}
	return nil
}

// GetByID возвращает instance по ID.
func (r *InstanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	query := `
		SELECT id, template_id, template_name, initiated_by, initiated_at,
		       subject, payload, priority, idempotency_key, due_at, current_step_index,
		       status, steps, wake_at, finished_at, created_at, updated_at
		FROM instances
		WHERE id = $1
	`
	return r.scanInstance(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает instance по ключу дедупликации.
func (r *InstanceRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Instance, error) {
	query := `
		SELECT id, template_id, template_name, initiated_by, initiated_at,
		       subject, payload, priority, idempotency_key, due_at, current_step_index,
		       status, steps, wake_at, finished_at, created_at, updated_at
		FROM instances
		WHERE idempotency_key = $1
	`
	return r.scanInstance(r.pool.QueryRow(ctx, query, key))
}

// Update обновляет instance с проверкой, что прочитанное состояние
// (prevIndex, prevStatus) ещё актуально. При расхождении — ErrConflict.
func (r *InstanceRepo) Update(ctx context.Context, inst *domain.Instance, prevIndex int, prevStatus domain.InstanceStatus) error {
	stepsJSON, err := json.Marshal(inst.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `
		UPDATE instances
		SET current_step_index = $2, status = $3, steps = $4,
		    wake_at = $5, finished_at = $6, updated_at = $7
		WHERE id = $1
		  AND current_step_index = $8
		  AND status = $9
	`
	result, err := r.pool.Exec(ctx, query,
		inst.ID,
		inst.CurrentStepIndex,
		inst.Status,
		stepsJSON,
		inst.WakeAt,
		inst.FinishedAt,
		inst.UpdatedAt,
		prevIndex,
		prevStatus,
	)
	if err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Либо записи нет, либо её уже поменял кто-то другой.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM instances WHERE id = $1)`, inst.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check instance exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// List возвращает список instances с фильтрацией.
func (r *InstanceRepo) List(ctx context.Context, filter domain.InstanceFilter) ([]domain.Instance, error) {
	orderBy := "created_at DESC"
	if filter.SortByDueAt {
		orderBy = "due_at ASC NULLS LAST"
	}

	query := fmt.Sprintf(`
		SELECT id, template_id, template_name, initiated_by, initiated_at,
		       subject, payload, priority, idempotency_key, due_at, current_step_index,
		       status, steps, wake_at, finished_at, created_at, updated_at
		FROM instances
		WHERE ($1::uuid IS NULL OR template_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::text IS NULL OR priority = $3)
		ORDER BY %s
		LIMIT $4 OFFSET $5
	`, orderBy)

	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.TemplateID),
		nullString(string(filter.Status)),
		nullString(string(filter.Priority)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		inst, err := r.scanInstanceFromRows(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// ListDue возвращает активные instances, у которых подошло время
// автоматической перепроверки (wake_at <= now).
func (r *InstanceRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Instance, error) {
	query := `
		SELECT id, template_id, template_name, initiated_by, initiated_at,
		       subject, payload, priority, idempotency_key, due_at, current_step_index,
		       status, steps, wake_at, finished_at, created_at, updated_at
		FROM instances
		WHERE status IN ('PENDING', 'IN_PROGRESS')
		  AND wake_at IS NOT NULL
		  AND wake_at <= $1
		ORDER BY wake_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		inst, err := r.scanInstanceFromRows(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, *inst)
	}
	return instances, rows.Err()
}

// --- Helpers ---

func (r *InstanceRepo) scanInstance(row pgx.Row) (*domain.Instance, error) {
	var inst domain.Instance
	var subject, idempotencyKey *string
	var payloadJSON, stepsJSON []byte

	err := row.Scan(
		&inst.ID,
		&inst.TemplateID,
		&inst.TemplateName,
		&inst.InitiatedBy,
		&inst.InitiatedAt,
		&subject,
		&payloadJSON,
		&inst.Priority,
		&idempotencyKey,
		&inst.DueAt,
		&inst.CurrentStepIndex,
		&inst.Status,
		&stepsJSON,
		&inst.WakeAt,
		&inst.FinishedAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}

	if subject != nil {
		inst.Subject = *subject
	}
	if idempotencyKey != nil {
		inst.IdempotencyKey = *idempotencyKey
	}
	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &inst.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if err := json.Unmarshal(stepsJSON, &inst.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &inst, nil
}

func (r *InstanceRepo) scanInstanceFromRows(rows pgx.Rows) (*domain.Instance, error) {
	var inst domain.Instance
	var subject, idempotencyKey *string
	var payloadJSON, stepsJSON []byte

	err := rows.Scan(
		&inst.ID,
		&inst.TemplateID,
		&inst.TemplateName,
		&inst.InitiatedBy,
		&inst.InitiatedAt,
		&subject,
		&payloadJSON,
		&inst.Priority,
		&idempotencyKey,
		&inst.DueAt,
		&inst.CurrentStepIndex,
		&inst.Status,
		&stepsJSON,
		&inst.WakeAt,
		&inst.FinishedAt,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan instance: %w", err)
	}

	if subject != nil {
		inst.Subject = *subject
	}
	if idempotencyKey != nil {
		inst.IdempotencyKey = *idempotencyKey
	}
	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &inst.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if err := json.Unmarshal(stepsJSON, &inst.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}

	return &inst, nil
}
