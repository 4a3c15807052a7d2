package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/hrflow/internal/domain"
)

// AuditRepo — репозиторий append-only журнала audit-событий.
// Событий нельзя изменять и удалять: нет ни Update, ни Delete.
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo создаёт новый AuditRepo.
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Record записывает событие в журнал.
func (r *AuditRepo) Record(ctx context.Context, event domain.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, instance_id, step_id, kind, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.InstanceID,
		nullString(event.StepID),
		event.Kind,
		nullString(event.Actor),
		nullString(event.Detail),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByInstance возвращает события instance в порядке возникновения.
func (r *AuditRepo) ListByInstance(ctx context.Context, instanceID uuid.UUID) ([]domain.AuditEvent, error) {
	query := `
		SELECT id, instance_id, step_id, kind, actor, detail, created_at
		FROM audit_events
		WHERE instance_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanAuditEvent(rows pgx.Rows) (domain.AuditEvent, error) {
	var event domain.AuditEvent
	var stepID, actor, detail *string

	err := rows.Scan(
		&event.ID,
		&event.InstanceID,
		&stepID,
		&event.Kind,
		&actor,
		&detail,
		&event.CreatedAt,
	)
	if err != nil {
		return domain.AuditEvent{}, fmt.Errorf("scan audit event: %w", err)
	}

	if stepID != nil {
		event.StepID = *stepID
	}
	if actor != nil {
		event.Actor = *actor
	}
	if detail != nil {
		event.Detail = *detail
	}

	return event, nil
}
