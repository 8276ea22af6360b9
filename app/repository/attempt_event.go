package repository

import (
	"context"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

type AttemptEventRepository struct {
	db DBTX
}

func NewAttemptEventRepository(db DBTX) *AttemptEventRepository {
	return &AttemptEventRepository{db: db}
}

func (r *AttemptEventRepository) Create(ctx context.Context, event *entity.AttemptEvent) error {
	query := `
		INSERT INTO attempt_events (attempt_id, event_type, old_status, new_status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.AttemptID,
		event.EventType,
		nullableStringValue(event.OldStatus),
		event.NewStatus,
		event.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}
