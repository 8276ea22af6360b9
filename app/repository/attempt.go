package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

var (
	ErrAttemptNotFound      = errors.New("donation attempt not found")
	ErrAttemptAlreadyExists = errors.New("donation attempt already exists")
)

type AttemptRepository struct {
	db DBTX
}

func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `
	id, request_id, flow_id, donation_type, amount_xaf, phone,
	donor_name, donor_email, message, is_anonymous,
	transaction_id, status, failure_reason, created_at, updated_at
`

func (r *AttemptRepository) Create(ctx context.Context, attempt *entity.DonationAttempt) error {
	query := `
		INSERT INTO donation_attempts (
			request_id, flow_id, donation_type, amount_xaf, phone,
			donor_name, donor_email, message, is_anonymous,
			transaction_id, status, failure_reason, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		attempt.RequestID,
		attempt.FlowID,
		attempt.Type,
		attempt.AmountXAF,
		attempt.Phone,
		nullableStringValue(attempt.DonorName),
		nullableStringValue(attempt.DonorEmail),
		nullableStringValue(attempt.Message),
		attempt.IsAnonymous,
		nullableStringValue(attempt.TransactionID),
		attempt.Status,
		nullableStringValue(attempt.FailureReason),
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrAttemptAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	attempt.ID = uint64(id)
	return nil
}

func (r *AttemptRepository) Update(ctx context.Context, attempt *entity.DonationAttempt) error {
	query := `
		UPDATE donation_attempts SET
			transaction_id = ?,
			status = ?,
			failure_reason = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableStringValue(attempt.TransactionID),
		attempt.Status,
		nullableStringValue(attempt.FailureReason),
		attempt.UpdatedAt,
		attempt.ID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint64) (*entity.DonationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM donation_attempts WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *AttemptRepository) FindByFlowID(ctx context.Context, flowID string) (*entity.DonationAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM donation_attempts WHERE flow_id = ? ORDER BY id DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, flowID))
}

// ListForReconcile returns attempts whose outcome is still open and whose
// transaction can be re-queried against the backend.
func (r *AttemptRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.DonationAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM donation_attempts
		WHERE status IN (?, ?)
		  AND transaction_id IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.AttemptStatusSubmitted,
		entity.AttemptStatusUnverified,
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.DonationAttempt, 0)
	for rows.Next() {
		item, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *AttemptRepository) scanOne(row *sql.Row) (*entity.DonationAttempt, error) {
	item, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttempt(row rowScanner) (*entity.DonationAttempt, error) {
	var item entity.DonationAttempt
	var donorName, donorEmail, message, transactionID, failureReason sql.NullString

	err := row.Scan(
		&item.ID,
		&item.RequestID,
		&item.FlowID,
		&item.Type,
		&item.AmountXAF,
		&item.Phone,
		&donorName,
		&donorEmail,
		&message,
		&item.IsAnonymous,
		&transactionID,
		&item.Status,
		&failureReason,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.DonorName = nullableString(donorName)
	item.DonorEmail = nullableString(donorEmail)
	item.Message = nullableString(message)
	item.TransactionID = nullableString(transactionID)
	item.FailureReason = nullableString(failureReason)
	return &item, nil
}
