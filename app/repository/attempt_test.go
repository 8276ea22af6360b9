package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
)

func newMock(t *testing.T) (*AttemptRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewAttemptRepository(db), mock
}

func strPtr(v string) *string { return &v }

func TestAttemptRepositoryCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO donation_attempts`).
		WithArgs(
			"req-1", "flow-1", "instant", int64(5000), "+237670000000",
			"Jean Donor", "jean@example.org", nil, false,
			nil, entity.AttemptStatusSubmitted, nil, now, now,
		).
		WillReturnResult(sqlmock.NewResult(7, 1))

	attempt := &entity.DonationAttempt{
		RequestID:  "req-1",
		FlowID:     "flow-1",
		Type:       "instant",
		AmountXAF:  5000,
		Phone:      "+237670000000",
		DonorName:  strPtr("Jean Donor"),
		DonorEmail: strPtr("jean@example.org"),
		Status:     entity.AttemptStatusSubmitted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(context.Background(), attempt); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if attempt.ID != 7 {
		t.Errorf("id = %d", attempt.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAttemptRepositoryCreateDuplicate(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`INSERT INTO donation_attempts`).
		WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "duplicate entry"})

	err := repo.Create(context.Background(), &entity.DonationAttempt{RequestID: "req-1"})
	if !errors.Is(err, ErrAttemptAlreadyExists) {
		t.Fatalf("expected ErrAttemptAlreadyExists, got %v", err)
	}
}

func TestAttemptRepositoryUpdateNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE donation_attempts SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &entity.DonationAttempt{ID: 99, Status: entity.AttemptStatusFailed})
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func attemptRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "request_id", "flow_id", "donation_type", "amount_xaf", "phone",
		"donor_name", "donor_email", "message", "is_anonymous",
		"transaction_id", "status", "failure_reason", "created_at", "updated_at",
	}).AddRow(
		3, "req-3", "flow-3", "instant", 5000, "+237670000000",
		nil, nil, nil, true,
		"txn-3", entity.AttemptStatusSubmitted, nil, now, now,
	)
}

func TestAttemptRepositoryFindByFlowID(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM donation_attempts WHERE flow_id = \?`).
		WithArgs("flow-3").
		WillReturnRows(attemptRows(now))

	item, err := repo.FindByFlowID(context.Background(), "flow-3")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if item == nil {
		t.Fatal("expected attempt")
	}
	if item.ID != 3 || item.TransactionID == nil || *item.TransactionID != "txn-3" {
		t.Errorf("attempt = %+v", item)
	}
	if item.DonorName != nil {
		t.Errorf("donor name should be nil, got %v", *item.DonorName)
	}
}

func TestAttemptRepositoryFindByIDMissingIsNil(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`FROM donation_attempts WHERE id = \?`).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item, err := repo.FindByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if item != nil {
		t.Errorf("expected nil, got %+v", item)
	}
}

func TestAttemptRepositoryListForReconcile(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	before := now.Add(-15 * time.Minute)

	mock.ExpectQuery(`WHERE status IN \(\?, \?\)`).
		WithArgs(entity.AttemptStatusSubmitted, entity.AttemptStatusUnverified, before, int32(50)).
		WillReturnRows(attemptRows(now))

	items, err := repo.ListForReconcile(context.Background(), before, 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAttemptEventRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock failed: %v", err)
	}
	defer db.Close()
	repo := NewAttemptEventRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO attempt_events`).
		WithArgs(uint64(3), "attempt_confirmed", entity.AttemptStatusSubmitted, entity.AttemptStatusSuccessful, now).
		WillReturnResult(sqlmock.NewResult(11, 1))

	old := entity.AttemptStatusSubmitted
	event := &entity.AttemptEvent{
		AttemptID: 3,
		EventType: "attempt_confirmed",
		OldStatus: &old,
		NewStatus: entity.AttemptStatusSuccessful,
		CreatedAt: now,
	}
	if err := repo.Create(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if event.ID != 11 {
		t.Errorf("id = %d", event.ID)
	}
}
