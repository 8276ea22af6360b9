// Package flow tracks the dialog state of one donation submission. The web
// client renders exactly one of pending/success/error from it, so a flow
// holds a single state field and transitions are checked.
package flow

import (
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateSuccess State = "success"
	StateError   State = "error"
)

var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrInvalidTransition = errors.New("invalid flow transition")
)

type Flow struct {
	ID            string
	State         State
	Message       string
	TransactionID string

	// Form is the submitted draft. It is kept through error states so the
	// donor can retry without re-entering data, and dropped on success.
	Form *types.CreateDonationRequest

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the injected replacement for the web client's ambient browser
// storage: explicit create, explicit dismissal, explicit purge.
type Store interface {
	Create(form *types.CreateDonationRequest) *Flow
	Get(id string) (*Flow, error)
	MarkPending(id, transactionID string) error
	MarkSuccess(id string) error
	MarkError(id, message string) error
	Dismiss(id string) error
	Delete(id string)
	Purge(olderThan time.Time) int
}
