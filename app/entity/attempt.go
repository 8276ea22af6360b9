package entity

import "time"

// Attempt statuses. "submitted" means the backend accepted the request and
// the outcome is not yet known; "unverified" means the poll budget ran out
// before a terminal status was observed.
const (
	AttemptStatusSubmitted  = "submitted"
	AttemptStatusSuccessful = "successful"
	AttemptStatusFailed     = "failed"
	AttemptStatusUnverified = "unverified"
)

type DonationAttempt struct {
	ID uint64

	RequestID string
	FlowID    string

	Type      string
	AmountXAF int64
	Phone     string

	DonorName   *string
	DonorEmail  *string
	Message     *string
	IsAnonymous bool

	TransactionID *string
	Status        string
	FailureReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
