package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type PollOutcome string

const (
	// OutcomeConfirmed means the provider reported the payment as successful.
	OutcomeConfirmed PollOutcome = "confirmed"
	// OutcomeFailed means the provider reported failed or expired.
	OutcomeFailed PollOutcome = "failed"
	// OutcomeUnverified means the attempt budget ran out with no terminal
	// status. The charge may still have gone through on the provider side.
	OutcomeUnverified PollOutcome = "unverified"
)

type PollResult struct {
	Outcome  PollOutcome
	Status   types.TransactionStatus
	Attempts int
}

// UserMessage is the donor-facing wording for a poll result. Unverified gets
// distinct language: "try again" would be wrong advice when funds may have
// been captured.
func (r *PollResult) UserMessage() string {
	switch r.Outcome {
	case OutcomeConfirmed:
		return "thank you, your donation was received"
	case OutcomeFailed:
		if r.Status == types.TransactionStatusExpired {
			return "the payment request expired, please try again"
		}
		return "the payment did not complete, please try again"
	default:
		return "we could not confirm your payment, if you were charged please contact support"
	}
}

const (
	defaultPollInterval    = 5 * time.Second
	defaultPollMaxAttempts = 30
)

type transactionStatusClient interface {
	TransactionStatus(ctx context.Context, transactionID string) (types.TransactionStatus, error)
}

// StatusPoller watches one transaction until it settles or the attempt
// budget is exhausted. Queries are strictly sequential: the next one is
// scheduled only after the previous response and a full interval.
type StatusPoller struct {
	client      transactionStatusClient
	interval    time.Duration
	maxAttempts int
	logger      logrus.FieldLogger
}

func NewStatusPoller(client transactionStatusClient, interval time.Duration, maxAttempts int) *StatusPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}
	return &StatusPoller{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      factory.NewModuleLogger("status-poller"),
	}
}

// Wait blocks until a terminal status, budget exhaustion, or cancellation.
// Cancellation returns ctx.Err(); the caller must not touch any state after
// that. Transient query errors consume an attempt and polling continues.
func (p *StatusPoller) Wait(ctx context.Context, transactionID string) (*PollResult, error) {
	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		status, err := p.client.TransactionStatus(ctx, transactionID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WithError(err).
				WithField("transaction_id", transactionID).
				WithField("attempt", attempt).
				Warn("Transaction status query failed")
		} else {
			switch status {
			case types.TransactionStatusSuccessful:
				return &PollResult{Outcome: OutcomeConfirmed, Status: status, Attempts: attempt}, nil
			case types.TransactionStatusFailed, types.TransactionStatusExpired:
				return &PollResult{Outcome: OutcomeFailed, Status: status, Attempts: attempt}, nil
			}
		}

		timer.Reset(p.interval)
	}

	return &PollResult{Outcome: OutcomeUnverified, Attempts: p.maxAttempts}, nil
}
