package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type scriptedStatusClient struct {
	statuses []types.TransactionStatus
	errs     []error
	calls    int
}

func (c *scriptedStatusClient) TransactionStatus(_ context.Context, _ string) (types.TransactionStatus, error) {
	idx := c.calls
	c.calls++
	if idx >= len(c.statuses) {
		return types.TransactionStatusPending, nil
	}
	if c.errs != nil && c.errs[idx] != nil {
		return "", c.errs[idx]
	}
	return c.statuses[idx], nil
}

func TestStatusPollerConfirmsAfterPendingStatuses(t *testing.T) {
	client := &scriptedStatusClient{statuses: []types.TransactionStatus{
		types.TransactionStatusPending,
		types.TransactionStatusPending,
		types.TransactionStatusSuccessful,
	}}
	poller := NewStatusPoller(client, time.Millisecond, 30)

	result, err := poller.Wait(context.Background(), "txn-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Errorf("expected confirmed outcome, got %s", result.Outcome)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if client.calls != 3 {
		t.Errorf("expected 3 queries, got %d", client.calls)
	}
}

func TestStatusPollerStopsOnFailedStatus(t *testing.T) {
	client := &scriptedStatusClient{statuses: []types.TransactionStatus{
		types.TransactionStatusPending,
		types.TransactionStatusFailed,
	}}
	poller := NewStatusPoller(client, time.Millisecond, 30)

	result, err := poller.Wait(context.Background(), "txn-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("expected failed outcome, got %s", result.Outcome)
	}
	if result.Status != types.TransactionStatusFailed {
		t.Errorf("expected failed status, got %s", result.Status)
	}
	if result.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", result.Attempts)
	}
}

func TestStatusPollerStopsOnExpiredStatus(t *testing.T) {
	client := &scriptedStatusClient{statuses: []types.TransactionStatus{
		types.TransactionStatusExpired,
	}}
	poller := NewStatusPoller(client, time.Millisecond, 30)

	result, err := poller.Wait(context.Background(), "txn-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeFailed {
		t.Errorf("expected failed outcome, got %s", result.Outcome)
	}
	if result.UserMessage() != "the payment request expired, please try again" {
		t.Errorf("unexpected user message: %s", result.UserMessage())
	}
}

func TestStatusPollerExhaustsBudgetAsUnverified(t *testing.T) {
	client := &scriptedStatusClient{}
	poller := NewStatusPoller(client, time.Millisecond, 30)

	result, err := poller.Wait(context.Background(), "txn-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeUnverified {
		t.Errorf("expected unverified outcome, got %s", result.Outcome)
	}
	if result.Attempts != 30 {
		t.Errorf("expected 30 attempts, got %d", result.Attempts)
	}
	if client.calls != 30 {
		t.Errorf("expected exactly 30 queries, got %d", client.calls)
	}
}

func TestStatusPollerContinuesAfterTransientError(t *testing.T) {
	client := &scriptedStatusClient{
		statuses: []types.TransactionStatus{"", types.TransactionStatusSuccessful},
		errs:     []error{errors.New("connection reset"), nil},
	}
	poller := NewStatusPoller(client, time.Millisecond, 30)

	result, err := poller.Wait(context.Background(), "txn-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeConfirmed {
		t.Errorf("expected confirmed outcome, got %s", result.Outcome)
	}
	if result.Attempts != 2 {
		t.Errorf("expected the error query to consume an attempt, got %d", result.Attempts)
	}
}

func TestStatusPollerStopsOnCancelledContext(t *testing.T) {
	client := &scriptedStatusClient{}
	poller := NewStatusPoller(client, time.Hour, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := poller.Wait(ctx, "txn-6")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result on cancellation, got %+v", result)
	}
	if client.calls != 0 {
		t.Errorf("expected no queries after cancellation, got %d", client.calls)
	}
}

func TestNewStatusPollerDefaults(t *testing.T) {
	poller := NewStatusPoller(&scriptedStatusClient{}, 0, 0)
	if poller.interval != defaultPollInterval {
		t.Errorf("expected default interval, got %s", poller.interval)
	}
	if poller.maxAttempts != defaultPollMaxAttempts {
		t.Errorf("expected default max attempts, got %d", poller.maxAttempts)
	}
}
