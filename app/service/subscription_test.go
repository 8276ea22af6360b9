package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type fakeSubscriptionBackend struct {
	mySubscriptionFunc func(ctx context.Context, email string) (*types.Subscription, error)
	updateFunc         func(ctx context.Context, id string, input *backend.UpdateSubscriptionInput) error
	pauseFunc          func(ctx context.Context, id, donorEmail string, pauseDuration int32) error
	resumeFunc         func(ctx context.Context, id, donorEmail string) error
	cancelFunc         func(ctx context.Context, id, donorEmail, cancelReason string) error

	fetchCalls  int
	pauseCalls  int
	resumeCalls int
	cancelCalls int
}

func (f *fakeSubscriptionBackend) MySubscription(ctx context.Context, email string) (*types.Subscription, error) {
	f.fetchCalls++
	if f.mySubscriptionFunc == nil {
		return nil, nil
	}
	return f.mySubscriptionFunc(ctx, email)
}

func (f *fakeSubscriptionBackend) UpdateSubscription(ctx context.Context, id string, input *backend.UpdateSubscriptionInput) error {
	if f.updateFunc == nil {
		return nil
	}
	return f.updateFunc(ctx, id, input)
}

func (f *fakeSubscriptionBackend) PauseSubscription(ctx context.Context, id, donorEmail string, pauseDuration int32) error {
	f.pauseCalls++
	if f.pauseFunc == nil {
		return nil
	}
	return f.pauseFunc(ctx, id, donorEmail, pauseDuration)
}

func (f *fakeSubscriptionBackend) ResumeSubscription(ctx context.Context, id, donorEmail string) error {
	f.resumeCalls++
	if f.resumeFunc == nil {
		return nil
	}
	return f.resumeFunc(ctx, id, donorEmail)
}

func (f *fakeSubscriptionBackend) CancelSubscription(ctx context.Context, id, donorEmail, cancelReason string) error {
	f.cancelCalls++
	if f.cancelFunc == nil {
		return nil
	}
	return f.cancelFunc(ctx, id, donorEmail, cancelReason)
}

func activeSubscription(email string) *types.Subscription {
	return &types.Subscription{
		ID:         "sub-1",
		DonorName:  "Jane Donor",
		DonorEmail: email,
		Phone:      "677000010",
		Amount:     2500,
		Status:     types.SubscriptionStatusActive,
	}
}

func TestFetchReturnsNilWhenNoSubscription(t *testing.T) {
	manager := NewSubscriptionManager(&fakeSubscriptionBackend{})

	item, err := manager.Fetch(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil subscription, got %+v", item)
	}
}

func TestPauseThenResumeRoundTrip(t *testing.T) {
	status := types.SubscriptionStatusActive
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			item := activeSubscription(email)
			item.Status = status
			return item, nil
		},
		pauseFunc: func(_ context.Context, _, _ string, pauseDuration int32) error {
			if pauseDuration != 3 {
				t.Errorf("expected pause duration 3, got %d", pauseDuration)
			}
			status = types.SubscriptionStatusPaused
			return nil
		},
		resumeFunc: func(_ context.Context, _, _ string) error {
			status = types.SubscriptionStatusActive
			return nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	paused, err := manager.Pause(context.Background(), &types.PauseSubscriptionRequest{
		ID:            "sub-1",
		DonorEmail:    "jane@example.com",
		PauseDuration: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !paused.Status.Paused() {
		t.Fatalf("expected paused subscription after pause, got %s", paused.Status)
	}

	resumed, err := manager.Resume(context.Background(), &types.ResumeSubscriptionRequest{
		ID:         "sub-1",
		DonorEmail: "jane@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resumed.Status != types.SubscriptionStatusActive {
		t.Errorf("expected active subscription after resume, got %s", resumed.Status)
	}
}

func TestMutatingOperationsAreMutuallyExclusivePerSubscription(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			item := activeSubscription(email)
			if email == "bob@example.com" {
				item.ID = "sub-2"
			}
			return item, nil
		},
		pauseFunc: func(_ context.Context, _, _ string, _ int32) error {
			close(started)
			<-unblock
			return nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	done := make(chan error, 1)
	go func() {
		_, err := manager.Pause(context.Background(), &types.PauseSubscriptionRequest{
			ID:            "sub-1",
			DonorEmail:    "jane@example.com",
			PauseDuration: 1,
		})
		done <- err
	}()

	<-started
	_, err := manager.Resume(context.Background(), &types.ResumeSubscriptionRequest{
		ID:         "sub-1",
		DonorEmail: "jane@example.com",
	})
	if !errors.Is(err, ErrOperationInFlight) {
		t.Fatalf("expected ErrOperationInFlight while pause is running, got %v", err)
	}

	// an unrelated subscription is not held up by jane's in-flight pause
	if _, err := manager.Update(context.Background(), &types.UpdateSubscriptionRequest{
		ID:         "sub-2",
		DonorEmail: "bob@example.com",
		Amount:     3000,
		Phone:      "677000011",
	}); err != nil {
		t.Fatalf("unexpected error for a different subscription: %v", err)
	}

	close(unblock)
	if err := <-done; err != nil {
		t.Fatalf("unexpected pause error: %v", err)
	}
	if subscriptionBackend.resumeCalls != 0 {
		t.Errorf("expected gated resume to never reach the backend, got %d calls", subscriptionBackend.resumeCalls)
	}
}

func TestBusyGateReleasedAfterFailure(t *testing.T) {
	callErr := errors.New("backend down")
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			return activeSubscription(email), nil
		},
		pauseFunc: func(_ context.Context, _, _ string, _ int32) error {
			return callErr
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	req := &types.PauseSubscriptionRequest{ID: "sub-1", DonorEmail: "jane@example.com", PauseDuration: 1}
	if _, err := manager.Pause(context.Background(), req); !errors.Is(err, callErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if _, err := manager.Pause(context.Background(), req); !errors.Is(err, callErr) {
		t.Fatalf("expected a second attempt to run, got %v", err)
	}
	if subscriptionBackend.pauseCalls != 2 {
		t.Errorf("expected 2 pause calls, got %d", subscriptionBackend.pauseCalls)
	}
}

func TestMutationsRefuseWhenSubscriptionCancelled(t *testing.T) {
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			item := activeSubscription(email)
			item.Status = types.SubscriptionStatusCancelled
			return item, nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	_, err := manager.Pause(context.Background(), &types.PauseSubscriptionRequest{
		ID:            "sub-1",
		DonorEmail:    "jane@example.com",
		PauseDuration: 1,
	})
	if !errors.Is(err, ErrSubscriptionCancelled) {
		t.Fatalf("expected ErrSubscriptionCancelled, got %v", err)
	}
	if subscriptionBackend.pauseCalls != 0 {
		t.Errorf("expected no pause call for a cancelled subscription, got %d", subscriptionBackend.pauseCalls)
	}
}

func TestPauseRefusesWhenAlreadyPaused(t *testing.T) {
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			item := activeSubscription(email)
			item.Status = types.SubscriptionStatusPaused
			return item, nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	_, err := manager.Pause(context.Background(), &types.PauseSubscriptionRequest{
		ID:            "sub-1",
		DonorEmail:    "jane@example.com",
		PauseDuration: 2,
	})
	if !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("expected ErrAlreadyPaused, got %v", err)
	}
}

func TestResumeRefusesWhenNotPaused(t *testing.T) {
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			return activeSubscription(email), nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	_, err := manager.Resume(context.Background(), &types.ResumeSubscriptionRequest{
		ID:         "sub-1",
		DonorEmail: "jane@example.com",
	})
	if !errors.Is(err, ErrNotPaused) {
		t.Fatalf("expected ErrNotPaused, got %v", err)
	}
}

func TestUpdateRejectsAmountBelowMinimum(t *testing.T) {
	subscriptionBackend := &fakeSubscriptionBackend{}
	manager := NewSubscriptionManager(subscriptionBackend)

	_, err := manager.Update(context.Background(), &types.UpdateSubscriptionRequest{
		ID:         "sub-1",
		DonorEmail: "jane@example.com",
		Amount:     250,
		Phone:      "677000010",
	})
	var validationErrs types.ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if validationErrs["amount"] != "minimum monthly subscription amount is 500 XAF" {
		t.Errorf("unexpected amount error: %q", validationErrs["amount"])
	}
	if subscriptionBackend.fetchCalls != 0 {
		t.Errorf("expected no backend call for an invalid request, got %d", subscriptionBackend.fetchCalls)
	}
}

func TestUpdateMutationNotFound(t *testing.T) {
	manager := NewSubscriptionManager(&fakeSubscriptionBackend{})

	_, err := manager.Update(context.Background(), &types.UpdateSubscriptionRequest{
		ID:         "sub-1",
		DonorEmail: "jane@example.com",
		Amount:     1000,
		Phone:      "677000010",
	})
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestCancelDoesNotRefetch(t *testing.T) {
	subscriptionBackend := &fakeSubscriptionBackend{
		mySubscriptionFunc: func(_ context.Context, email string) (*types.Subscription, error) {
			return activeSubscription(email), nil
		},
	}
	manager := NewSubscriptionManager(subscriptionBackend)

	err := manager.Cancel(context.Background(), &types.CancelSubscriptionRequest{
		ID:           "sub-1",
		DonorEmail:   "jane@example.com",
		CancelReason: "moving abroad",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subscriptionBackend.cancelCalls != 1 {
		t.Errorf("expected one cancel call, got %d", subscriptionBackend.cancelCalls)
	}
	if subscriptionBackend.fetchCalls != 1 {
		t.Errorf("expected only the guard fetch, got %d fetches", subscriptionBackend.fetchCalls)
	}
}
