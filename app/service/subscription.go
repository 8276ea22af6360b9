package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/metrics"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type subscriptionBackend interface {
	MySubscription(ctx context.Context, email string) (*types.Subscription, error)
	UpdateSubscription(ctx context.Context, id string, input *backend.UpdateSubscriptionInput) error
	PauseSubscription(ctx context.Context, id, donorEmail string, pauseDuration int32) error
	ResumeSubscription(ctx context.Context, id, donorEmail string) error
	CancelSubscription(ctx context.Context, id, donorEmail, cancelReason string) error
}

// SubscriptionManager governs the lifecycle of donors' recurring
// subscriptions. Mutating operations on the same subscription are mutually
// exclusive: the busy gate rejects a second call while one is in flight,
// which is all the protection duplicate button clicks need. Unrelated
// subscriptions never block each other.
type SubscriptionManager struct {
	backend subscriptionBackend
	logger  logrus.FieldLogger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSubscriptionManager(subscriptionBackend subscriptionBackend) *SubscriptionManager {
	return &SubscriptionManager{
		backend:  subscriptionBackend,
		logger:   factory.NewModuleLogger("subscription-manager"),
		inFlight: map[string]struct{}{},
	}
}

// Fetch returns (nil, nil) when the email has no subscription. Read-only, so
// it is not gated.
func (m *SubscriptionManager) Fetch(ctx context.Context, email string) (*types.Subscription, error) {
	return m.backend.MySubscription(ctx, email)
}

func (m *SubscriptionManager) Update(ctx context.Context, req *types.UpdateSubscriptionRequest) (*types.Subscription, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}
	if err := m.acquire(req.ID); err != nil {
		return nil, err
	}
	defer m.release(req.ID)

	if _, err := m.guardedFetch(ctx, req.DonorEmail); err != nil {
		metrics.SubscriptionActions.WithLabelValues("update", "rejected").Inc()
		return nil, err
	}

	if err := m.backend.UpdateSubscription(ctx, req.ID, &backend.UpdateSubscriptionInput{
		DonorEmail: req.DonorEmail,
		Amount:     req.Amount,
		Phone:      req.Phone,
		Message:    req.Message,
	}); err != nil {
		metrics.SubscriptionActions.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	metrics.SubscriptionActions.WithLabelValues("update", "ok").Inc()
	return m.refetch(ctx, req.DonorEmail)
}

func (m *SubscriptionManager) Pause(ctx context.Context, req *types.PauseSubscriptionRequest) (*types.Subscription, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}
	if err := m.acquire(req.ID); err != nil {
		return nil, err
	}
	defer m.release(req.ID)

	current, err := m.guardedFetch(ctx, req.DonorEmail)
	if err != nil {
		metrics.SubscriptionActions.WithLabelValues("pause", "rejected").Inc()
		return nil, err
	}
	if current.Status.Paused() {
		metrics.SubscriptionActions.WithLabelValues("pause", "rejected").Inc()
		return nil, ErrAlreadyPaused
	}

	if err := m.backend.PauseSubscription(ctx, req.ID, req.DonorEmail, req.PauseDuration); err != nil {
		metrics.SubscriptionActions.WithLabelValues("pause", "error").Inc()
		return nil, err
	}

	metrics.SubscriptionActions.WithLabelValues("pause", "ok").Inc()
	return m.refetch(ctx, req.DonorEmail)
}

func (m *SubscriptionManager) Resume(ctx context.Context, req *types.ResumeSubscriptionRequest) (*types.Subscription, error) {
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}
	if err := m.acquire(req.ID); err != nil {
		return nil, err
	}
	defer m.release(req.ID)

	current, err := m.guardedFetch(ctx, req.DonorEmail)
	if err != nil {
		metrics.SubscriptionActions.WithLabelValues("resume", "rejected").Inc()
		return nil, err
	}
	if !current.Status.Paused() {
		metrics.SubscriptionActions.WithLabelValues("resume", "rejected").Inc()
		return nil, ErrNotPaused
	}

	if err := m.backend.ResumeSubscription(ctx, req.ID, req.DonorEmail); err != nil {
		metrics.SubscriptionActions.WithLabelValues("resume", "error").Inc()
		return nil, err
	}

	metrics.SubscriptionActions.WithLabelValues("resume", "ok").Inc()
	return m.refetch(ctx, req.DonorEmail)
}

// Cancel is terminal. On success there is nothing left to show, so no
// re-fetch; the caller dismisses its view.
func (m *SubscriptionManager) Cancel(ctx context.Context, req *types.CancelSubscriptionRequest) error {
	if errs := req.Validate(); len(errs) > 0 {
		return errs
	}
	if err := m.acquire(req.ID); err != nil {
		return err
	}
	defer m.release(req.ID)

	if _, err := m.guardedFetch(ctx, req.DonorEmail); err != nil {
		metrics.SubscriptionActions.WithLabelValues("cancel", "rejected").Inc()
		return err
	}

	if err := m.backend.CancelSubscription(ctx, req.ID, req.DonorEmail, req.CancelReason); err != nil {
		metrics.SubscriptionActions.WithLabelValues("cancel", "error").Inc()
		return err
	}

	metrics.SubscriptionActions.WithLabelValues("cancel", "ok").Inc()
	return nil
}

// guardedFetch loads the current subscription and applies the guards shared
// by every mutating operation: it must exist and must not be cancelled.
func (m *SubscriptionManager) guardedFetch(ctx context.Context, email string) (*types.Subscription, error) {
	current, err := m.backend.MySubscription(ctx, email)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrSubscriptionNotFound
	}
	if current.Status.Cancelled() {
		return nil, ErrSubscriptionCancelled
	}
	return current, nil
}

func (m *SubscriptionManager) refetch(ctx context.Context, email string) (*types.Subscription, error) {
	refreshed, err := m.backend.MySubscription(ctx, email)
	if err != nil {
		m.logger.WithError(err).Warn("Re-fetch after subscription mutation failed")
		return nil, err
	}
	return refreshed, nil
}

func (m *SubscriptionManager) acquire(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[id]; busy {
		return ErrOperationInFlight
	}
	m.inFlight[id] = struct{}{}
	return nil
}

func (m *SubscriptionManager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, id)
}
