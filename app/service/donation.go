package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-donations/app/backend"
	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/factory"
	"github.com/vibast-solutions/ms-go-donations/app/flow"
	"github.com/vibast-solutions/ms-go-donations/app/metrics"
	"github.com/vibast-solutions/ms-go-donations/app/types"
	"github.com/vibast-solutions/ms-go-donations/config"
)

const defaultBatchSize = int32(100)

type donationBackend interface {
	DirectPay(ctx context.Context, input *backend.DirectPayInput) (string, error)
	Subscribe(ctx context.Context, input *backend.SubscribeInput) error
	MySubscription(ctx context.Context, email string) (*types.Subscription, error)
	TransactionStatus(ctx context.Context, transactionID string) (types.TransactionStatus, error)
}

type attemptRepository interface {
	Create(ctx context.Context, attempt *entity.DonationAttempt) error
	Update(ctx context.Context, attempt *entity.DonationAttempt) error
	FindByID(ctx context.Context, id uint64) (*entity.DonationAttempt, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.DonationAttempt, error)
}

type attemptEventRepository interface {
	Create(ctx context.Context, event *entity.AttemptEvent) error
}

type DonationService struct {
	backend      donationBackend
	attemptRepo  attemptRepository
	eventRepo    attemptEventRepository
	flows        flow.Store
	poller       *StatusPoller
	donationsCfg config.DonationsConfig
	jobsCfg      config.JobsConfig
	logger       logrus.FieldLogger

	// lifetime bounds the background poll goroutines; Close cancels it so a
	// tracker never updates state after teardown.
	lifetime context.Context
	cancel   context.CancelFunc
	trackers sync.WaitGroup
}

func NewDonationService(
	donationBackend donationBackend,
	attemptRepo attemptRepository,
	eventRepo attemptEventRepository,
	flows flow.Store,
	poller *StatusPoller,
	donationsCfg config.DonationsConfig,
	jobsCfg config.JobsConfig,
) *DonationService {
	lifetime, cancel := context.WithCancel(context.Background())
	return &DonationService{
		backend:      donationBackend,
		attemptRepo:  attemptRepo,
		eventRepo:    eventRepo,
		flows:        flows,
		poller:       poller,
		donationsCfg: donationsCfg,
		jobsCfg:      jobsCfg,
		logger:       factory.NewModuleLogger("donation-service"),
		lifetime:     lifetime,
		cancel:       cancel,
	}
}

// Close stops all in-flight trackers and waits for them to exit.
func (s *DonationService) Close() {
	s.cancel()
	s.trackers.Wait()
}

// SubmitInstant issues exactly one direct-pay call and, on acceptance,
// starts tracking the transaction until a terminal status.
func (s *DonationService) SubmitInstant(ctx context.Context, req *types.CreateDonationRequest) (*flow.Flow, error) {
	if req == nil || req.Type != types.DonationTypeInstant {
		return nil, ErrInvalidRequest
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}

	flowItem := s.flows.Create(req)
	attempt := s.newAttempt(flowItem.ID, req)

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		s.flows.Delete(flowItem.ID)
		return nil, err
	}

	transactionID, err := s.backend.DirectPay(ctx, &backend.DirectPayInput{
		Amount:      req.Amount,
		Phone:       req.Phone,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		s.recordRejection(ctx, attempt, flowItem.ID, err)
		metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeInstant, "rejected").Inc()
		return s.currentFlow(flowItem.ID), err
	}

	now := time.Now().UTC()
	attempt.TransactionID = &transactionID
	attempt.UpdatedAt = now
	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		s.logger.WithError(err).Warn("Failed to store transaction id on attempt")
	}
	_ = s.eventRepo.Create(ctx, &entity.AttemptEvent{
		AttemptID: attempt.ID,
		EventType: "attempt_submitted",
		NewStatus: attempt.Status,
		CreatedAt: now,
	})

	if err := s.flows.MarkPending(flowItem.ID, transactionID); err != nil {
		s.logger.WithError(err).WithField("flow_id", flowItem.ID).Warn("Failed to mark flow pending")
	}
	metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeInstant, "accepted").Inc()

	s.trackers.Add(1)
	go s.track(flowItem.ID, attempt.ID, transactionID)

	return s.currentFlow(flowItem.ID), nil
}

// SubmitMonthly refuses locally when the email already carries a
// non-cancelled subscription; only then does it issue the subscribe call.
// There is no polling phase for subscription creation.
func (s *DonationService) SubmitMonthly(ctx context.Context, req *types.CreateDonationRequest) (*flow.Flow, error) {
	if req == nil || req.Type != types.DonationTypeMonthly {
		return nil, ErrInvalidRequest
	}
	if errs := req.Validate(); len(errs) > 0 {
		return nil, errs
	}

	flowItem := s.flows.Create(req)
	attempt := s.newAttempt(flowItem.ID, req)

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		s.flows.Delete(flowItem.ID)
		return nil, err
	}

	existing, err := s.backend.MySubscription(ctx, req.DonorEmail)
	if err != nil {
		s.recordRejection(ctx, attempt, flowItem.ID, err)
		metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeMonthly, "rejected").Inc()
		return s.currentFlow(flowItem.ID), err
	}
	if existing != nil && !existing.Status.Cancelled() {
		s.recordRejection(ctx, attempt, flowItem.ID, ErrAlreadySubscribed)
		metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeMonthly, "duplicate").Inc()
		return s.currentFlow(flowItem.ID), ErrAlreadySubscribed
	}

	if err := s.backend.Subscribe(ctx, &backend.SubscribeInput{
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		Phone:       req.Phone,
		Amount:      req.Amount,
		Message:     req.Message,
		IsAnonymous: req.IsAnonymous,
	}); err != nil {
		s.recordRejection(ctx, attempt, flowItem.ID, err)
		metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeMonthly, "rejected").Inc()
		return s.currentFlow(flowItem.ID), err
	}

	s.settleAttempt(ctx, attempt, entity.AttemptStatusSuccessful, "", "attempt_confirmed")
	if err := s.flows.MarkSuccess(flowItem.ID); err != nil {
		s.logger.WithError(err).WithField("flow_id", flowItem.ID).Warn("Failed to mark flow success")
	}
	metrics.DonationsSubmitted.WithLabelValues(types.DonationTypeMonthly, "accepted").Inc()

	return s.currentFlow(flowItem.ID), nil
}

func (s *DonationService) GetFlow(id string) (*flow.Flow, error) {
	return s.flows.Get(id)
}

func (s *DonationService) DismissFlow(id string) error {
	return s.flows.Dismiss(id)
}

func (s *DonationService) track(flowID string, attemptID uint64, transactionID string) {
	defer s.trackers.Done()

	result, err := s.poller.Wait(s.lifetime, transactionID)
	if err != nil {
		// service torn down mid-poll; leave the attempt for the reconcile job
		s.logger.WithField("transaction_id", transactionID).Info("Tracking stopped before a terminal status")
		return
	}
	metrics.PollOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	ctx := context.Background()
	attempt, repoErr := s.attemptRepo.FindByID(ctx, attemptID)
	if repoErr != nil || attempt == nil {
		s.logger.WithError(repoErr).WithField("attempt_id", attemptID).Error("Tracked attempt lookup failed")
		return
	}

	switch result.Outcome {
	case OutcomeConfirmed:
		s.settleAttempt(ctx, attempt, entity.AttemptStatusSuccessful, "", "attempt_confirmed")
		if err := s.flows.MarkSuccess(flowID); err != nil {
			s.logger.WithError(err).WithField("flow_id", flowID).Warn("Failed to mark flow success")
		}
	case OutcomeFailed:
		s.settleAttempt(ctx, attempt, entity.AttemptStatusFailed, result.UserMessage(), "attempt_failed")
		if err := s.flows.MarkError(flowID, result.UserMessage()); err != nil {
			s.logger.WithError(err).WithField("flow_id", flowID).Warn("Failed to mark flow error")
		}
	default:
		s.settleAttempt(ctx, attempt, entity.AttemptStatusUnverified, result.UserMessage(), "attempt_unverified")
		if err := s.flows.MarkError(flowID, result.UserMessage()); err != nil {
			s.logger.WithError(err).WithField("flow_id", flowID).Warn("Failed to mark flow error")
		}
	}
}

func (s *DonationService) newAttempt(flowID string, req *types.CreateDonationRequest) *entity.DonationAttempt {
	now := time.Now().UTC()
	return &entity.DonationAttempt{
		RequestID:   uuid.NewString(),
		FlowID:      flowID,
		Type:        req.Type,
		AmountXAF:   req.Amount,
		Phone:       req.Phone,
		DonorName:   normalizeOptionalString(req.DonorName),
		DonorEmail:  normalizeOptionalString(req.DonorEmail),
		Message:     normalizeOptionalString(req.Message),
		IsAnonymous: req.IsAnonymous,
		Status:      entity.AttemptStatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *DonationService) recordRejection(ctx context.Context, attempt *entity.DonationAttempt, flowID string, cause error) {
	message := rejectionMessage(cause)
	s.settleAttempt(ctx, attempt, entity.AttemptStatusFailed, message, "attempt_rejected")
	if err := s.flows.MarkError(flowID, message); err != nil {
		s.logger.WithError(err).WithField("flow_id", flowID).Warn("Failed to mark flow error")
	}
}

func (s *DonationService) settleAttempt(ctx context.Context, attempt *entity.DonationAttempt, status, failureReason, eventType string) {
	now := time.Now().UTC()
	oldStatus := attempt.Status
	attempt.Status = status
	attempt.FailureReason = normalizeOptionalString(failureReason)
	attempt.UpdatedAt = now

	if err := s.attemptRepo.Update(ctx, attempt); err != nil {
		s.logger.WithError(err).WithField("attempt_id", attempt.ID).Error("Failed to update attempt")
		return
	}
	_ = s.eventRepo.Create(ctx, &entity.AttemptEvent{
		AttemptID: attempt.ID,
		EventType: eventType,
		OldStatus: &oldStatus,
		NewStatus: status,
		CreatedAt: now,
	})
}

func (s *DonationService) currentFlow(id string) *flow.Flow {
	item, err := s.flows.Get(id)
	if err != nil {
		return nil
	}
	return item
}

func rejectionMessage(cause error) string {
	if errors.Is(cause, ErrAlreadySubscribed) {
		return ErrAlreadySubscribed.Error()
	}
	return backend.UserMessage(cause)
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
