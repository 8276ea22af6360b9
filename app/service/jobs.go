package service

import (
	"context"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/entity"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

// RunReconcileBatch re-queries attempts whose outcome is still open against
// the backend. A payment that settled after the poll budget ran out is
// recorded here, so "unverified" is eventually resolved.
func (s *DonationService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.jobsCfg.ReconcileStaleAfter)
	items, err := s.attemptRepo.ListForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, attempt := range items {
		if attempt == nil || attempt.TransactionID == nil || strings.TrimSpace(*attempt.TransactionID) == "" {
			continue
		}

		status, err := s.backend.TransactionStatus(ctx, strings.TrimSpace(*attempt.TransactionID))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if !status.Terminal() {
			continue
		}

		newStatus := entity.AttemptStatusFailed
		if status == types.TransactionStatusSuccessful {
			newStatus = entity.AttemptStatusSuccessful
		}
		if newStatus == attempt.Status {
			continue
		}

		s.settleAttempt(ctx, attempt, newStatus, "", "attempt_reconciled")
	}

	return firstErr
}

// RunPurgeFlowsBatch drops dialog state nobody will come back for.
func (s *DonationService) RunPurgeFlowsBatch(_ context.Context) error {
	cutoff := time.Now().UTC().Add(-s.donationsCfg.FlowTTL)
	purged := s.flows.Purge(cutoff)
	if purged > 0 {
		s.logger.WithField("purged", purged).Info("Purged stale donation flows")
	}
	return nil
}

func (s *DonationService) batchSize() int32 {
	if s.jobsCfg.JobBatchSize > 0 {
		return s.jobsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
