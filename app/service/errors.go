package service

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrAlreadySubscribed     = errors.New("an active subscription already exists for this email")
	ErrSubscriptionNotFound  = errors.New("no active subscription for this email")
	ErrOperationInFlight     = errors.New("another subscription operation is already in progress")
	ErrSubscriptionCancelled = errors.New("subscription is cancelled")
	ErrAlreadyPaused         = errors.New("subscription is already paused")
	ErrNotPaused             = errors.New("subscription is not paused")
)
