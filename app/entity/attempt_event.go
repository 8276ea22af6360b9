package entity

import "time"

type AttemptEvent struct {
	ID        uint64
	AttemptID uint64
	EventType string
	OldStatus *string
	NewStatus string
	CreatedAt time.Time
}
