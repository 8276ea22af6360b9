package flow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

type MemoryStore struct {
	mu    sync.Mutex
	flows map[string]*Flow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flows: map[string]*Flow{}}
}

func (s *MemoryStore) Create(form *types.CreateDonationRequest) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	item := &Flow{
		ID:        uuid.NewString(),
		State:     StateIdle,
		Form:      cloneForm(form),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.flows[item.ID] = item
	return copyFlow(item)
}

func (s *MemoryStore) Get(id string) (*Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return copyFlow(item), nil
}

func (s *MemoryStore) MarkPending(id, transactionID string) error {
	return s.transition(id, func(item *Flow) error {
		if item.State != StateIdle {
			return ErrInvalidTransition
		}
		item.State = StatePending
		item.TransactionID = transactionID
		item.Message = ""
		return nil
	})
}

func (s *MemoryStore) MarkSuccess(id string) error {
	return s.transition(id, func(item *Flow) error {
		if item.State != StatePending && item.State != StateIdle {
			return ErrInvalidTransition
		}
		item.State = StateSuccess
		item.Message = ""
		item.Form = nil
		return nil
	})
}

func (s *MemoryStore) MarkError(id, message string) error {
	return s.transition(id, func(item *Flow) error {
		if item.State != StatePending && item.State != StateIdle {
			return ErrInvalidTransition
		}
		item.State = StateError
		item.Message = message
		return nil
	})
}

func (s *MemoryStore) Dismiss(id string) error {
	return s.transition(id, func(item *Flow) error {
		if item.State != StateSuccess && item.State != StateError {
			return ErrInvalidTransition
		}
		item.State = StateIdle
		item.Message = ""
		return nil
	})
}

// Delete discards a flow unconditionally. Used when a submission could not
// be persisted and the flow would otherwise linger in idle state.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, id)
}

func (s *MemoryStore) Purge(olderThan time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, item := range s.flows {
		if item.UpdatedAt.Before(olderThan) {
			delete(s.flows, id)
			purged++
		}
	}
	return purged
}

func (s *MemoryStore) transition(id string, apply func(*Flow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.flows[id]
	if !ok {
		return ErrFlowNotFound
	}
	if err := apply(item); err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()
	return nil
}

func copyFlow(item *Flow) *Flow {
	copied := *item
	copied.Form = cloneForm(item.Form)
	return &copied
}

func cloneForm(form *types.CreateDonationRequest) *types.CreateDonationRequest {
	if form == nil {
		return nil
	}
	copied := *form
	return &copied
}
