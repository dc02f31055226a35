package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// HandlerFunc adapts a function to DeliveryHandler.
type HandlerFunc func(ctx context.Context, entry OutboxEntry) error

func (f HandlerFunc) Handle(ctx context.Context, entry OutboxEntry) error { return f(ctx, entry) }

// MultiHandler fans an entry out to every handler. The entry counts as
// delivered only when all of them succeed.
type MultiHandler []DeliveryHandler

func (m MultiHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := h.Handle(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// TypeFilter forwards only the listed event types.
func TypeFilter(next DeliveryHandler, types ...string) DeliveryHandler {
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		if _, ok := allowed[entry.Type]; !ok {
			return nil
		}
		return next.Handle(ctx, entry)
	})
}

// ProcessedTracker remembers handled events per consumer.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	MarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
}

// Deduplicate skips entries consumer already handled and records new ones
// after next succeeds.
func Deduplicate(consumer string, tracker ProcessedTracker, next DeliveryHandler) DeliveryHandler {
	return HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		done, err := tracker.AlreadyProcessed(ctx, consumer, entry.ID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := next.Handle(ctx, entry); err != nil {
			return err
		}
		if _, err := tracker.MarkProcessed(ctx, consumer, entry.ID); err != nil {
			return fmt.Errorf("events: %s: %w", consumer, err)
		}
		return nil
	})
}

// MemoryProcessed is an in-process ProcessedTracker.
type MemoryProcessed struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryProcessed() *MemoryProcessed {
	return &MemoryProcessed{seen: make(map[string]bool)}
}

func (m *MemoryProcessed) AlreadyProcessed(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[consumer+"/"+eventID.String()], nil
}

func (m *MemoryProcessed) MarkProcessed(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := consumer + "/" + eventID.String()
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}
