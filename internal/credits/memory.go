package credits

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

// MemoryLedger is an in-process ledger used by tests and local development.
type MemoryLedger struct {
	mu           sync.Mutex
	balances     map[uuid.UUID]int
	transactions []Transaction
	now          func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[uuid.UUID]int),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Open creates an account with the given starting balance, replacing any existing one.
func (m *MemoryLedger) Open(userID uuid.UUID, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = balance
}

func (m *MemoryLedger) Balance(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance, ok := m.balances[userID]
	if !ok {
		return 0, ErrUnknownAccount
	}
	return balance, nil
}

func (m *MemoryLedger) Debit(_ context.Context, userID uuid.UUID, amount int, entry Entry) error {
	return m.Apply([]Movement{{UserID: userID, Amount: -amount, Entry: entry}})
}

func (m *MemoryLedger) Credit(_ context.Context, userID uuid.UUID, amount int, entry Entry) error {
	return m.Apply([]Movement{{UserID: userID, Amount: amount, Entry: entry}})
}

// Transactions returns the ledger rows recorded for userID in insertion order.
func (m *MemoryLedger) Transactions(userID uuid.UUID) []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Transaction
	for _, tx := range m.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// Movement is a signed balance change waiting to be applied.
type Movement struct {
	UserID uuid.UUID
	Amount int
	Entry  Entry
}

// Apply validates every movement against current balances and then applies
// all of them, or none.
func (m *MemoryLedger) Apply(movements []Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[uuid.UUID]int, len(movements))
	for _, mv := range movements {
		balance, ok := next[mv.UserID]
		if !ok {
			balance, ok = m.balances[mv.UserID]
			if !ok {
				return ErrUnknownAccount
			}
		}
		balance += mv.Amount
		if balance < 0 {
			return apperr.ErrInsufficientCredits
		}
		next[mv.UserID] = balance
	}
	for id, balance := range next {
		m.balances[id] = balance
	}
	now := m.now()
	for _, mv := range movements {
		m.transactions = append(m.transactions, Transaction{
			ID:            uuid.New(),
			UserID:        mv.UserID,
			Amount:        mv.Amount,
			Type:          mv.Entry.Type,
			AppointmentID: mv.Entry.AppointmentID,
			Description:   mv.Entry.Description,
			CreatedAt:     now,
		})
	}
	return nil
}

// Stage returns a ledger view whose writes are buffered until Commit.
func (m *MemoryLedger) Stage() *StagedLedger {
	return &StagedLedger{base: m}
}

// StagedLedger buffers movements on top of a MemoryLedger. Reads include the
// pending movements. Discarding the value rolls back.
type StagedLedger struct {
	base    *MemoryLedger
	pending []Movement
}

func (s *StagedLedger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.base.Balance(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, mv := range s.pending {
		if mv.UserID == userID {
			balance += mv.Amount
		}
	}
	return balance, nil
}

func (s *StagedLedger) Debit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return apperr.ErrInsufficientCredits
	}
	s.pending = append(s.pending, Movement{UserID: userID, Amount: -amount, Entry: entry})
	return nil
}

func (s *StagedLedger) Credit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error {
	if _, err := s.Balance(ctx, userID); err != nil {
		return err
	}
	s.pending = append(s.pending, Movement{UserID: userID, Amount: amount, Entry: entry})
	return nil
}

// Commit applies the buffered movements atomically. A balance drained by a
// concurrent commit surfaces as apperr.ErrInsufficientCredits.
func (s *StagedLedger) Commit() error {
	if len(s.pending) == 0 {
		return nil
	}
	err := s.base.Apply(s.pending)
	s.pending = nil
	return err
}
