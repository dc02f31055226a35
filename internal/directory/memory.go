package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// MemoryUsers is an in-process user store.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryUsers(users ...User) *MemoryUsers {
	m := &MemoryUsers{users: make(map[uuid.UUID]User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

// Put inserts or replaces a user.
func (m *MemoryUsers) Put(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryUsers) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// MemoryAvailability is an in-process weekly availability store.
type MemoryAvailability struct {
	mu      sync.RWMutex
	records map[uuid.UUID][]scheduling.WeeklyAvailability
}

func NewMemoryAvailability() *MemoryAvailability {
	return &MemoryAvailability{records: make(map[uuid.UUID][]scheduling.WeeklyAvailability)}
}

func (m *MemoryAvailability) ActiveAvailability(_ context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []scheduling.WeeklyAvailability
	for _, rec := range m.records[doctorID] {
		if rec.IsActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryAvailability) List(_ context.Context, doctorID uuid.UUID) ([]scheduling.WeeklyAvailability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]scheduling.WeeklyAvailability(nil), m.records[doctorID]...), nil
}

func (m *MemoryAvailability) Set(_ context.Context, rec scheduling.WeeklyAvailability) (scheduling.WeeklyAvailability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.IsActive = true
	existing := m.records[rec.DoctorID]
	for i, cur := range existing {
		if cur.IsActive && cur.DayOfWeek == rec.DayOfWeek {
			rec.ID = cur.ID
			existing[i] = rec
			return rec, nil
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	existing = append(existing, rec)
	sort.SliceStable(existing, func(i, j int) bool {
		if existing[i].DayOfWeek != existing[j].DayOfWeek {
			return existing[i].DayOfWeek < existing[j].DayOfWeek
		}
		return existing[i].StartTime < existing[j].StartTime
	})
	m.records[rec.DoctorID] = existing
	return rec, nil
}

// Insert stores rec verbatim, including inactive or malformed rows.
func (m *MemoryAvailability) Insert(rec scheduling.WeeklyAvailability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.records[rec.DoctorID] = append(m.records[rec.DoctorID], rec)
}

func (m *MemoryAvailability) Delete(_ context.Context, doctorID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.records[doctorID]
	for i, cur := range existing {
		if cur.ID == id {
			m.records[doctorID] = append(existing[:i:i], existing[i+1:]...)
			return nil
		}
	}
	return apperr.ErrAvailabilityNotFound
}
