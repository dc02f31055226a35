package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// MemoryRepository keeps appointments in process.
type MemoryRepository struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appts: make(map[uuid.UUID]Appointment)}
}

func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appts[id]
	if !ok {
		return Appointment{}, apperr.ErrAppointmentNotFound
	}
	return a, nil
}

func (m *MemoryRepository) HasScheduledOverlap(_ context.Context, doctorID uuid.UUID, span scheduling.Interval) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && a.Interval().Overlaps(span) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) Insert(_ context.Context, a Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[a.ID] = a
	return nil
}

func (m *MemoryRepository) SetToken(_ context.Context, id uuid.UUID, token string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return apperr.ErrAppointmentNotFound
	}
	a.VideoSessionToken = token
	a.UpdatedAt = at.UTC()
	m.appts[id] = a
	return nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, change StatusChange) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return Appointment{}, apperr.ErrAppointmentNotFound
	}
	a, err := applyChange(a, change)
	if err != nil {
		return Appointment{}, err
	}
	m.appts[id] = a
	return a, nil
}

func applyChange(a Appointment, change StatusChange) (Appointment, error) {
	if a.Status != change.From {
		return Appointment{}, apperr.ErrInvalidTransition
	}
	a.Status = change.To
	a.CancelReason = change.CancelReason
	a.Diagnosis = change.Notes.Diagnosis
	a.Prescription = change.Notes.Prescription
	a.Notes = change.Notes.Notes
	a.UpdatedAt = change.At.UTC()
	return a, nil
}

func (m *MemoryRepository) ScheduledIntervals(_ context.Context, doctorID uuid.UUID, window scheduling.Interval) ([]scheduling.Interval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []scheduling.Interval
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && a.Interval().Overlaps(window) {
			out = append(out, a.Interval())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *MemoryRepository) ListForDoctor(_ context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]Appointment, int, error) {
	m.mu.RLock()
	var matched []Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Status == status {
			matched = append(matched, a)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })
	total := len(matched)
	if offset < 0 || offset >= total {
		return []Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// MemoryTxManager serializes transactions per doctor with a mutex and buffers
// writes until commit.
type MemoryTxManager struct {
	repo   *MemoryRepository
	ledger *credits.MemoryLedger
	outbox *events.MemoryOutbox

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewMemoryTxManager(repo *MemoryRepository, ledger *credits.MemoryLedger, outbox *events.MemoryOutbox) *MemoryTxManager {
	if repo == nil || ledger == nil || outbox == nil {
		panic("appointments: memory repository, ledger and outbox required")
	}
	return &MemoryTxManager{repo: repo, ledger: ledger, outbox: outbox, locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (m *MemoryTxManager) doctorLock(doctorID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[doctorID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[doctorID] = l
	}
	return l
}

func (m *MemoryTxManager) WithDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, repos Repos) error) error {
	lock := m.doctorLock(doctorID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := &stagedRepository{MemoryRepository: m.repo, updated: make(map[uuid.UUID]Appointment)}
	ledger := m.ledger.Stage()
	outbox := &stagedOutbox{}

	if err := fn(ctx, Repos{Appointments: staged, Ledger: ledger, Events: outbox}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ledger.Commit(); err != nil {
		return err
	}
	for _, a := range staged.inserted {
		_ = m.repo.Insert(ctx, a)
	}
	for _, apply := range staged.writes {
		if err := apply(ctx); err != nil {
			return err
		}
	}
	for _, env := range outbox.pending {
		_ = m.outbox.AppendEnvelope(ctx, env)
	}
	return nil
}

// stagedRepository sees committed rows plus its own pending writes.
type stagedRepository struct {
	*MemoryRepository
	inserted []Appointment
	updated  map[uuid.UUID]Appointment
	writes   []func(ctx context.Context) error
}

func (s *stagedRepository) Get(ctx context.Context, id uuid.UUID) (Appointment, error) {
	if a, ok := s.updated[id]; ok {
		return a, nil
	}
	for _, a := range s.inserted {
		if a.ID == id {
			return a, nil
		}
	}
	return s.MemoryRepository.Get(ctx, id)
}

func (s *stagedRepository) HasScheduledOverlap(_ context.Context, doctorID uuid.UUID, span scheduling.Interval) (bool, error) {
	busy := func(a Appointment) bool {
		return a.DoctorID == doctorID && a.Status == StatusScheduled && a.Interval().Overlaps(span)
	}
	for _, a := range s.inserted {
		if busy(a) {
			return true, nil
		}
	}
	for _, a := range s.updated {
		if busy(a) {
			return true, nil
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, a := range s.appts {
		if _, changed := s.updated[id]; changed {
			continue
		}
		if busy(a) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stagedRepository) Insert(_ context.Context, a Appointment) error {
	s.inserted = append(s.inserted, a)
	return nil
}

func (s *stagedRepository) UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) (Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	next, err := applyChange(current, change)
	if err != nil {
		return Appointment{}, err
	}
	s.updated[id] = next
	s.writes = append(s.writes, func(ctx context.Context) error {
		_, err := s.MemoryRepository.UpdateStatus(ctx, id, change)
		return err
	})
	return next, nil
}

func (s *stagedRepository) SetToken(ctx context.Context, id uuid.UUID, token string, at time.Time) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	current.VideoSessionToken = token
	current.UpdatedAt = at.UTC()
	s.updated[id] = current
	s.writes = append(s.writes, func(ctx context.Context) error {
		return s.MemoryRepository.SetToken(ctx, id, token, at)
	})
	return nil
}

type stagedOutbox struct {
	pending []events.Envelope
}

func (s *stagedOutbox) Append(_ context.Context, aggregate, correlationID string, evt events.CanonicalEvent, opts ...events.EnvelopeOption) (events.Envelope, error) {
	env, err := events.NewEnvelope(aggregate, correlationID, evt, opts...)
	if err != nil {
		return events.Envelope{}, err
	}
	s.pending = append(s.pending, env)
	return env, nil
}
