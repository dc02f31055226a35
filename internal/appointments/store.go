package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
	"github.com/wolfman30/telehealth-scheduling/internal/scheduling"
)

// StatusChange describes a conditional status update.
type StatusChange struct {
	From         Status
	To           Status
	CancelReason string
	Notes        CompletionNotes
	At           time.Time
}

// Repository persists appointments. Implementations returned by a TxManager
// are bound to its transaction.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (Appointment, error)
	// HasScheduledOverlap reports whether a SCHEDULED appointment of the
	// doctor intersects span.
	HasScheduledOverlap(ctx context.Context, doctorID uuid.UUID, span scheduling.Interval) (bool, error)
	Insert(ctx context.Context, appt Appointment) error
	SetToken(ctx context.Context, id uuid.UUID, token string, at time.Time) error
	// UpdateStatus applies change only while the row is still in change.From,
	// returning apperr.ErrInvalidTransition otherwise.
	UpdateStatus(ctx context.Context, id uuid.UUID, change StatusChange) (Appointment, error)
	ScheduledIntervals(ctx context.Context, doctorID uuid.UUID, window scheduling.Interval) ([]scheduling.Interval, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID, status Status, limit, offset int) ([]Appointment, int, error)
}

// Repos is the set of stores visible inside one transaction.
type Repos struct {
	Appointments Repository
	Ledger       credits.Ledger
	Events       events.Appender
}

// TxManager runs fn inside a transaction serialized per doctor. Any error
// returned by fn, or cancellation of ctx before commit, discards every write.
type TxManager interface {
	WithDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, repos Repos) error) error
}
