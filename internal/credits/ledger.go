// Package credits tracks the consultation credit balance of every user and the
// ledger rows explaining each movement.
package credits

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingCost is the number of credits a consultation moves from patient to doctor.
const BookingCost = 2

// TransactionType classifies a ledger row.
type TransactionType string

const (
	TypeCreditPurchase       TransactionType = "CREDIT_PURCHASE"
	TypeAppointmentDeduction TransactionType = "APPOINTMENT_DEDUCTION"
	TypeAppointmentEarning   TransactionType = "APPOINTMENT_EARNING"
)

// ErrUnknownAccount is returned when the user has no balance row.
var ErrUnknownAccount = errors.New("credits: unknown account")

// Entry describes why a balance moved.
type Entry struct {
	Type          TransactionType
	AppointmentID uuid.UUID
	Description   string
}

// Transaction is one persisted ledger row. Amount is signed.
type Transaction struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Amount        int
	Type          TransactionType
	AppointmentID uuid.UUID
	Description   string
	CreatedAt     time.Time
}

// Ledger reads and moves balances. Implementations are bound to the
// transaction handle they were created for.
type Ledger interface {
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	// Debit fails with apperr.ErrInsufficientCredits when the balance would go negative.
	Debit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error
	Credit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error
}
