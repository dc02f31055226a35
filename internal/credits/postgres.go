package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

// DB abstracts the pgx query interface so a pool or a transaction can back the ledger.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger keeps balances in users.credits and rows in credit_transactions.
type PostgresLedger struct {
	db DB
}

func NewPostgresLedger(db DB) *PostgresLedger {
	if db == nil {
		panic("credits: db required")
	}
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := l.db.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUnknownAccount
		}
		return 0, fmt.Errorf("credits: balance: %w", err)
	}
	return balance, nil
}

func (l *PostgresLedger) Debit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error {
	if amount <= 0 {
		return fmt.Errorf("credits: debit: amount must be positive, got %d", amount)
	}
	ct, err := l.db.Exec(ctx, `
		UPDATE users
		SET credits = credits - $2, updated_at = now()
		WHERE id = $1 AND credits >= $2`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("credits: debit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrInsufficientCredits
	}
	return l.record(ctx, userID, -amount, entry)
}

func (l *PostgresLedger) Credit(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error {
	if amount <= 0 {
		return fmt.Errorf("credits: credit: amount must be positive, got %d", amount)
	}
	ct, err := l.db.Exec(ctx, `
		UPDATE users
		SET credits = credits + $2, updated_at = now()
		WHERE id = $1`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("credits: credit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUnknownAccount
	}
	return l.record(ctx, userID, amount, entry)
}

func (l *PostgresLedger) record(ctx context.Context, userID uuid.UUID, amount int, entry Entry) error {
	var appointmentID *uuid.UUID
	if entry.AppointmentID != uuid.Nil {
		id := entry.AppointmentID
		appointmentID = &id
	}
	_, err := l.db.Exec(ctx, `
		INSERT INTO credit_transactions (id, user_id, amount, type, appointment_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), userID, amount, string(entry.Type), appointmentID, entry.Description,
	)
	if err != nil {
		return fmt.Errorf("credits: record transaction: %w", err)
	}
	return nil
}
