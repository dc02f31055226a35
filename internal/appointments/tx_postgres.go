package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
	"github.com/wolfman30/telehealth-scheduling/internal/credits"
	"github.com/wolfman30/telehealth-scheduling/internal/events"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateExclusionViolation   = "23P01"

	defaultTxAttempts = 3
)

// TxBeginner opens pgx transactions; *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PostgresTxManager runs booking transactions at READ COMMITTED behind a
// transaction-scoped advisory lock on the doctor. Every statement after the
// lock sees rows committed by the previous holder. Serialization failures
// and deadlocks rerun the whole transaction a bounded number of times.
type PostgresTxManager struct {
	pool     TxBeginner
	timeout  time.Duration
	attempts int
}

func NewPostgresTxManager(pool TxBeginner, timeout time.Duration) *PostgresTxManager {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresTxManager{pool: pool, timeout: timeout, attempts: defaultTxAttempts}
}

// WithAttempts bounds how often a transaction is rerun after a transient failure.
func (m *PostgresTxManager) WithAttempts(n int) *PostgresTxManager {
	if n > 0 {
		m.attempts = n
	}
	return m
}

func (m *PostgresTxManager) WithDoctorTx(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, repos Repos) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		err = m.run(ctx, doctorID, fn)
		if err == nil || !transientTxError(err) || ctx.Err() != nil {
			break
		}
	}
	return translateTxError(err)
}

func (m *PostgresTxManager) run(ctx context.Context, doctorID uuid.UUID, fn func(ctx context.Context, repos Repos) error) (err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, doctorID.String()); err != nil {
		return fmt.Errorf("appointments: lock doctor: %w", err)
	}

	repos := Repos{
		Appointments: NewPostgresRepository(tx),
		Ledger:       credits.NewPostgresLedger(tx),
		Events:       events.NewOutboxStore(tx),
	}
	if err = fn(ctx, repos); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

// transientTxError reports failures that a rerun of the transaction can clear.
func transientTxError(err error) bool {
	if _, ok := apperr.As(err); ok {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// translateTxError maps an exclusion-constraint violation onto SlotConflict.
// Only overlapping SCHEDULED rows trip that constraint.
func translateTxError(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == sqlStateExclusionViolation {
			return apperr.ErrSlotConflict.Wrap(err)
		}
	}
	return err
}
