package credits

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/telehealth-scheduling/internal/apperr"
)

func TestMemoryLedgerDebitAndCredit(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	patient, doctor := uuid.New(), uuid.New()
	ledger.Open(patient, 3)
	ledger.Open(doctor, 0)

	require.NoError(t, ledger.Debit(ctx, patient, 2, Entry{Type: TypeAppointmentDeduction}))
	require.NoError(t, ledger.Credit(ctx, doctor, 2, Entry{Type: TypeAppointmentEarning}))

	balance, err := ledger.Balance(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)
	balance, err = ledger.Balance(ctx, doctor)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)

	assert.ErrorIs(t, ledger.Debit(ctx, patient, 2, Entry{}), apperr.ErrInsufficientCredits)
	balance, _ = ledger.Balance(ctx, patient)
	assert.Equal(t, 1, balance, "failed debit leaves balance untouched")

	txs := ledger.Transactions(patient)
	require.Len(t, txs, 1)
	assert.Equal(t, -2, txs[0].Amount)
	assert.Equal(t, TypeAppointmentDeduction, txs[0].Type)
}

func TestMemoryLedgerUnknownAccount(t *testing.T) {
	ledger := NewMemoryLedger()
	_, err := ledger.Balance(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.ErrorIs(t, ledger.Credit(context.Background(), uuid.New(), 1, Entry{}), ErrUnknownAccount)
}

func TestStagedLedgerCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	patient, doctor := uuid.New(), uuid.New()
	ledger.Open(patient, 2)
	ledger.Open(doctor, 0)

	first := ledger.Stage()
	second := ledger.Stage()

	require.NoError(t, first.Debit(ctx, patient, 2, Entry{Type: TypeAppointmentDeduction}))
	require.NoError(t, first.Credit(ctx, doctor, 2, Entry{Type: TypeAppointmentEarning}))
	require.NoError(t, second.Debit(ctx, patient, 2, Entry{Type: TypeAppointmentDeduction}))
	require.NoError(t, second.Credit(ctx, doctor, 2, Entry{Type: TypeAppointmentEarning}))

	staged, err := first.Balance(ctx, patient)
	require.NoError(t, err)
	assert.Equal(t, 0, staged)
	committed, _ := ledger.Balance(ctx, patient)
	assert.Equal(t, 2, committed, "staged writes are invisible before commit")

	require.NoError(t, first.Commit())
	assert.ErrorIs(t, second.Commit(), apperr.ErrInsufficientCredits)

	patientBalance, _ := ledger.Balance(ctx, patient)
	doctorBalance, _ := ledger.Balance(ctx, doctor)
	assert.Equal(t, 0, patientBalance)
	assert.Equal(t, 2, doctorBalance, "losing commit must not credit the doctor")
	assert.Len(t, ledger.Transactions(doctor), 1)
}

func TestStagedLedgerDebitChecksPendingBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	patient := uuid.New()
	ledger.Open(patient, 3)

	staged := ledger.Stage()
	require.NoError(t, staged.Debit(ctx, patient, 2, Entry{}))
	assert.ErrorIs(t, staged.Debit(ctx, patient, 2, Entry{}), apperr.ErrInsufficientCredits)
}
