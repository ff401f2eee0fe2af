package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func TestTransactionRollsBackOnError(t *testing.T) {
	s := NewStore()
	repo := NewLedgerRepository(s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := repo.CreateBalanceIfAbsent(ctx, ledger.DailyBalance{ID: "b1", BusinessID: "biz", Date: today, Status: ledger.BalanceStatusOpen})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetBalanceByDate(ctx, "biz", today)
	assert.ErrorIs(t, err, ledger.ErrBalanceNotFound)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	s := NewStore()
	repo := NewLedgerRepository(s)
	ctx := context.Background()

	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.WithinTransaction(ctx, func(ctx context.Context) error {
			_, err := repo.CreateBalanceIfAbsent(ctx, ledger.DailyBalance{ID: "b1", BusinessID: "biz", Date: today})
			return err
		})
	})
	require.NoError(t, err)

	b, err := repo.GetBalanceByDate(ctx, "biz", today)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Version)
}

func TestCreateBalanceIfAbsentConverges(t *testing.T) {
	s := NewStore()
	repo := NewLedgerRepository(s)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := repo.CreateBalanceIfAbsent(ctx, ledger.DailyBalance{ID: string(rune('a' + i)), BusinessID: "biz", Date: today})
			if assert.NoError(t, err) {
				ids[i] = b.ID
			}
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestUpdateBalanceChecksVersion(t *testing.T) {
	s := NewStore()
	repo := NewLedgerRepository(s)
	ctx := context.Background()

	b, err := repo.CreateBalanceIfAbsent(ctx, ledger.DailyBalance{ID: "b1", BusinessID: "biz", Date: today})
	require.NoError(t, err)

	stale := b
	b.FinalBalance = decimal.NewFromInt(10)
	updated, err := repo.UpdateBalance(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = repo.UpdateBalance(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestInstrumentReadsAreCopies(t *testing.T) {
	s := NewStore()
	repo := NewInstrumentRepository(s)
	ctx := context.Background()

	_, err := repo.Create(ctx, settlement.Instrument{ID: "i1", BusinessID: "biz", Kind: settlement.KindAdvance})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "biz", "i1")
	require.NoError(t, err)
	got.Deductions = append(got.Deductions, settlement.Deduction{ID: "d1"})

	again, err := repo.GetByID(ctx, "biz", "i1")
	require.NoError(t, err)
	assert.Empty(t, again.Deductions)
}

func TestPayrollUniquePerPeriod(t *testing.T) {
	s := NewStore()
	repo := NewPayrollRepository(s)
	ctx := context.Background()

	period := payroll.Period{Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)}
	first, err := repo.Create(ctx, payroll.Payroll{ID: "p1", BusinessID: "biz", EmployeeID: "e1", Period: period, Status: payroll.PayrollStatusDraft})
	require.NoError(t, err)

	_, err = repo.Create(ctx, payroll.Payroll{ID: "p2", BusinessID: "biz", EmployeeID: "e1", Period: period, Status: payroll.PayrollStatusDraft})
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyExists)
	assert.ErrorIs(t, err, shared.ErrConflict)

	first.Status = payroll.PayrollStatusCancelled
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, payroll.Payroll{ID: "p3", BusinessID: "biz", EmployeeID: "e1", Period: period, Status: payroll.PayrollStatusDraft})
	assert.NoError(t, err)
}

func TestCommissionDeductionLimitedToAvailable(t *testing.T) {
	s := NewStore()
	l := NewCommissionLedger(s)
	ctx := context.Background()
	s.PutCommission(settlement.Commission{ID: "c1", BusinessID: "biz", EmployeeID: "e1", Amount: decimal.NewFromInt(100)})

	require.NoError(t, l.PostDeduction(ctx, "biz", "c1", settlement.Deduction{Amount: decimal.NewFromInt(60)}))
	err := l.PostDeduction(ctx, "biz", "c1", settlement.Deduction{Amount: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, settlement.ErrCommissionExhausted)

	c, err := l.GetForUpdate(ctx, "biz", "c1")
	require.NoError(t, err)
	assert.True(t, c.Available().Equal(decimal.NewFromInt(40)))
}

func TestAttendanceSummaryFiltersPeriod(t *testing.T) {
	s := NewStore()
	d := NewDirectory(s)
	s.PutAttendance("biz", "e1",
		payroll.DailyHours{Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Hours: decimal.NewFromInt(8)},
		payroll.DailyHours{Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Hours: decimal.NewFromInt(9)},
		payroll.DailyHours{Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), Hours: decimal.Zero},
	)

	summary, err := d.GetAttendanceSummary(context.Background(), "biz", "e1",
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.WorkedDays)
	assert.Len(t, summary.Daily, 2)
}
