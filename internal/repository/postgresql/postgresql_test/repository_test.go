package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)

func openBalance(businessID string) ledger.DailyBalance {
	now := time.Now().UTC()
	return ledger.DailyBalance{
		ID:             utils.NewID(),
		BusinessID:     businessID,
		Date:           day,
		InitialBalance: decimal.NewFromInt(100),
		FinalBalance:   decimal.NewFromInt(100),
		Status:         ledger.BalanceStatusOpen,
		OpenedBy:       "owner-1",
		OpenedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func parseDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestLedgerRepository_CreateBalanceIfAbsent(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewLedgerRepository(setup.DB, setup.Tenants)
	ctx := context.Background()

	first, err := repo.CreateBalanceIfAbsent(ctx, openBalance(setup.BusinessID))
	require.NoError(t, err)
	second, err := repo.CreateBalanceIfAbsent(ctx, openBalance(setup.BusinessID))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, second.Version)
	assert.True(t, second.InitialBalance.Equal(decimal.NewFromInt(100)))
}

func TestLedgerRepository_UpdateBalance_VersionCheck(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewLedgerRepository(setup.DB, setup.Tenants)
	ctx := context.Background()

	b, err := repo.CreateBalanceIfAbsent(ctx, openBalance(setup.BusinessID))
	require.NoError(t, err)

	b.FinalBalance = decimal.NewFromInt(150)
	updated, err := repo.UpdateBalance(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	// b still carries version 1.
	_, err = repo.UpdateBalance(ctx, b)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewLedgerRepository(setup.DB, setup.Tenants)
	tx := postgresql.NewTransactor(setup.DB)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.CreateBalanceIfAbsent(ctx, openBalance(setup.BusinessID)); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return tx.WithinTransaction(ctx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetBalanceByDate(ctx, setup.BusinessID, day)
	assert.ErrorIs(t, err, ledger.ErrBalanceNotFound)
}

func TestLedgerRepository_Transactions(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewLedgerRepository(setup.DB, setup.Tenants)
	ctx := context.Background()

	b, err := repo.CreateBalanceIfAbsent(ctx, openBalance(setup.BusinessID))
	require.NoError(t, err)

	now := time.Now().UTC()
	created, err := repo.CreateTransaction(ctx, ledger.Transaction{
		ID: utils.NewID(), BusinessID: setup.BusinessID, BalanceID: b.ID, BalanceDate: day,
		Type: ledger.TransactionTypeTip, Amount: decimal.RequireFromString("25.50"), PaymentMethod: ledger.PaymentMethodCash,
		Status: ledger.TransactionStatusPending, PreviousBalance: b.FinalBalance, NewBalance: b.FinalBalance,
		Description: "tip", Metadata: map[string]string{"table": "7"}, CreatedBy: "cashier-1",
		CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "7", created.Metadata["table"])

	created.Status = ledger.TransactionStatusCompleted
	created.NewBalance = decimal.RequireFromString("125.50")
	require.NoError(t, repo.UpdateTransactionStatus(ctx, created))

	completed := ledger.TransactionStatusCompleted
	list, err := repo.ListTransactions(ctx, setup.BusinessID, ledger.TransactionFilter{Date: &day, Status: &completed})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].NewBalance.Equal(decimal.RequireFromString("125.50")))
}

func TestPayrollRepository_UniquePerPeriod(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewPayrollRepository(setup.DB, setup.Tenants)
	ctx := context.Background()

	setup.Insert(t, "employees", `
		INSERT INTO %s (id, business_id, employee_code, full_name, salary_type, monthly_salary)
		VALUES ($1, $2, 'A01', 'Ana', 'monthly', 3000)
	`, "emp-a", setup.BusinessID)

	now := time.Now().UTC()
	draft := func() payroll.Payroll {
		return payroll.Payroll{
			ID: utils.NewID(), BusinessID: setup.BusinessID, EmployeeID: "emp-a",
			Period: payroll.Period{
				Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC),
				Type:  payroll.PeriodTypeMonthly, WorkingDays: 30,
			},
			Calculation: payroll.Calculation{NetPay: decimal.NewFromInt(3000)},
			Status:      payroll.PayrollStatusDraft,
			CreatedBy:   "owner-1",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	p, err := repo.Create(ctx, draft())
	require.NoError(t, err)
	require.NotNil(t, p.EmployeeName)
	assert.Equal(t, "Ana", *p.EmployeeName)
	assert.True(t, p.Calculation.NetPay.Equal(decimal.NewFromInt(3000)))

	_, err = repo.Create(ctx, draft())
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyExists)

	require.NoError(t, p.Cancel("owner-1", "wrong period", now))
	_, err = repo.Update(ctx, p)
	require.NoError(t, err)

	_, err = repo.Create(ctx, draft())
	assert.NoError(t, err)
}

func TestCommissionLedger_PostDeduction(t *testing.T) {
	setup := NewTestDatabase(t)
	commissions := postgresql.NewCommissionLedger(setup.DB, setup.Tenants)
	ctx := context.Background()

	setup.Insert(t, "employees", `
		INSERT INTO %s (id, business_id, employee_code, full_name) VALUES ($1, $2, 'A01', 'Ana')
	`, "emp-a", setup.BusinessID)
	setup.Insert(t, "commissions", `
		INSERT INTO %s (id, business_id, employee_id, amount) VALUES ($1, $2, $3, 300)
	`, "com-1", setup.BusinessID, "emp-a")

	post := func(amount int64) error {
		return commissions.PostDeduction(ctx, setup.BusinessID, "com-1", settlement.Deduction{
			ID: utils.NewID(), ReferenceType: settlement.ReferenceCommission, ReferenceID: "com-1",
			Amount: decimal.NewFromInt(amount), PostedAt: time.Now().UTC(),
		})
	}
	require.NoError(t, post(200))
	assert.ErrorIs(t, post(150), settlement.ErrCommissionExhausted)

	c, err := commissions.GetForUpdate(ctx, setup.BusinessID, "com-1")
	require.NoError(t, err)
	assert.True(t, c.Available().Equal(decimal.NewFromInt(100)))
}

func TestAttendanceRepository_GroupsByDay(t *testing.T) {
	setup := NewTestDatabase(t)
	attendance := postgresql.NewAttendanceRepository(setup.DB, setup.Tenants)

	setup.Insert(t, "employees", `
		INSERT INTO %s (id, business_id, employee_code, full_name) VALUES ($1, $2, 'A01', 'Ana')
	`, "emp-a", setup.BusinessID)
	for _, row := range []struct {
		date  string
		hours string
	}{{"2024-04-01", "4"}, {"2024-04-01", "5"}, {"2024-04-02", "8"}, {"2024-05-01", "8"}} {
		setup.Insert(t, "attendances", `
			INSERT INTO %s (id, business_id, employee_id, date, worked_hours) VALUES ($1, $2, 'emp-a', $3, $4)
		`, utils.NewID(), setup.BusinessID, parseDay(t, row.date), decimal.RequireFromString(row.hours))
	}

	summary, err := attendance.GetAttendanceSummary(context.Background(), setup.BusinessID, "emp-a",
		time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.WorkedDays)
	require.Len(t, summary.Daily, 2)
	assert.True(t, summary.Daily[0].Hours.Equal(decimal.NewFromInt(9)))
}
