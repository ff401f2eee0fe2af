package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/memory"
	ledgersvc "github.com/cmlabs-hris/settlement-backend-go/internal/service/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	now     = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	owner   = user.Actor{UserID: "owner-1", BusinessID: "biz-1", Role: user.RoleOwner}
	manager = user.Actor{UserID: "mgr-1", BusinessID: "biz-1", Role: user.RoleManager}
	april   = payroll.PeriodRequest{PeriodStart: "2024-04-01", PeriodEnd: "2024-04-30"}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	svc         *PayrollServiceImpl
	ledger      *ledgersvc.LedgerServiceImpl
	store       *memory.Store
	repo        *memory.PayrollRepository
	instruments *memory.InstrumentRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	locker := lock.NewLocalLocker()
	authz := user.NewRoleAuthorizer()
	clock := func() time.Time { return now }

	ledgerSvc := ledgersvc.NewLedgerService(store, locker, memory.NewLedgerRepository(store), authz, clock, time.UTC)
	dir := memory.NewDirectory(store)
	repo := memory.NewPayrollRepository(store)
	instruments := memory.NewInstrumentRepository(store)

	svc := NewPayrollService(
		store,
		locker,
		repo,
		Sources{Employees: dir, Attendance: dir, Absences: dir, Benefits: dir},
		instruments,
		ledgerSvc,
		authz,
		clock,
		2,
	)
	return fixture{svc: svc, ledger: ledgerSvc, store: store, repo: repo, instruments: instruments}
}

// seed adds an active salaried employee, one without salary configuration
// and one who resigned, plus an active configuration.
func (f fixture) seed(t *testing.T, salary string) {
	t.Helper()
	f.store.PutEmployee(employee.Employee{
		ID: "emp-a", BusinessID: "biz-1", EmployeeCode: "A01", FullName: "Ana",
		HireDate:         time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		EmploymentStatus: employee.EmploymentStatusActive,
		Compensation:     &employee.Compensation{Type: employee.SalaryTypeMonthly, MonthlySalary: dec(salary)},
	})
	f.store.PutEmployee(employee.Employee{
		ID: "emp-b", BusinessID: "biz-1", EmployeeCode: "B01", FullName: "Budi",
		EmploymentStatus: employee.EmploymentStatusActive,
	})
	f.store.PutEmployee(employee.Employee{
		ID: "emp-c", BusinessID: "biz-1", EmployeeCode: "C01", FullName: "Citra",
		EmploymentStatus: employee.EmploymentStatusResigned,
		Compensation:     &employee.Compensation{Type: employee.SalaryTypeMonthly, MonthlySalary: dec("1000")},
	})
	for d := 1; d <= 30; d++ {
		f.store.PutAttendance("biz-1", "emp-a", payroll.DailyHours{
			Date:  time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC),
			Hours: dec("8"),
		})
	}
	_, err := f.svc.UpsertConfiguration(context.Background(), owner, payroll.UpsertConfigurationRequest{
		Active:              true,
		PeriodType:          payroll.PeriodTypeMonthly,
		StandardWorkingDays: 30,
	})
	require.NoError(t, err)
}

func (f fixture) cash(t *testing.T, amount string) {
	t.Helper()
	_, err := f.ledger.PostTransaction(context.Background(), owner, ledger.PostTransactionRequest{
		Type: ledger.TransactionTypeTip, Amount: dec(amount), PaymentMethod: ledger.PaymentMethodCash, Description: "float", AutoApprove: true,
	})
	require.NoError(t, err)
}

func (f fixture) approvedPayroll(t *testing.T) payroll.Payroll {
	t.Helper()
	ctx := context.Background()
	p, err := f.svc.Create(ctx, owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	require.NoError(t, err)
	p, err = f.svc.Approve(ctx, manager, p.ID)
	require.NoError(t, err)
	return p
}

// ===== LIFECYCLE =====

func TestPayrollService_Create_FullMonth(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "3000")

	p, err := f.svc.Create(context.Background(), owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	require.NoError(t, err)

	assert.Equal(t, payroll.PayrollStatusDraft, p.Status)
	assert.True(t, p.Calculation.BaseSalary.Equal(dec("3000")))
	assert.True(t, p.Calculation.NetPay.Equal(dec("3000")))
	assert.True(t, p.Period.TotalHours.Equal(dec("240")))
	require.NotNil(t, p.EmployeeName)
	assert.Equal(t, "Ana", *p.EmployeeName)

	_, err = f.svc.Create(context.Background(), owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	assert.ErrorIs(t, err, payroll.ErrPayrollRecordAlreadyExists)
}

func TestPayrollService_Create_RequiresConfiguration(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	assert.ErrorIs(t, err, shared.ErrNoConfiguration)
}

func TestPayrollService_Pay_InsufficientCash(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "500")
	ctx := context.Background()
	p := f.approvedPayroll(t)
	assert.True(t, p.Calculation.NetPay.Equal(dec("500")))

	f.cash(t, "100")

	// Act
	_, err := f.svc.Pay(ctx, owner, p.ID, payroll.PayPayrollRequest{Method: ledger.PaymentMethodCash})

	// Assert
	assert.ErrorIs(t, err, payroll.ErrInsufficientCash)
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	stored, err := f.svc.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, stored.Status)
	assert.Nil(t, stored.LedgerTransactionID)

	txs, err := f.ledger.ListTransactions(ctx, owner, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	day, err := f.ledger.GetDay(ctx, owner, "")
	require.NoError(t, err)
	assert.True(t, day.FinalBalance.Equal(dec("100")))
}

func TestPayrollService_Pay_CashSettlesAdvances(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "500")
	ctx := context.Background()

	emp := "emp-a"
	paidAt := now.Add(-72 * time.Hour)
	_, err := f.instruments.Create(ctx, settlement.Instrument{
		ID: "adv-1", BusinessID: "biz-1", Kind: settlement.KindAdvance, EmployeeID: &emp,
		RequestedAmount: dec("200"), Amount: dec("200"), RemainingBalance: dec("200"),
		Status: settlement.StatusPaid, PaidAt: &paidAt, CreatedAt: paidAt,
	})
	require.NoError(t, err)

	p := f.approvedPayroll(t)
	require.Len(t, p.AdvanceItems(), 1)
	assert.True(t, p.Calculation.NetPay.Equal(dec("300")))

	f.cash(t, "1000")
	paid, err := f.svc.Pay(ctx, owner, p.ID, payroll.PayPayrollRequest{Method: ledger.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusPaid, paid.Status)
	require.NotNil(t, paid.LedgerTransactionID)

	day, err := f.ledger.GetDay(ctx, owner, "")
	require.NoError(t, err)
	assert.True(t, day.FinalBalance.Equal(dec("700")))

	adv, err := f.instruments.GetByID(ctx, "biz-1", "adv-1")
	require.NoError(t, err)
	assert.Equal(t, settlement.StatusRepaid, adv.Status)
	assert.True(t, adv.RemainingBalance.IsZero())
	require.Len(t, adv.Deductions, 1)
	assert.Equal(t, settlement.ReferencePayroll, adv.Deductions[0].ReferenceType)
	assert.Equal(t, p.ID, adv.Deductions[0].ReferenceID)

	// Paid is frozen.
	_, err = f.svc.Cancel(ctx, owner, p.ID, payroll.CancelPayrollRequest{Reason: "oops"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	_, err = f.svc.Pay(ctx, owner, p.ID, payroll.PayPayrollRequest{Method: ledger.PaymentMethodCash})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPayrollService_Pay_AdvanceChangedAfterApproval(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "500")
	ctx := context.Background()

	emp := "emp-a"
	paidAt := now.Add(-72 * time.Hour)
	_, err := f.instruments.Create(ctx, settlement.Instrument{
		ID: "adv-1", BusinessID: "biz-1", Kind: settlement.KindAdvance, EmployeeID: &emp,
		RequestedAmount: dec("200"), Amount: dec("200"), RemainingBalance: dec("200"),
		Status: settlement.StatusPaid, PaidAt: &paidAt, CreatedAt: paidAt,
	})
	require.NoError(t, err)

	p := f.approvedPayroll(t)
	require.Len(t, p.AdvanceItems(), 1)

	// Another repayment lands between approval and payout.
	adv, err := f.instruments.GetByID(ctx, "biz-1", "adv-1")
	require.NoError(t, err)
	require.NoError(t, adv.ApplyDeduction(settlement.Deduction{
		ID: "d-1", ReferenceType: settlement.ReferencePayroll, ReferenceID: "manual", Amount: dec("150"), PostedAt: now,
	}))
	_, err = f.instruments.Update(ctx, adv)
	require.NoError(t, err)

	f.cash(t, "1000")
	_, err = f.svc.Pay(ctx, owner, p.ID, payroll.PayPayrollRequest{Method: ledger.PaymentMethodCash})
	assert.ErrorIs(t, err, payroll.ErrAdvanceChanged)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	day, err := f.ledger.GetDay(ctx, owner, "")
	require.NoError(t, err)
	assert.True(t, day.FinalBalance.Equal(dec("1000")))

	stored, err := f.svc.Get(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.PayrollStatusApproved, stored.Status)

	// Cancel and regenerate picks up the new balance.
	_, err = f.svc.Cancel(ctx, owner, p.ID, payroll.CancelPayrollRequest{Reason: "advance changed"})
	require.NoError(t, err)
	again, err := f.svc.Create(ctx, owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	require.NoError(t, err)
	require.Len(t, again.AdvanceItems(), 1)
	assert.True(t, again.AdvanceItems()[0].Amount.Equal(dec("50")))
}

func TestPayrollService_Recalculate_OnlyDraft(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "3000")
	ctx := context.Background()

	p, err := f.svc.Create(ctx, owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-a"})
	require.NoError(t, err)

	f.store.PutBenefit("biz-1", "emp-a", payroll.Benefit{ID: "ben-1", Code: "GYM", Name: "Gym", EmployeeContribution: payroll.Contribution{Fixed: dec("50")}})

	re, err := f.svc.Recalculate(ctx, owner, p.ID, payroll.RecalculatePayrollRequest{})
	require.NoError(t, err)
	assert.True(t, re.Calculation.NetPay.Equal(dec("2950")))

	_, err = f.svc.Approve(ctx, owner, p.ID)
	require.NoError(t, err)
	_, err = f.svc.Recalculate(ctx, owner, p.ID, payroll.RecalculatePayrollRequest{})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPayrollService_Permissions(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "500")
	p := f.approvedPayroll(t)

	_, err := f.svc.Pay(context.Background(), manager, p.ID, payroll.PayPayrollRequest{Method: ledger.PaymentMethodTransfer})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	cashier := user.Actor{UserID: "c", BusinessID: "biz-1", Role: user.RoleCashier}
	_, err = f.svc.Get(context.Background(), cashier, p.ID)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

// ===== AUTOMATION =====

func TestPayrollService_Generate_PartialFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "3000")
	ctx := context.Background()

	// Act
	res, err := f.svc.Generate(ctx, owner, payroll.GeneratePayrollRequest{PeriodRequest: april})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, res.GeneratedCount)
	assert.True(t, res.TotalAmount.Equal(dec("3000")))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "emp-b", res.Errors[0].EmployeeID)
	assert.Contains(t, res.Errors[0].Message, "Budi")
	assert.ErrorIs(t, res.Errors[0], shared.ErrConfigurationMissing)
	assert.Equal(t, payroll.OutcomePartial, res.Outcome)
	require.Len(t, res.Payrolls, 1)
	assert.Equal(t, "emp-a", res.Payrolls[0].EmployeeID)

	again, err := f.svc.Generate(ctx, owner, payroll.GeneratePayrollRequest{PeriodRequest: april})
	require.NoError(t, err)
	assert.Equal(t, 0, again.GeneratedCount)
	assert.Len(t, again.Errors, 2)
	assert.Equal(t, payroll.OutcomeFailed, again.Outcome)
}

func TestPayrollService_Generate_FailsFast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, owner, payroll.GeneratePayrollRequest{PeriodRequest: april})
	assert.ErrorIs(t, err, payroll.ErrNoConfiguration)

	_, err = f.svc.UpsertConfiguration(ctx, owner, payroll.UpsertConfigurationRequest{Active: true, PeriodType: payroll.PeriodTypeMonthly})
	require.NoError(t, err)

	_, err = f.svc.Generate(ctx, owner, payroll.GeneratePayrollRequest{PeriodRequest: april})
	assert.ErrorIs(t, err, shared.ErrNoEligibleEmployees)
}

func TestPayrollService_BatchPay_IsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "500")
	ctx := context.Background()

	approved := f.approvedPayroll(t)
	f.store.PutEmployee(employee.Employee{
		ID: "emp-d", BusinessID: "biz-1", EmployeeCode: "D01", FullName: "Dewi",
		EmploymentStatus: employee.EmploymentStatusActive,
		Compensation:     &employee.Compensation{Type: employee.SalaryTypeDaily, DailyRate: dec("50")},
	})
	draft, err := f.svc.Create(ctx, owner, payroll.CreatePayrollRequest{PeriodRequest: april, EmployeeID: "emp-d"})
	require.NoError(t, err)

	res, err := f.svc.BatchPay(ctx, owner, payroll.BatchPayRequest{
		PayrollIDs: []string{approved.ID, draft.ID, approved.ID},
		Method:     ledger.PaymentMethodTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.PaidCount)
	assert.Equal(t, []string{approved.ID}, res.Paid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, draft.ID, res.Errors[0].PayrollID)
	assert.ErrorIs(t, res.Errors[0], shared.ErrInvalidState)
	assert.Equal(t, payroll.OutcomePartial, res.Outcome)
}

func TestPayrollService_RunScheduled(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "3000")
	ctx := context.Background()

	_, err := f.svc.UpsertConfiguration(ctx, owner, payroll.UpsertConfigurationRequest{
		Active:              true,
		PeriodType:          payroll.PeriodTypeMonthly,
		StandardWorkingDays: 30,
		Automation:          payroll.Automation{Enabled: true, DayOfMonth: 1, AutoApprove: true},
	})
	require.NoError(t, err)

	results, err := f.svc.RunScheduled(ctx, time.Date(2024, 5, 2, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = f.svc.RunScheduled(ctx, time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Contains(t, results, "biz-1")
	assert.Equal(t, 1, results["biz-1"].GeneratedCount)

	list, err := f.svc.List(ctx, owner, payroll.PayrollFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, payroll.PayrollStatusApproved, list[0].Status)
	assert.Equal(t, "2024-04-01", list[0].Period.Start.Format("2006-01-02"))
	assert.Equal(t, "2024-04-30", list[0].Period.End.Format("2006-01-02"))
}

func TestPayrollService_Summary(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "3000")
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, owner, payroll.GeneratePayrollRequest{PeriodRequest: april})
	require.NoError(t, err)

	s, err := f.svc.Summary(ctx, owner, "2024-04-01", "2024-04-30")
	require.NoError(t, err)
	assert.Equal(t, 1, s.TotalEmployees)
	assert.Equal(t, 1, s.DraftCount)
	assert.True(t, s.TotalNetPay.Equal(dec("3000")))

	_, err = f.svc.Summary(ctx, owner, "2024-04-30", "2024-04-01")
	assert.Error(t, err)
}

func TestPreviousMonth(t *testing.T) {
	start, end := PreviousMonth(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-02-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-02-29", end.Format("2006-01-02"))
}

func TestPreviousMonth_ReadsMonthInCallerLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)

	// 00:30 on April 1st in WIB is still March 31st in UTC.
	start, end := PreviousMonth(time.Date(2024, 4, 1, 0, 30, 0, 0, wib))
	assert.Equal(t, "2024-03-01", start.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", end.Format("2006-01-02"))
}
