package payroll

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

func draft() Payroll {
	return Payroll{ID: "pr-1", EmployeeID: "emp-1", Status: PayrollStatusDraft}
}

func TestPayrollLifecycle(t *testing.T) {
	p := draft()
	r, err := Calculate(baseInput(monthlyEmployee("3000")))
	require.NoError(t, err)

	require.NoError(t, p.ApplyResult(r, at))
	assert.True(t, p.Calculation.NetPay.Equal(dec("3000")))

	require.NoError(t, p.Approve("mgr", at))
	assert.Equal(t, PayrollStatusApproved, p.Status)
	assert.ErrorIs(t, p.ApplyResult(r, at), shared.ErrInvalidState)

	txID := "tx-1"
	require.NoError(t, p.MarkPaid("owner", ledger.PaymentMethodCash, nil, &txID, at))
	assert.Equal(t, PayrollStatusPaid, p.Status)
	assert.Equal(t, "tx-1", *p.LedgerTransactionID)
	assert.True(t, p.Status.IsTerminal())
}

func TestPaidPayrollIsFrozen(t *testing.T) {
	p := draft()
	require.NoError(t, p.Approve("mgr", at))
	require.NoError(t, p.MarkPaid("owner", ledger.PaymentMethodTransfer, nil, nil, at))

	assert.ErrorIs(t, p.ApplyResult(Result{}, at), shared.ErrInvalidState)
	assert.ErrorIs(t, p.Approve("mgr", at), shared.ErrInvalidState)
	assert.ErrorIs(t, p.MarkPaid("owner", ledger.PaymentMethodCash, nil, nil, at), shared.ErrInvalidState)
	assert.ErrorIs(t, p.Cancel("owner", "oops", at), shared.ErrInvalidState)
	assert.Equal(t, PayrollStatusPaid, p.Status)
}

func TestPayrollCancel(t *testing.T) {
	p := draft()
	require.NoError(t, p.Cancel("mgr", "duplicate", at))
	assert.Equal(t, "duplicate", *p.CancelReason)
	assert.ErrorIs(t, p.Approve("mgr", at), shared.ErrInvalidState)

	approved := draft()
	require.NoError(t, approved.Approve("mgr", at))
	require.NoError(t, approved.Cancel("mgr", "wrong period", at))
	assert.Equal(t, PayrollStatusCancelled, approved.Status)
}

func TestPayOnlyFromApproved(t *testing.T) {
	p := draft()
	err := p.MarkPaid("owner", ledger.PaymentMethodCash, nil, nil, at)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	var ise *shared.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "draft", ise.Status)
}

func TestSummarize(t *testing.T) {
	mk := func(emp string, status PayrollStatus, net string) Payroll {
		return Payroll{EmployeeID: emp, Status: status, Calculation: Calculation{NetPay: dec(net), TotalEarnings: dec(net)}}
	}
	s := Summarize(april.Start, april.End, []Payroll{
		mk("a", PayrollStatusDraft, "100"),
		mk("b", PayrollStatusPaid, "200"),
		mk("c", PayrollStatusCancelled, "999"),
	})
	assert.Equal(t, 2, s.TotalEmployees)
	assert.True(t, s.TotalNetPay.Equal(dec("300")))
	assert.Equal(t, 1, s.CancelledCount)
	assert.Equal(t, "2024-04-01", s.PeriodStart)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, outcomeOf(3, 0))
	assert.Equal(t, OutcomePartial, outcomeOf(1, 1))
	assert.Equal(t, OutcomeFailed, outcomeOf(0, 2))
}
