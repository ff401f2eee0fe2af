package settlement

import (
	"errors"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func paidAdvance(t *testing.T, amount string) Instrument {
	t.Helper()
	i := Instrument{ID: "adv-1", Kind: KindAdvance, Amount: dec(amount), RequestedAmount: dec(amount), Status: StatusPending}
	require.NoError(t, i.Approve("mgr", nil, nil, now))
	require.NoError(t, i.MarkPaid("mgr", ledger.PaymentMethodTransfer, nil, now))
	return i
}

func deduction(ref string, amount string) Deduction {
	return Deduction{ID: "d-" + ref, ReferenceType: ReferencePayroll, ReferenceID: ref, Amount: dec(amount), PostedAt: now}
}

func TestAdvanceDeductionScenario(t *testing.T) {
	adv := paidAdvance(t, "1000")
	assert.True(t, adv.RemainingBalance.Equal(dec("1000")))

	require.NoError(t, adv.ApplyDeduction(deduction("p1", "400")))
	assert.True(t, adv.RemainingBalance.Equal(dec("600")))

	err := adv.ApplyDeduction(deduction("p2", "700"))
	assert.True(t, errors.Is(err, ErrExceedsBalance))
	assert.True(t, errors.Is(err, shared.ErrExceedsBalance))
	assert.True(t, adv.RemainingBalance.Equal(dec("600")))
	assert.Len(t, adv.Deductions, 1)
}

func TestApproveWithAmountOverride(t *testing.T) {
	i := Instrument{ID: "adv-2", Kind: KindAdvance, Amount: dec("500"), RequestedAmount: dec("500"), Status: StatusPending}
	approved := dec("300")
	require.NoError(t, i.Approve("mgr", &approved, nil, now))
	assert.True(t, i.Amount.Equal(dec("300")))
	assert.True(t, i.RequestedAmount.Equal(dec("500")))

	require.NoError(t, i.MarkPaid("mgr", ledger.PaymentMethodCash, nil, now))
	assert.True(t, i.RemainingBalance.Equal(dec("300")))
}

func TestDuplicateDeductionRejected(t *testing.T) {
	adv := paidAdvance(t, "100")
	require.NoError(t, adv.ApplyDeduction(deduction("p1", "10")))
	err := adv.ApplyDeduction(deduction("p1", "10"))
	assert.ErrorIs(t, err, ErrDeductionAlreadyApplied)
	assert.True(t, adv.RemainingBalance.Equal(dec("90")))
}

func TestInstrumentStateMachine(t *testing.T) {
	t.Run("approve only from pending", func(t *testing.T) {
		adv := paidAdvance(t, "100")
		assert.ErrorIs(t, adv.Approve("mgr", nil, nil, now), shared.ErrInvalidState)
		assert.ErrorIs(t, adv.Reject("mgr", "late", now), shared.ErrInvalidState)
	})

	t.Run("mark paid only from approved", func(t *testing.T) {
		i := Instrument{ID: "x", Kind: KindExpense, Amount: dec("50"), Status: StatusPending}
		assert.ErrorIs(t, i.MarkPaid("mgr", ledger.PaymentMethodCash, nil, now), shared.ErrInvalidState)
	})

	t.Run("cancel from pending and approved only", func(t *testing.T) {
		pending := Instrument{ID: "a", Kind: KindExpense, Status: StatusPending}
		require.NoError(t, pending.Cancel("mgr", "dup", now))
		assert.Equal(t, StatusCancelled, pending.Status)

		approved := Instrument{ID: "b", Kind: KindAdvance, Status: StatusApproved}
		require.NoError(t, approved.Cancel("mgr", "dup", now))

		paid := paidAdvance(t, "10")
		assert.ErrorIs(t, paid.Cancel("mgr", "oops", now), shared.ErrInvalidState)

		expense := Instrument{ID: "c", Kind: KindExpense, Amount: dec("10"), Status: StatusApproved}
		require.NoError(t, expense.MarkPaid("mgr", ledger.PaymentMethodCard, nil, now))
		assert.True(t, expense.IsTerminal())
		assert.ErrorIs(t, expense.Cancel("mgr", "oops", now), shared.ErrInvalidState)
	})

	t.Run("expense takes no deductions", func(t *testing.T) {
		expense := Instrument{ID: "c", Kind: KindExpense, Amount: dec("10"), Status: StatusApproved}
		require.NoError(t, expense.MarkPaid("mgr", ledger.PaymentMethodCard, nil, now))
		assert.ErrorIs(t, expense.ApplyDeduction(deduction("p1", "1")), shared.ErrInvalidState)
	})

	t.Run("repaid only when fully deducted", func(t *testing.T) {
		adv := paidAdvance(t, "100")
		assert.ErrorIs(t, adv.MarkRepaid(now), shared.ErrInvalidState)
		require.NoError(t, adv.ApplyDeduction(deduction("p1", "100")))
		require.NoError(t, adv.MarkRepaid(now))
		assert.True(t, adv.IsTerminal())
		assert.ErrorIs(t, adv.ApplyDeduction(deduction("p2", "1")), shared.ErrInvalidState)
	})
}

func TestRemainingBalanceNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		amount := decimal.NewFromInt(int64(rng.Intn(5000) + 1))
		adv := Instrument{ID: "adv", Kind: KindAdvance, Amount: amount, Status: StatusPending}
		require.NoError(t, adv.Approve("mgr", nil, nil, now))
		require.NoError(t, adv.MarkPaid("mgr", ledger.PaymentMethodCash, nil, now))

		for step := 0; step < 20; step++ {
			d := decimal.NewFromInt(int64(rng.Intn(1500) + 1))
			_ = adv.ApplyDeduction(Deduction{ReferenceType: ReferencePayroll, ReferenceID: strconv.Itoa(step), Amount: d, PostedAt: now})

			assert.False(t, adv.RemainingBalance.IsNegative())
			assert.True(t, adv.TotalDeducted().Add(adv.RemainingBalance).Equal(amount))
		}
	}
}

func TestNextInstallment(t *testing.T) {
	adv := paidAdvance(t, "1000")
	assert.True(t, adv.NextInstallment().Equal(dec("1000")))

	inst := dec("250")
	adv.InstallmentAmount = &inst
	assert.True(t, adv.NextInstallment().Equal(dec("250")))

	require.NoError(t, adv.ApplyDeduction(deduction("p1", "900")))
	assert.True(t, adv.NextInstallment().Equal(dec("100")))
}
