package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSignedAmount(t *testing.T) {
	cases := []struct {
		typ    TransactionType
		amount string
		want   string
	}{
		{TransactionTypeTip, "50", "50"},
		{TransactionTypeSale, "20", "20"},
		{TransactionTypeCollection, "15", "15"},
		{TransactionTypeChange, "5", "-5"},
		{TransactionTypeRefund, "12.5", "-12.5"},
		{TransactionTypePayout, "100", "-100"},
		{TransactionTypeAdjustment, "7", "7"},
		{TransactionTypeAdjustment, "-7", "-7"},
		// reversal entries carry the negated amount
		{TransactionTypeTip, "-50", "-50"},
		{TransactionTypeRefund, "-12.5", "12.5"},
	}
	for _, c := range cases {
		got := SignedAmount(c.typ, dec(c.amount))
		assert.True(t, got.Equal(dec(c.want)), "%s %s: got %s want %s", c.typ, c.amount, got, c.want)
	}
}

func TestApplyRoutesByMethodAndType(t *testing.T) {
	b := DailyBalance{InitialBalance: dec("100"), FinalBalance: dec("100"), Status: BalanceStatusOpen}

	prev, next := b.Apply(Transaction{Type: TransactionTypeTip, Amount: dec("50"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusCompleted})
	assert.True(t, prev.Equal(dec("100")))
	assert.True(t, next.Equal(dec("150")))

	b.Apply(Transaction{Type: TransactionTypeSale, Amount: dec("30"), PaymentMethod: PaymentMethodCard, Status: TransactionStatusCompleted})
	b.Apply(Transaction{Type: TransactionTypeCollection, Amount: dec("20"), PaymentMethod: PaymentMethodTransfer, Status: TransactionStatusCompleted})
	_, next = b.Apply(Transaction{Type: TransactionTypeChange, Amount: dec("10"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusCompleted})

	assert.True(t, b.DailyTransactions.Cash.Equal(dec("40")))
	assert.True(t, b.DailyTransactions.Card.Equal(dec("30")))
	assert.True(t, b.AccountsReceivable.TransferPayments.Equal(dec("20")))
	assert.True(t, next.Equal(dec("190")))
	assert.True(t, b.FinalBalance.Equal(dec("190")))
}

func TestAggregateIgnoresPendingAndCancelled(t *testing.T) {
	txs := []Transaction{
		{Type: TransactionTypeTip, Amount: dec("10"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusCompleted},
		{Type: TransactionTypeTip, Amount: dec("99"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusPending},
		{Type: TransactionTypeTip, Amount: dec("99"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusCancelled},
		{Type: TransactionTypeTip, Amount: dec("5"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusReversed},
	}
	totals := Aggregate(txs)
	assert.True(t, totals.DailyTransactions.Cash.Equal(dec("15")))
}

// Random sequences of applied entries always rebuild to the stored balance.
func TestFinalBalanceReconcilesWithLog(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []TransactionType{TransactionTypeTip, TransactionTypeChange, TransactionTypeRefund, TransactionTypeAdjustment, TransactionTypeSale, TransactionTypeCollection, TransactionTypePayout}
	methods := []PaymentMethod{PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard}
	statuses := []TransactionStatus{TransactionStatusPending, TransactionStatusCompleted, TransactionStatusCancelled}

	for run := 0; run < 100; run++ {
		b := DailyBalance{InitialBalance: decimal.NewFromInt(int64(rng.Intn(1000))), Status: BalanceStatusOpen}
		b.FinalBalance = b.InitialBalance
		var log []Transaction

		for i := 0; i < 50; i++ {
			amount := decimal.New(int64(rng.Intn(100000)+1), -2)
			typ := types[rng.Intn(len(types))]
			if typ == TransactionTypeAdjustment && rng.Intn(2) == 0 {
				amount = amount.Neg()
			}
			tx := Transaction{Type: typ, Amount: amount, PaymentMethod: methods[rng.Intn(len(methods))], Status: statuses[rng.Intn(len(statuses))]}
			if tx.IsApplied() {
				prev, next := b.Apply(tx)
				tx.PreviousBalance, tx.NewBalance = prev, next
				require.True(t, next.Equal(prev.Add(SignedAmount(tx.Type, tx.Amount))))
			}
			log = append(log, tx)
		}

		assert.True(t, b.Drift(log).IsZero())
		rebuilt := DailyBalance{InitialBalance: b.InitialBalance}
		rebuilt.Recompute(log)
		assert.True(t, rebuilt.FinalBalance.Equal(b.FinalBalance))
	}
}

func TestTransactionTransitions(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	tx := Transaction{ID: "t1", Status: TransactionStatusPending}
	assert.ErrorIs(t, tx.MarkReversed("u", "r", at), shared.ErrInvalidState)
	require.NoError(t, tx.Approve("u", at))
	assert.ErrorIs(t, tx.Approve("u", at), shared.ErrInvalidState)
	assert.ErrorIs(t, tx.Cancel("u", "r", at), shared.ErrInvalidState)
	require.NoError(t, tx.MarkReversed("u", "r", at))
	assert.ErrorIs(t, tx.MarkReversed("u", "r", at), shared.ErrInvalidState)

	pending := Transaction{ID: "t2", Status: TransactionStatusPending}
	require.NoError(t, pending.Cancel("u", "typo", at))
	assert.ErrorIs(t, pending.Approve("u", at), shared.ErrInvalidState)
}

func TestCloseRecomputesAndIsFinal(t *testing.T) {
	at := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	b := DailyBalance{InitialBalance: dec("10"), FinalBalance: dec("999"), Status: BalanceStatusOpen}
	txs := []Transaction{{Type: TransactionTypeTip, Amount: dec("50"), PaymentMethod: PaymentMethodCash, Status: TransactionStatusCompleted}}

	require.NoError(t, b.Close("owner", nil, txs, at))
	assert.True(t, b.FinalBalance.Equal(dec("60")))
	assert.Equal(t, BalanceStatusClosed, b.Status)

	err := b.Close("owner", nil, txs, at)
	assert.ErrorIs(t, err, ErrBalanceAlreadyClosed)
	assert.ErrorIs(t, err, shared.ErrAlreadyClosed)
}
