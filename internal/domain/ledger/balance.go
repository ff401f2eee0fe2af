package ledger

import (
	"github.com/shopspring/decimal"
)

// SignedAmount is the effect of an entry on the balance. Amount is stored
// positive except for adjustments, which carry their own sign, and reversal
// entries, which carry the negated amount of the original.
func SignedAmount(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	switch t {
	case TransactionTypeChange, TransactionTypeRefund, TransactionTypePayout:
		return amount.Neg()
	default:
		return amount
	}
}

// IsDebit reports whether the entry lowers the balance.
func IsDebit(t TransactionType, amount decimal.Decimal) bool {
	return SignedAmount(t, amount).IsNegative()
}

// Totals groups the aggregates that make up a day's final balance.
type Totals struct {
	DailyTransactions  MethodTotals
	AccountsReceivable ReceivableTotals
}

func (t *Totals) add(tx Transaction) {
	delta := SignedAmount(tx.Type, tx.Amount)
	if tx.Type == TransactionTypeCollection {
		switch tx.PaymentMethod {
		case PaymentMethodCash:
			t.AccountsReceivable.CashPayments = t.AccountsReceivable.CashPayments.Add(delta)
		case PaymentMethodTransfer:
			t.AccountsReceivable.TransferPayments = t.AccountsReceivable.TransferPayments.Add(delta)
		case PaymentMethodCard:
			t.AccountsReceivable.CardPayments = t.AccountsReceivable.CardPayments.Add(delta)
		}
		return
	}
	switch tx.PaymentMethod {
	case PaymentMethodCash:
		t.DailyTransactions.Cash = t.DailyTransactions.Cash.Add(delta)
	case PaymentMethodTransfer:
		t.DailyTransactions.Transfer = t.DailyTransactions.Transfer.Add(delta)
	case PaymentMethodCard:
		t.DailyTransactions.Card = t.DailyTransactions.Card.Add(delta)
	}
}

// Aggregate rebuilds the day totals from the applied entries of the log.
func Aggregate(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if !tx.IsApplied() {
			continue
		}
		t.add(tx)
	}
	return t
}

// FinalBalance computes initial + every method total + every receivable total.
func FinalBalance(initial decimal.Decimal, t Totals) decimal.Decimal {
	return initial.
		Add(t.DailyTransactions.Cash).
		Add(t.DailyTransactions.Transfer).
		Add(t.DailyTransactions.Card).
		Add(t.AccountsReceivable.CashPayments).
		Add(t.AccountsReceivable.TransferPayments).
		Add(t.AccountsReceivable.CardPayments)
}

// Recompute sets the aggregates and the final balance from the given log.
func (b *DailyBalance) Recompute(txs []Transaction) {
	t := Aggregate(txs)
	b.DailyTransactions = t.DailyTransactions
	b.AccountsReceivable = t.AccountsReceivable
	b.FinalBalance = FinalBalance(b.InitialBalance, t)
}

// Apply adds one entry to the aggregates and returns the balance before and
// after it.
func (b *DailyBalance) Apply(tx Transaction) (previous, next decimal.Decimal) {
	previous = b.FinalBalance
	t := Totals{DailyTransactions: b.DailyTransactions, AccountsReceivable: b.AccountsReceivable}
	t.add(tx)
	b.DailyTransactions = t.DailyTransactions
	b.AccountsReceivable = t.AccountsReceivable
	b.FinalBalance = FinalBalance(b.InitialBalance, t)
	return previous, b.FinalBalance
}

// Projected returns the balance after applying an entry of amount without
// mutating b.
func (b DailyBalance) Projected(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	return b.FinalBalance.Add(SignedAmount(t, amount))
}

// Drift is the difference between the stored final balance and the one
// rebuilt from the log. Zero means the day reconciles.
func (b DailyBalance) Drift(txs []Transaction) decimal.Decimal {
	rebuilt := FinalBalance(b.InitialBalance, Aggregate(txs))
	return b.FinalBalance.Sub(rebuilt)
}
