package ledger

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

func (t *Transaction) invalid(op string) error {
	return shared.NewInvalidState("ledger transaction", t.ID, string(t.Status), op)
}

func (t *Transaction) Approve(by string, at time.Time) error {
	if t.Status != TransactionStatusPending {
		return t.invalid("approve")
	}
	t.Status = TransactionStatusCompleted
	t.ApprovedBy = &by
	t.ApprovedAt = &at
	t.UpdatedAt = at
	return nil
}

func (t *Transaction) Cancel(by, reason string, at time.Time) error {
	if t.Status != TransactionStatusPending {
		return t.invalid("cancel")
	}
	t.Status = TransactionStatusCancelled
	t.CancelledBy = &by
	t.CancelledAt = &at
	t.CancelReason = &reason
	t.UpdatedAt = at
	return nil
}

func (t *Transaction) MarkReversed(by, reason string, at time.Time) error {
	if t.Status != TransactionStatusCompleted {
		return t.invalid("reverse")
	}
	t.Status = TransactionStatusReversed
	t.ReversedBy = &by
	t.ReversedAt = &at
	t.ReverseReason = &reason
	t.UpdatedAt = at
	return nil
}

// Close freezes the day after rebuilding its aggregates from txs.
func (b *DailyBalance) Close(by string, notes *string, txs []Transaction, at time.Time) error {
	if b.Status == BalanceStatusClosed {
		return ErrBalanceAlreadyClosed
	}
	b.Recompute(txs)
	b.Status = BalanceStatusClosed
	b.ClosedBy = &by
	b.ClosedAt = &at
	b.Notes = notes
	b.UpdatedAt = at
	return nil
}
