package settlement

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/shopspring/decimal"
)

func (i *Instrument) invalid(op string) error {
	return shared.NewInvalidState(string(i.Kind), i.ID, string(i.Status), op)
}

func (i *Instrument) Approve(by string, approvedAmount *decimal.Decimal, notes *string, at time.Time) error {
	if i.Status != StatusPending {
		return i.invalid("approve")
	}
	if approvedAmount != nil {
		if !approvedAmount.IsPositive() {
			return fmt.Errorf("%w: %w", shared.ErrInvalidInput, ErrInvalidAmount)
		}
		i.Amount = *approvedAmount
	}
	i.Status = StatusApproved
	i.ApprovedBy = &by
	i.ApprovedAt = &at
	i.ApprovalNotes = notes
	i.UpdatedAt = at
	return nil
}

func (i *Instrument) Reject(by, reason string, at time.Time) error {
	if i.Status != StatusPending {
		return i.invalid("reject")
	}
	i.Status = StatusRejected
	i.RejectedBy = &by
	i.RejectedAt = &at
	i.RejectionReason = &reason
	i.UpdatedAt = at
	return nil
}

// MarkPaid records the payout. For advances the full amount becomes owed.
func (i *Instrument) MarkPaid(by string, method ledger.PaymentMethod, notes *string, at time.Time) error {
	if i.Status != StatusApproved {
		return i.invalid("mark paid")
	}
	i.Status = StatusPaid
	i.PaymentMethod = &method
	i.PaymentNotes = notes
	i.PaidBy = &by
	i.PaidAt = &at
	if i.Kind == KindAdvance {
		i.RemainingBalance = i.Amount
	}
	i.UpdatedAt = at
	return nil
}

// ApplyDeduction posts d against the remaining balance. Only paid advances
// carry a balance to deduct from.
func (i *Instrument) ApplyDeduction(d Deduction) error {
	if i.Kind != KindAdvance || i.Status != StatusPaid {
		return i.invalid("apply deduction to")
	}
	if !d.Amount.IsPositive() {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, ErrInvalidAmount)
	}
	if i.HasDeduction(d.ReferenceType, d.ReferenceID) {
		return fmt.Errorf("%w: %s %s", ErrDeductionAlreadyApplied, d.ReferenceType, d.ReferenceID)
	}
	if d.Amount.GreaterThan(i.RemainingBalance) {
		return fmt.Errorf("%w: deduction %s, remaining %s", ErrExceedsBalance,
			d.Amount.StringFixed(2), i.RemainingBalance.StringFixed(2))
	}
	i.Deductions = append(i.Deductions, d)
	i.RemainingBalance = i.RemainingBalance.Sub(d.Amount)
	i.UpdatedAt = d.PostedAt
	return nil
}

func (i *Instrument) Cancel(by, reason string, at time.Time) error {
	if i.Status != StatusPending && i.Status != StatusApproved {
		return i.invalid("cancel")
	}
	i.Status = StatusCancelled
	i.CancelledBy = &by
	i.CancelledAt = &at
	i.CancelReason = &reason
	i.UpdatedAt = at
	return nil
}

func (i *Instrument) MarkRepaid(at time.Time) error {
	if i.Kind != KindAdvance || i.Status != StatusPaid || !i.RemainingBalance.IsZero() {
		return i.invalid("mark repaid")
	}
	i.Status = StatusRepaid
	i.RepaidAt = &at
	i.UpdatedAt = at
	return nil
}
