package payroll

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

func (p *Payroll) invalid(op string) error {
	return shared.NewInvalidState("payroll", p.ID, string(p.Status), op)
}

// ApplyResult stores a calculation. Only drafts are recalculated.
func (p *Payroll) ApplyResult(r Result, at time.Time) error {
	if p.Status != PayrollStatusDraft {
		return p.invalid("recalculate")
	}
	p.Period = r.Period
	p.Items = r.Items
	p.Calculation = r.Calculation
	p.Warnings = r.Warnings
	p.UpdatedAt = at
	return nil
}

func (p *Payroll) Approve(by string, at time.Time) error {
	if p.Status != PayrollStatusDraft {
		return p.invalid("approve")
	}
	p.Status = PayrollStatusApproved
	p.ApprovedBy = &by
	p.ApprovedAt = &at
	p.UpdatedAt = at
	return nil
}

func (p *Payroll) MarkPaid(by string, method ledger.PaymentMethod, reference *string, ledgerTxID *string, at time.Time) error {
	if p.Status != PayrollStatusApproved {
		return p.invalid("pay")
	}
	p.Status = PayrollStatusPaid
	p.PaymentMethod = &method
	p.PaymentReference = reference
	p.LedgerTransactionID = ledgerTxID
	p.PaidBy = &by
	p.PaidAt = &at
	p.UpdatedAt = at
	return nil
}

func (p *Payroll) Cancel(by, reason string, at time.Time) error {
	if p.Status != PayrollStatusDraft && p.Status != PayrollStatusApproved {
		return p.invalid("cancel")
	}
	p.Status = PayrollStatusCancelled
	p.CancelledBy = &by
	p.CancelledAt = &at
	p.CancelReason = &reason
	p.UpdatedAt = at
	return nil
}
