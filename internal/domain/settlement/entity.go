package settlement

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindAdvance Kind = "advance"
	KindExpense Kind = "expense"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
	StatusRepaid    Status = "repaid"
	StatusCancelled Status = "cancelled"
)

type ReferenceType string

const (
	ReferencePayroll    ReferenceType = "payroll"
	ReferenceCommission ReferenceType = "commission"
)

// Deduction is one posting against an instrument's remaining balance.
type Deduction struct {
	ID            string
	ReferenceType ReferenceType
	ReferenceID   string
	Amount        decimal.Decimal
	Description   string
	PostedAt      time.Time
}

// Instrument is an advance paid to an employee or an expense paid on behalf
// of the business.
type Instrument struct {
	ID                  string
	BusinessID          string
	Kind                Kind
	EmployeeID          *string
	Category            *string
	Description         string
	RequestedAmount     decimal.Decimal
	Amount              decimal.Decimal
	InstallmentAmount   *decimal.Decimal
	RemainingBalance    decimal.Decimal
	Status              Status
	Deductions          []Deduction
	PaymentMethod       *ledger.PaymentMethod
	PaymentNotes        *string
	LedgerTransactionID *string
	RequestedBy         string
	ApprovedBy          *string
	ApprovedAt          *time.Time
	ApprovalNotes       *string
	RejectedBy          *string
	RejectedAt          *time.Time
	RejectionReason     *string
	PaidBy              *string
	PaidAt              *time.Time
	CancelledBy         *string
	CancelledAt         *time.Time
	CancelReason        *string
	RepaidAt            *time.Time
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (i Instrument) IsTerminal() bool {
	switch i.Status {
	case StatusRejected, StatusCancelled, StatusRepaid:
		return true
	case StatusPaid:
		return i.Kind == KindExpense
	}
	return false
}

// TotalDeducted sums every deduction posted so far.
func (i Instrument) TotalDeducted() decimal.Decimal {
	total := decimal.Zero
	for _, d := range i.Deductions {
		total = total.Add(d.Amount)
	}
	return total
}

// HasDeduction reports whether a posting for the reference already exists.
func (i Instrument) HasDeduction(refType ReferenceType, refID string) bool {
	for _, d := range i.Deductions {
		if d.ReferenceType == refType && d.ReferenceID == refID {
			return true
		}
	}
	return false
}

// NextInstallment is what a payroll run should deduct: the installment if
// one is set, capped at what is still owed.
func (i Instrument) NextInstallment() decimal.Decimal {
	if i.InstallmentAmount != nil && i.InstallmentAmount.LessThan(i.RemainingBalance) {
		return *i.InstallmentAmount
	}
	return i.RemainingBalance
}

// Commission is an employee's earned commission that deductions can be
// posted against.
type Commission struct {
	ID         string
	BusinessID string
	EmployeeID string
	Amount     decimal.Decimal
	Deducted   decimal.Decimal
}

func (c Commission) Available() decimal.Decimal {
	return c.Amount.Sub(c.Deducted)
}
