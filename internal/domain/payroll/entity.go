package payroll

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// PayrollStatus enum
type PayrollStatus string

const (
	PayrollStatusDraft     PayrollStatus = "draft"
	PayrollStatusApproved  PayrollStatus = "approved"
	PayrollStatusPaid      PayrollStatus = "paid"
	PayrollStatusCancelled PayrollStatus = "cancelled"
)

func (s PayrollStatus) IsTerminal() bool {
	return s == PayrollStatusPaid || s == PayrollStatusCancelled
}

type PeriodType string

const (
	PeriodTypeMonthly  PeriodType = "monthly"
	PeriodTypeBiweekly PeriodType = "biweekly"
	PeriodTypeWeekly   PeriodType = "weekly"
)

func (t PeriodType) IsValid() bool {
	switch t {
	case PeriodTypeMonthly, PeriodTypeBiweekly, PeriodTypeWeekly:
		return true
	}
	return false
}

// Period is the working date range a payroll covers plus its aggregates.
type Period struct {
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Type          PeriodType      `json:"type"`
	WorkingDays   int             `json:"working_days"`
	TotalHours    decimal.Decimal `json:"total_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
}

type ItemCategory string

const (
	CategoryEarnings   ItemCategory = "earnings"
	CategoryDeductions ItemCategory = "deductions"
	CategoryBenefits   ItemCategory = "benefits"
)

type ItemType string

const (
	ItemBaseSalary     ItemType = "base_salary"
	ItemOvertime       ItemType = "overtime"
	ItemAllowance      ItemType = "allowance"
	ItemBonus          ItemType = "bonus"
	ItemTax            ItemType = "tax"
	ItemSocialSecurity ItemType = "social_security"
	ItemHealth         ItemType = "health"
	ItemPension        ItemType = "pension"
	ItemBenefit        ItemType = "benefit"
	ItemAdvance        ItemType = "advance"
)

// Item is one line of a payslip.
type Item struct {
	Category    ItemCategory    `json:"category"`
	Type        ItemType        `json:"type"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable"`
	ReferenceID *string         `json:"reference_id,omitempty"`
}

// Calculation holds the derived totals of a payroll.
type Calculation struct {
	BaseSalary      decimal.Decimal `json:"base_salary"`
	Overtime        decimal.Decimal `json:"overtime"`
	Allowances      decimal.Decimal `json:"allowances"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	TaxableEarnings decimal.Decimal `json:"taxable_earnings"`
	Deductions      decimal.Decimal `json:"deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
}

type Payroll struct {
	ID                  string
	BusinessID          string
	EmployeeID          string
	Period              Period
	Items               []Item
	Calculation         Calculation
	Warnings            []string
	Status              PayrollStatus
	TemplateID          *string
	PaymentMethod       *ledger.PaymentMethod
	PaymentReference    *string
	LedgerTransactionID *string
	Notes               *string
	CreatedBy           string
	ApprovedBy          *string
	ApprovedAt          *time.Time
	PaidBy              *string
	PaidAt              *time.Time
	CancelledBy         *string
	CancelledAt         *time.Time
	CancelReason        *string
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time

	// Joined fields
	EmployeeName *string
	EmployeeCode *string
}

// AdvanceItems returns the advance deduction lines of the payroll.
func (p Payroll) AdvanceItems() []Item {
	var out []Item
	for _, it := range p.Items {
		if it.Type == ItemAdvance && it.ReferenceID != nil {
			out = append(out, it)
		}
	}
	return out
}

// DailyHours is one attendance day.
type DailyHours struct {
	Date  time.Time
	Hours decimal.Decimal
}

// AttendanceSummary - Aggregate from attendance records of one period
type AttendanceSummary struct {
	EmployeeID    string
	WorkedDays    int
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	// Daily, when present, is used to split regular and overtime hours with
	// the template threshold instead of RegularHours/OvertimeHours.
	Daily []DailyHours
}

// Absence is an approved leave range.
type Absence struct {
	Type  string
	Start time.Time
	End   time.Time
	Paid  bool
}

// Contribution is a rate (percent) or fixed amount.
type Contribution struct {
	Rate  decimal.Decimal `json:"rate"`
	Fixed decimal.Decimal `json:"fixed"`
}

// Of returns the fixed amount if set, otherwise rate percent of base.
func (c Contribution) Of(base decimal.Decimal) decimal.Decimal {
	if c.Fixed.IsPositive() {
		return c.Fixed
	}
	return base.Mul(c.Rate).Div(decimal.NewFromInt(100))
}

// Benefit is an active enrollment of an employee.
type Benefit struct {
	ID                   string
	Code                 string
	Name                 string
	EmployeeContribution Contribution
	EmployerContribution Contribution
}

// OutstandingAdvance is what is still owed on a paid advance.
type OutstandingAdvance struct {
	InstrumentID string
	Remaining    decimal.Decimal
	Installment  decimal.Decimal
}
