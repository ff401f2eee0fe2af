package payroll

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== CONFIGURATION DTOs ==========

type UpsertConfigurationRequest struct {
	Active              bool       `json:"active"`
	DefaultTemplateID   *string    `json:"default_template_id,omitempty"`
	PeriodType          PeriodType `json:"period_type"`
	StandardWorkingDays int        `json:"standard_working_days"`
	Automation          Automation `json:"automation"`
}

func (r *UpsertConfigurationRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.PeriodType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "period_type", Message: ErrInvalidPeriodType.Error()})
	}
	if r.StandardWorkingDays < 0 || r.StandardWorkingDays > 31 {
		errs = append(errs, validator.ValidationError{Field: "standard_working_days", Message: "must be between 0 and 31"})
	}
	if r.Automation.Enabled && (r.Automation.DayOfMonth < 1 || r.Automation.DayOfMonth > 28) {
		errs = append(errs, validator.ValidationError{Field: "automation.day_of_month", Message: "must be between 1 and 28"})
	}
	if r.Automation.Workers < 0 || r.Automation.Workers > 64 {
		errs = append(errs, validator.ValidationError{Field: "automation.workers", Message: "must be between 0 and 64"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CreateTemplateRequest struct {
	Name           string         `json:"name"`
	Overtime       OvertimeRule   `json:"overtime"`
	Bonuses        []BonusRule    `json:"bonuses"`
	Deductions     DeductionRules `json:"deductions"`
	DeductAdvances bool           `json:"deduct_advances"`
}

func (r *CreateTemplateRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if r.Overtime.Multiplier.IsNegative() {
		errs = append(errs, validator.ValidationError{Field: "overtime.multiplier", Message: "must not be negative"})
	}
	if r.Overtime.DailyThresholdHours.IsNegative() || r.Overtime.DailyThresholdHours.GreaterThan(decimal.NewFromInt(24)) {
		errs = append(errs, validator.ValidationError{Field: "overtime.daily_threshold_hours", Message: "must be between 0 and 24"})
	}
	for _, b := range r.Bonuses {
		switch b.Type {
		case BonusFixed, BonusPercentage, BonusPerformance, BonusTenure:
		default:
			errs = append(errs, validator.ValidationError{Field: "bonuses." + b.Code, Message: "invalid bonus type"})
		}
	}
	rules := map[string]DeductionRule{
		"deductions.tax":             r.Deductions.Tax,
		"deductions.social_security": r.Deductions.SocialSecurity,
		"deductions.health":          r.Deductions.Health,
		"deductions.pension":         r.Deductions.Pension,
	}
	for field, rule := range rules {
		if !validator.IsValidPercent(rule.Rate) || rule.Fixed.IsNegative() {
			errs = append(errs, validator.ValidationError{Field: field, Message: "rate must be 0-100 and fixed must not be negative"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========== PAYROLL RECORD DTOs ==========

type PeriodRequest struct {
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	PeriodType  PeriodType `json:"period_type"`
	WorkingDays int        `json:"working_days"`
}

func (r PeriodRequest) validate(errs validator.ValidationErrors) validator.ValidationErrors {
	if _, _, ok := validator.IsValidDateRange(r.PeriodStart, r.PeriodEnd); !ok {
		errs = append(errs, validator.ValidationError{Field: "period", Message: ErrInvalidPeriod.Error()})
	}
	if r.PeriodType != "" && !r.PeriodType.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "period_type", Message: ErrInvalidPeriodType.Error()})
	}
	if r.WorkingDays < 0 || r.WorkingDays > 31 {
		errs = append(errs, validator.ValidationError{Field: "working_days", Message: "must be between 0 and 31"})
	}
	return errs
}

// Period converts a validated request. An empty type falls back to def.
func (r PeriodRequest) Period(def PeriodType) Period {
	start, end, _ := validator.IsValidDateRange(r.PeriodStart, r.PeriodEnd)
	typ := r.PeriodType
	if typ == "" {
		typ = def
	}
	return Period{Start: start, End: end, Type: typ, WorkingDays: r.WorkingDays}
}

type CreatePayrollRequest struct {
	PeriodRequest
	EmployeeID       string           `json:"employee_id"`
	PerformanceScore *decimal.Decimal `json:"performance_score,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

func (r *CreatePayrollRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.PerformanceScore != nil && !validator.IsValidPercent(*r.PerformanceScore) {
		errs = append(errs, validator.ValidationError{Field: "performance_score", Message: "must be between 0 and 100"})
	}
	errs = r.PeriodRequest.validate(errs)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RecalculatePayrollRequest struct {
	PerformanceScore *decimal.Decimal `json:"performance_score,omitempty"`
}

type GeneratePayrollRequest struct {
	PeriodRequest
	EmployeeIDs []string `json:"employee_ids,omitempty"` // Empty = all active employees
}

func (r *GeneratePayrollRequest) Validate() error {
	errs := r.PeriodRequest.validate(nil)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PayPayrollRequest struct {
	Method    ledger.PaymentMethod `json:"method"`
	Reference *string              `json:"reference,omitempty"`
}

func (r *PayPayrollRequest) Validate() error {
	if !r.Method.IsValid() {
		return validator.ValidationErrors{{Field: "method", Message: ledger.ErrInvalidPaymentMethod.Error()}}
	}
	return nil
}

type BatchPayRequest struct {
	PayrollIDs []string             `json:"payroll_ids"`
	Method     ledger.PaymentMethod `json:"method"`
	Reference  *string              `json:"reference,omitempty"`
}

func (r *BatchPayRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.PayrollIDs) == 0 {
		errs = append(errs, validator.ValidationError{Field: "payroll_ids", Message: "at least one payroll is required"})
	}
	if !r.Method.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "method", Message: ledger.ErrInvalidPaymentMethod.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CancelPayrollRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelPayrollRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "reason is required"}}
	}
	return nil
}

type PayrollFilter struct {
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Status      *PayrollStatus
	EmployeeID  *string
}

type PayrollResponse struct {
	ID                  string                `json:"id"`
	EmployeeID          string                `json:"employee_id"`
	EmployeeName        *string               `json:"employee_name,omitempty"`
	EmployeeCode        *string               `json:"employee_code,omitempty"`
	Period              Period                `json:"period"`
	Items               []Item                `json:"items"`
	Calculation         Calculation           `json:"calculation"`
	Warnings            []string              `json:"warnings,omitempty"`
	Status              PayrollStatus         `json:"status"`
	PaymentMethod       *ledger.PaymentMethod `json:"payment_method,omitempty"`
	PaymentReference    *string               `json:"payment_reference,omitempty"`
	LedgerTransactionID *string               `json:"ledger_transaction_id,omitempty"`
	ApprovedAt          *time.Time            `json:"approved_at,omitempty"`
	PaidAt              *time.Time            `json:"paid_at,omitempty"`
	CancelReason        *string               `json:"cancel_reason,omitempty"`
	Notes               *string               `json:"notes,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

func NewPayrollResponse(p Payroll) PayrollResponse {
	return PayrollResponse{
		ID:                  p.ID,
		EmployeeID:          p.EmployeeID,
		EmployeeName:        p.EmployeeName,
		EmployeeCode:        p.EmployeeCode,
		Period:              p.Period,
		Items:               p.Items,
		Calculation:         p.Calculation,
		Warnings:            p.Warnings,
		Status:              p.Status,
		PaymentMethod:       p.PaymentMethod,
		PaymentReference:    p.PaymentReference,
		LedgerTransactionID: p.LedgerTransactionID,
		ApprovedAt:          p.ApprovedAt,
		PaidAt:              p.PaidAt,
		CancelReason:        p.CancelReason,
		Notes:               p.Notes,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// Outcome distinguishes total success, partial success and total failure
// of a batch.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

func outcomeOf(succeeded, failed int) Outcome {
	switch {
	case failed == 0:
		return OutcomeSuccess
	case succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

type ItemError struct {
	EmployeeID   string `json:"employee_id,omitempty"`
	EmployeeName string `json:"employee_name,omitempty"`
	PayrollID    string `json:"payroll_id,omitempty"`
	Message      string `json:"message"`
	Err          error  `json:"-"`
}

func (e ItemError) Error() string {
	return e.Message
}

func (e ItemError) Unwrap() error {
	return e.Err
}

type GenerationResult struct {
	GeneratedCount int             `json:"generated_count"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Errors         []ItemError     `json:"errors"`
	Payrolls       []Payroll       `json:"-"`
	Outcome        Outcome         `json:"outcome"`
}

// Finish derives the outcome from the collected counts.
func (r *GenerationResult) Finish() {
	r.Outcome = outcomeOf(r.GeneratedCount, len(r.Errors))
}

type BatchPayResult struct {
	PaidCount   int             `json:"paid_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Paid        []string        `json:"paid"`
	Errors      []ItemError     `json:"errors"`
	Outcome     Outcome         `json:"outcome"`
}

func (r *BatchPayResult) Finish() {
	r.Outcome = outcomeOf(r.PaidCount, len(r.Errors))
}

type PayrollSummaryResponse struct {
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	TotalEmployees  int             `json:"total_employees"`
	TotalBaseSalary decimal.Decimal `json:"total_base_salary"`
	TotalOvertime   decimal.Decimal `json:"total_overtime"`
	TotalAllowances decimal.Decimal `json:"total_allowances"`
	TotalBonuses    decimal.Decimal `json:"total_bonuses"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalNetPay     decimal.Decimal `json:"total_net_pay"`
	DraftCount      int             `json:"draft_count"`
	ApprovedCount   int             `json:"approved_count"`
	PaidCount       int             `json:"paid_count"`
	CancelledCount  int             `json:"cancelled_count"`
}

// Summarize totals non-cancelled payrolls and counts every status.
func Summarize(start, end time.Time, payrolls []Payroll) PayrollSummaryResponse {
	s := PayrollSummaryResponse{
		PeriodStart: start.Format("2006-01-02"),
		PeriodEnd:   end.Format("2006-01-02"),
	}
	employees := make(map[string]struct{})
	for _, p := range payrolls {
		switch p.Status {
		case PayrollStatusDraft:
			s.DraftCount++
		case PayrollStatusApproved:
			s.ApprovedCount++
		case PayrollStatusPaid:
			s.PaidCount++
		case PayrollStatusCancelled:
			s.CancelledCount++
			continue
		}
		employees[p.EmployeeID] = struct{}{}
		c := p.Calculation
		s.TotalBaseSalary = s.TotalBaseSalary.Add(c.BaseSalary)
		s.TotalOvertime = s.TotalOvertime.Add(c.Overtime)
		s.TotalAllowances = s.TotalAllowances.Add(c.Allowances)
		s.TotalBonuses = s.TotalBonuses.Add(c.Bonuses)
		s.TotalEarnings = s.TotalEarnings.Add(c.TotalEarnings)
		s.TotalDeductions = s.TotalDeductions.Add(c.Deductions)
		s.TotalNetPay = s.TotalNetPay.Add(c.NetPay)
	}
	s.TotalEmployees = len(employees)
	return s
}
