package settlement

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateInstrumentRequest struct {
	Kind              Kind             `json:"-"`
	EmployeeID        *string          `json:"employee_id,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	Description       string           `json:"description"`
}

func (r CreateInstrumentRequest) Validate() error {
	var errs validator.ValidationErrors

	switch r.Kind {
	case KindAdvance:
		if r.EmployeeID == nil || validator.IsEmpty(*r.EmployeeID) {
			errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required for an advance"})
		}
		if r.InstallmentAmount != nil && !validator.IsValidAmount(*r.InstallmentAmount) {
			errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "must be positive with at most two decimals"})
		}
	case KindExpense:
		if r.Category == nil || validator.IsEmpty(*r.Category) {
			errs = append(errs, validator.ValidationError{Field: "category", Message: "category is required for an expense"})
		}
		if r.InstallmentAmount != nil {
			errs = append(errs, validator.ValidationError{Field: "installment_amount", Message: "only advances are repaid in installments"})
		}
	default:
		errs = append(errs, validator.ValidationError{Field: "kind", Message: ErrInvalidKind.Error()})
	}
	if !validator.IsValidAmount(r.Amount) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive with at most two decimals"})
	}
	if validator.IsEmpty(r.Description) {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "description is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ApproveInstrumentRequest struct {
	ApprovedAmount *decimal.Decimal `json:"approved_amount,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

func (r ApproveInstrumentRequest) Validate() error {
	if r.ApprovedAmount != nil && !validator.IsValidAmount(*r.ApprovedAmount) {
		return validator.ValidationErrors{{Field: "approved_amount", Message: "must be positive with at most two decimals"}}
	}
	return nil
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r ReasonRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "reason is required"}}
	}
	return nil
}

type MarkPaidRequest struct {
	Method ledger.PaymentMethod `json:"method"`
	Notes  *string              `json:"notes,omitempty"`
}

func (r MarkPaidRequest) Validate() error {
	if !r.Method.IsValid() {
		return validator.ValidationErrors{{Field: "method", Message: ledger.ErrInvalidPaymentMethod.Error()}}
	}
	return nil
}

type ApplyDeductionRequest struct {
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

func (r ApplyDeductionRequest) Validate() error {
	var errs validator.ValidationErrors
	switch r.ReferenceType {
	case ReferencePayroll:
	case ReferenceCommission:
		errs = append(errs, validator.ValidationError{Field: "reference_type", Message: "use commission-deductions for commission"})
	default:
		errs = append(errs, validator.ValidationError{Field: "reference_type", Message: "must be payroll"})
	}
	if validator.IsEmpty(r.ReferenceID) {
		errs = append(errs, validator.ValidationError{Field: "reference_id", Message: "reference_id is required"})
	}
	if !validator.IsValidAmount(r.Amount) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive with at most two decimals"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CommissionDeductionRequest struct {
	CommissionID string          `json:"commission_id"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
}

func (r CommissionDeductionRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.CommissionID) {
		errs = append(errs, validator.ValidationError{Field: "commission_id", Message: "commission_id is required"})
	}
	if !validator.IsValidAmount(r.Amount) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "must be positive with at most two decimals"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type DeductionResponse struct {
	ID            string          `json:"id"`
	ReferenceType ReferenceType   `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	PostedAt      time.Time       `json:"posted_at"`
}

type InstrumentResponse struct {
	ID                  string                `json:"id"`
	Kind                Kind                  `json:"kind"`
	EmployeeID          *string               `json:"employee_id,omitempty"`
	Category            *string               `json:"category,omitempty"`
	Description         string                `json:"description"`
	RequestedAmount     decimal.Decimal       `json:"requested_amount"`
	Amount              decimal.Decimal       `json:"amount"`
	InstallmentAmount   *decimal.Decimal      `json:"installment_amount,omitempty"`
	RemainingBalance    decimal.Decimal       `json:"remaining_balance"`
	Status              Status                `json:"status"`
	Deductions          []DeductionResponse   `json:"deductions"`
	PaymentMethod       *ledger.PaymentMethod `json:"payment_method,omitempty"`
	LedgerTransactionID *string               `json:"ledger_transaction_id,omitempty"`
	RequestedBy         string                `json:"requested_by"`
	ApprovedBy          *string               `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time            `json:"approved_at,omitempty"`
	RejectionReason     *string               `json:"rejection_reason,omitempty"`
	PaidAt              *time.Time            `json:"paid_at,omitempty"`
	CancelReason        *string               `json:"cancel_reason,omitempty"`
	RepaidAt            *time.Time            `json:"repaid_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

func NewInstrumentResponse(i Instrument) InstrumentResponse {
	deductions := make([]DeductionResponse, 0, len(i.Deductions))
	for _, d := range i.Deductions {
		deductions = append(deductions, DeductionResponse{
			ID:            d.ID,
			ReferenceType: d.ReferenceType,
			ReferenceID:   d.ReferenceID,
			Amount:        d.Amount,
			Description:   d.Description,
			PostedAt:      d.PostedAt,
		})
	}
	return InstrumentResponse{
		ID:                  i.ID,
		Kind:                i.Kind,
		EmployeeID:          i.EmployeeID,
		Category:            i.Category,
		Description:         i.Description,
		RequestedAmount:     i.RequestedAmount,
		Amount:              i.Amount,
		InstallmentAmount:   i.InstallmentAmount,
		RemainingBalance:    i.RemainingBalance,
		Status:              i.Status,
		Deductions:          deductions,
		PaymentMethod:       i.PaymentMethod,
		LedgerTransactionID: i.LedgerTransactionID,
		RequestedBy:         i.RequestedBy,
		ApprovedBy:          i.ApprovedBy,
		ApprovedAt:          i.ApprovedAt,
		RejectionReason:     i.RejectionReason,
		PaidAt:              i.PaidAt,
		CancelReason:        i.CancelReason,
		RepaidAt:            i.RepaidAt,
		CreatedAt:           i.CreatedAt,
		UpdatedAt:           i.UpdatedAt,
	}
}
