package ledger

import (
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type OpenDayRequest struct {
	// Date is YYYY-MM-DD in the business timezone; empty means today.
	Date string `json:"date,omitempty"`
}

func (r OpenDayRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{Field: "date", Message: "must be YYYY-MM-DD"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type PostTransactionRequest struct {
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Description   string            `json:"description"`
	ReferenceType *string           `json:"reference_type,omitempty"`
	ReferenceID   *string           `json:"reference_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	AutoApprove   bool              `json:"auto_approve"`
}

func (r PostTransactionRequest) Validate() error {
	var errs validator.ValidationErrors

	if !r.Type.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "type", Message: ErrInvalidTransactionType.Error()})
	}
	if !r.PaymentMethod.IsValid() {
		errs = append(errs, validator.ValidationError{Field: "payment_method", Message: ErrInvalidPaymentMethod.Error()})
	}
	if r.Type == TransactionTypeAdjustment {
		if r.Amount.IsZero() || !validator.HasMaxScale(r.Amount, 2) {
			errs = append(errs, validator.ValidationError{Field: "amount", Message: "adjustment must be non-zero with at most two decimals"})
		}
	} else if !validator.IsValidAmount(r.Amount) {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: ErrInvalidAmount.Error()})
	}
	if (r.ReferenceType == nil) != (r.ReferenceID == nil) {
		errs = append(errs, validator.ValidationError{Field: "reference_id", Message: "reference_type and reference_id go together"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type CloseDayRequest struct {
	Date  string  `json:"date,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

func (r CloseDayRequest) Validate() error {
	return OpenDayRequest{Date: r.Date}.Validate()
}

type CancelTransactionRequest struct {
	Reason string `json:"reason"`
}

func (r CancelTransactionRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "reason is required"}}
	}
	return nil
}

type ReverseTransactionRequest struct {
	Reason string `json:"reason"`
}

func (r ReverseTransactionRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "reason is required"}}
	}
	return nil
}

// Posting is an in-transaction debit or credit requested by another
// subsystem (payroll, settlement). It is completed immediately.
type Posting struct {
	Date          time.Time
	Type          TransactionType
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod
	Description   string
	ReferenceType string
	ReferenceID   string
}

type TransactionFilter struct {
	Date   *time.Time
	Status *TransactionStatus
	Type   *TransactionType
}

type DailyBalanceResponse struct {
	ID                 string           `json:"id"`
	Date               string           `json:"date"`
	InitialBalance     decimal.Decimal  `json:"initial_balance"`
	DailyTransactions  MethodTotals     `json:"daily_transactions"`
	AccountsReceivable ReceivableTotals `json:"accounts_receivable"`
	FinalBalance       decimal.Decimal  `json:"final_balance"`
	Status             BalanceStatus    `json:"status"`
	OpenedBy           string           `json:"opened_by"`
	OpenedAt           time.Time        `json:"opened_at"`
	ClosedBy           *string          `json:"closed_by,omitempty"`
	ClosedAt           *time.Time       `json:"closed_at,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
}

func NewDailyBalanceResponse(b DailyBalance) DailyBalanceResponse {
	return DailyBalanceResponse{
		ID:                 b.ID,
		Date:               b.Date.Format("2006-01-02"),
		InitialBalance:     b.InitialBalance,
		DailyTransactions:  b.DailyTransactions,
		AccountsReceivable: b.AccountsReceivable,
		FinalBalance:       b.FinalBalance,
		Status:             b.Status,
		OpenedBy:           b.OpenedBy,
		OpenedAt:           b.OpenedAt,
		ClosedBy:           b.ClosedBy,
		ClosedAt:           b.ClosedAt,
		Notes:              b.Notes,
	}
}

type TransactionResponse struct {
	ID              string            `json:"id"`
	BalanceID       string            `json:"balance_id"`
	Date            string            `json:"date"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	SignedAmount    decimal.Decimal   `json:"signed_amount"`
	PaymentMethod   PaymentMethod     `json:"payment_method"`
	Status          TransactionStatus `json:"status"`
	PreviousBalance decimal.Decimal   `json:"previous_balance"`
	NewBalance      decimal.Decimal   `json:"new_balance"`
	Description     string            `json:"description"`
	ReferenceType   *string           `json:"reference_type,omitempty"`
	ReferenceID     *string           `json:"reference_id,omitempty"`
	ReversalOf      *string           `json:"reversal_of,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedBy       string            `json:"created_by"`
	CreatedAt       time.Time         `json:"created_at"`
}

func NewTransactionResponse(t Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID,
		BalanceID:       t.BalanceID,
		Date:            t.BalanceDate.Format("2006-01-02"),
		Type:            t.Type,
		Amount:          t.Amount,
		SignedAmount:    SignedAmount(t.Type, t.Amount),
		PaymentMethod:   t.PaymentMethod,
		Status:          t.Status,
		PreviousBalance: t.PreviousBalance,
		NewBalance:      t.NewBalance,
		Description:     t.Description,
		ReferenceType:   t.ReferenceType,
		ReferenceID:     t.ReferenceID,
		ReversalOf:      t.ReversalOf,
		Metadata:        t.Metadata,
		CreatedBy:       t.CreatedBy,
		CreatedAt:       t.CreatedAt,
	}
}

type VerifyDayResponse struct {
	Date         string          `json:"date"`
	StoredFinal  decimal.Decimal `json:"stored_final_balance"`
	RebuiltFinal decimal.Decimal `json:"rebuilt_final_balance"`
	Drift        decimal.Decimal `json:"drift"`
	Reconciled   bool            `json:"reconciled"`
}
