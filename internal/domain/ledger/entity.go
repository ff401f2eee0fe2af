package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type BalanceStatus string

const (
	BalanceStatusOpen   BalanceStatus = "open"
	BalanceStatusClosed BalanceStatus = "closed"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCard     PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCard:
		return true
	}
	return false
}

// MethodTotals aggregates same-day postings by payment method.
type MethodTotals struct {
	Cash     decimal.Decimal `json:"cash"`
	Transfer decimal.Decimal `json:"transfer"`
	Card     decimal.Decimal `json:"card"`
}

// ReceivableTotals aggregates collections on earlier credit sales.
type ReceivableTotals struct {
	CashPayments     decimal.Decimal `json:"cash_payments"`
	TransferPayments decimal.Decimal `json:"transfer_payments"`
	CardPayments     decimal.Decimal `json:"card_payments"`
}

// DailyBalance is the cash position of one business for one calendar day.
type DailyBalance struct {
	ID                 string
	BusinessID         string
	Date               time.Time
	InitialBalance     decimal.Decimal
	DailyTransactions  MethodTotals
	AccountsReceivable ReceivableTotals
	FinalBalance       decimal.Decimal
	Status             BalanceStatus
	OpenedBy           string
	OpenedAt           time.Time
	ClosedBy           *string
	ClosedAt           *time.Time
	Notes              *string
	Version            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b DailyBalance) IsOpen() bool {
	return b.Status == BalanceStatusOpen
}

type TransactionType string

const (
	TransactionTypeTip        TransactionType = "tip"
	TransactionTypeChange     TransactionType = "change"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
	TransactionTypeSale       TransactionType = "sale"
	TransactionTypeCollection TransactionType = "collection"
	// TransactionTypePayout covers money paid out of the drawer for payroll,
	// advances and expenses.
	TransactionTypePayout TransactionType = "payout"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTip, TransactionTypeChange, TransactionTypeRefund, TransactionTypeAdjustment,
		TransactionTypeSale, TransactionTypeCollection, TransactionTypePayout:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is one entry of the append-only ledger. Only Status and the
// audit fields of the matching transition change after creation.
type Transaction struct {
	ID              string
	BusinessID      string
	BalanceID       string
	BalanceDate     time.Time
	Type            TransactionType
	Amount          decimal.Decimal
	PaymentMethod   PaymentMethod
	Status          TransactionStatus
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	Description     string
	ReferenceType   *string
	ReferenceID     *string
	ReversalOf      *string
	Metadata        map[string]string
	CreatedBy       string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	CancelledBy     *string
	CancelledAt     *time.Time
	CancelReason    *string
	ReversedBy      *string
	ReversedAt      *time.Time
	ReverseReason   *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsApplied reports whether the entry counts towards the day's aggregates.
// A reversed entry still counts; its reversal entry carries the inverse.
func (t Transaction) IsApplied() bool {
	return t.Status == TransactionStatusCompleted || t.Status == TransactionStatusReversed
}
