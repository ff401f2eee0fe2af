package ledger

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

var (
	ErrBalanceNotFound      = fmt.Errorf("%w: daily balance not found", shared.ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("%w: ledger transaction not found", shared.ErrNotFound)
	ErrBalanceAlreadyClosed = fmt.Errorf("%w: daily balance", shared.ErrAlreadyClosed)
	ErrNoOpenBalance        = fmt.Errorf("%w: no open daily balance", shared.ErrInvalidState)
	ErrInsufficientFunds    = fmt.Errorf("%w: cash balance would go negative", shared.ErrInsufficientFunds)
	ErrAlreadyReversed      = fmt.Errorf("%w: transaction already has a reversal", shared.ErrConflict)

	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidPaymentMethod   = errors.New("invalid payment method")
	ErrInvalidAmount          = errors.New("amount must be positive with at most two decimals")
)
