package settlement

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

var (
	ErrInstrumentNotFound      = fmt.Errorf("%w: settlement instrument not found", shared.ErrNotFound)
	ErrCommissionNotFound      = fmt.Errorf("%w: commission not found", shared.ErrNotFound)
	ErrExceedsBalance          = fmt.Errorf("%w: deduction exceeds remaining balance", shared.ErrExceedsBalance)
	ErrDeductionAlreadyApplied = fmt.Errorf("%w: deduction already applied", shared.ErrConflict)
	ErrInsufficientCash        = fmt.Errorf("%w: not enough cash to pay out", shared.ErrInsufficientFunds)
	ErrCommissionExhausted     = fmt.Errorf("%w: commission has not enough left", shared.ErrExceedsBalance)
	ErrEmployeeMismatch        = fmt.Errorf("%w: commission belongs to another employee", shared.ErrInvalidInput)

	ErrInvalidKind   = errors.New("invalid instrument kind")
	ErrInvalidAmount = errors.New("amount must be positive")
)
