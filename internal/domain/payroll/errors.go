package payroll

import (
	"errors"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

var (
	ErrPayrollRecordNotFound      = fmt.Errorf("%w: payroll record not found", shared.ErrNotFound)
	ErrPayrollRecordAlreadyExists = fmt.Errorf("%w: payroll record already exists for this period", shared.ErrConflict)
	ErrConfigurationNotFound      = fmt.Errorf("%w: payroll configuration not found", shared.ErrNotFound)
	ErrTemplateNotFound           = fmt.Errorf("%w: payroll template not found", shared.ErrNotFound)
	ErrSalaryConfigMissing        = fmt.Errorf("%w: employee has no salary configuration", shared.ErrConfigurationMissing)
	ErrNoEligibleEmployees        = fmt.Errorf("%w for payroll", shared.ErrNoEligibleEmployees)
	ErrNoConfiguration            = fmt.Errorf("%w for payroll", shared.ErrNoConfiguration)
	ErrInsufficientCash           = fmt.Errorf("%w: cash on hand does not cover net pay", shared.ErrInsufficientFunds)
	ErrAdvanceChanged             = fmt.Errorf("%w: advance balance changed after calculation, cancel and regenerate the payroll", shared.ErrInvalidState)

	ErrInvalidPeriod     = errors.New("invalid payroll period")
	ErrInvalidPeriodType = errors.New("invalid period type")
	ErrEmployeeInactive  = fmt.Errorf("%w: employee is not active", shared.ErrInvalidState)
)
