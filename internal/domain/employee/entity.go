package employee

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID               string
	BusinessID       string
	EmployeeCode     string
	FullName         string
	Department       *string
	Position         *string
	HireDate         time.Time
	EmploymentStatus EmploymentStatus
	Compensation     *Compensation
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EmploymentStatus string

const (
	EmploymentStatusActive     EmploymentStatus = "active"
	EmploymentStatusSuspended  EmploymentStatus = "suspended"
	EmploymentStatusResigned   EmploymentStatus = "resigned"
	EmploymentStatusTerminated EmploymentStatus = "terminated"
)

func (e Employee) IsActive() bool {
	return e.EmploymentStatus == EmploymentStatusActive
}

type SalaryType string

const (
	SalaryTypeMonthly SalaryType = "monthly"
	SalaryTypeHourly  SalaryType = "hourly"
	SalaryTypeDaily   SalaryType = "daily"
)

// Compensation is the salary configuration an employee is paid by.
type Compensation struct {
	Type          SalaryType
	MonthlySalary decimal.Decimal
	HourlyRate    decimal.Decimal
	DailyRate     decimal.Decimal
	Allowances    []Allowance
}

type Allowance struct {
	Code    string
	Name    string
	Amount  decimal.Decimal
	Taxable bool
}

// IsConfigured reports whether the rate matching the salary type is set.
func (c *Compensation) IsConfigured() bool {
	if c == nil {
		return false
	}
	switch c.Type {
	case SalaryTypeMonthly:
		return c.MonthlySalary.IsPositive()
	case SalaryTypeHourly:
		return c.HourlyRate.IsPositive()
	case SalaryTypeDaily:
		return c.DailyRate.IsPositive()
	}
	return false
}

// TenureMonths counts whole months between hire date and at.
func (e Employee) TenureMonths(at time.Time) int {
	if e.HireDate.IsZero() || at.Before(e.HireDate) {
		return 0
	}
	months := (at.Year()-e.HireDate.Year())*12 + int(at.Month()-e.HireDate.Month())
	if at.Day() < e.HireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
