package employee

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTenureMonths(t *testing.T) {
	hired := time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)
	e := Employee{HireDate: hired}

	assert.Equal(t, 0, e.TenureMonths(time.Date(2022, 4, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, e.TenureMonths(time.Date(2022, 4, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, e.TenureMonths(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, e.TenureMonths(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, Employee{}.TenureMonths(time.Now()))
}

func TestCompensationIsConfigured(t *testing.T) {
	var missing *Compensation
	assert.False(t, missing.IsConfigured())
	assert.False(t, (&Compensation{Type: SalaryTypeMonthly}).IsConfigured())
	assert.True(t, (&Compensation{Type: SalaryTypeMonthly, MonthlySalary: decimal.NewFromInt(3000)}).IsConfigured())
	assert.True(t, (&Compensation{Type: SalaryTypeHourly, HourlyRate: decimal.NewFromInt(20)}).IsConfigured())
	assert.False(t, (&Compensation{Type: SalaryTypeDaily, HourlyRate: decimal.NewFromInt(20)}).IsConfigured())
}
