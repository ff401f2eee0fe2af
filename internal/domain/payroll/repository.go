package payroll

import (
	"context"
	"time"
)

// PayrollRepository defines data access methods for payroll.
// All methods include businessID to prevent cross-tenant data access.
type PayrollRepository interface {
	// Configuration
	GetConfiguration(ctx context.Context, businessID string) (Configuration, error)
	UpsertConfiguration(ctx context.Context, cfg Configuration) (Configuration, error)
	ListAutomatedConfigurations(ctx context.Context) ([]Configuration, error)

	// Templates
	CreateTemplate(ctx context.Context, t Template) (Template, error)
	GetTemplate(ctx context.Context, businessID, id string) (Template, error)

	// Payroll records
	// Create fails with ErrPayrollRecordAlreadyExists when the employee
	// already has a payroll for the exact period.
	Create(ctx context.Context, p Payroll) (Payroll, error)
	GetByID(ctx context.Context, businessID, id string) (Payroll, error)
	GetForUpdate(ctx context.Context, businessID, id string) (Payroll, error)
	ExistsForPeriod(ctx context.Context, businessID, employeeID string, start, end time.Time) (bool, error)
	Update(ctx context.Context, p Payroll) (Payroll, error)
	List(ctx context.Context, businessID string, filter PayrollFilter) ([]Payroll, error)
}

// AttendanceProvider aggregates attendance for a period.
type AttendanceProvider interface {
	GetAttendanceSummary(ctx context.Context, businessID, employeeID string, start, end time.Time) (AttendanceSummary, error)
}

// AbsenceProvider lists approved absences overlapping a period.
type AbsenceProvider interface {
	ListApprovedAbsences(ctx context.Context, businessID, employeeID string, start, end time.Time) ([]Absence, error)
}

// BenefitProvider lists active benefit enrollments.
type BenefitProvider interface {
	ListActiveBenefits(ctx context.Context, businessID, employeeID string) ([]Benefit, error)
}
