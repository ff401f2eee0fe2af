package settlement

import "context"

type InstrumentFilter struct {
	Kind       *Kind
	Status     *Status
	EmployeeID *string
}

type InstrumentRepository interface {
	Create(ctx context.Context, i Instrument) (Instrument, error)
	GetByID(ctx context.Context, businessID, id string) (Instrument, error)
	GetForUpdate(ctx context.Context, businessID, id string) (Instrument, error)
	// Update persists i including new deductions when the stored version
	// equals i.Version.
	Update(ctx context.Context, i Instrument) (Instrument, error)
	List(ctx context.Context, businessID string, filter InstrumentFilter) ([]Instrument, error)
	// ListOutstandingAdvances returns paid advances of an employee that still
	// have a remaining balance, oldest first.
	ListOutstandingAdvances(ctx context.Context, businessID, employeeID string) ([]Instrument, error)
}

// CommissionLedger accepts deduction postings against earned commissions.
type CommissionLedger interface {
	GetForUpdate(ctx context.Context, businessID, commissionID string) (Commission, error)
	PostDeduction(ctx context.Context, businessID, commissionID string, d Deduction) error
}
