package employee

import "context"

// EmployeeRepository is the read-only employee directory.
type EmployeeRepository interface {
	GetByID(ctx context.Context, businessID, id string) (Employee, error)
	GetActiveByBusinessID(ctx context.Context, businessID string) ([]Employee, error)
}
