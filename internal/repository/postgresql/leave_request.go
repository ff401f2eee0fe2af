package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
)

type leaveRequestRepositoryImpl struct {
	tenantRepo
}

func NewAbsenceRepository(db *database.DB, tenants *database.TenantResolver) payroll.AbsenceProvider {
	return &leaveRequestRepositoryImpl{tenantRepo{db: db, tenants: tenants}}
}

// ListApprovedAbsences returns approved leave overlapping [start, end]. The
// paid flag comes from the leave type.
func (r *leaveRequestRepositoryImpl) ListApprovedAbsences(ctx context.Context, businessID, employeeID string, start, end time.Time) ([]payroll.Absence, error) {
	requests, err := r.table(ctx, businessID, "leave_requests")
	if err != nil {
		return nil, err
	}
	types, err := r.table(ctx, businessID, "leave_types")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT lt.name, lr.start_date, lr.end_date, lt.is_paid
		FROM %s lr
		JOIN %s lt ON lt.id = lr.leave_type_id
		WHERE lr.business_id = $1 AND lr.employee_id = $2 AND lr.status = 'approved'
			AND lr.start_date <= $4 AND lr.end_date >= $3
		ORDER BY lr.start_date
	`, requests, types)

	rows, err := r.q(ctx).Query(ctx, query, businessID, employeeID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved absences: %w", err)
	}
	defer rows.Close()

	var out []payroll.Absence
	for rows.Next() {
		var a payroll.Absence
		if err := rows.Scan(&a.Type, &a.Start, &a.End, &a.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
