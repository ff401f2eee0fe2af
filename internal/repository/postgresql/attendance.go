package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
)

type attendanceRepositoryImpl struct {
	tenantRepo
}

func NewAttendanceRepository(db *database.DB, tenants *database.TenantResolver) payroll.AttendanceProvider {
	return &attendanceRepositoryImpl{tenantRepo{db: db, tenants: tenants}}
}

// GetAttendanceSummary sums worked hours per day; a day with several
// clock-ins counts once.
func (r *attendanceRepositoryImpl) GetAttendanceSummary(ctx context.Context, businessID, employeeID string, start, end time.Time) (payroll.AttendanceSummary, error) {
	table, err := r.table(ctx, businessID, "attendances")
	if err != nil {
		return payroll.AttendanceSummary{}, err
	}
	query := fmt.Sprintf(`
		SELECT date, COALESCE(SUM(worked_hours), 0)
		FROM %s
		WHERE business_id = $1 AND employee_id = $2 AND date BETWEEN $3 AND $4
		GROUP BY date
		ORDER BY date
	`, table)

	rows, err := r.q(ctx).Query(ctx, query, businessID, employeeID, start, end)
	if err != nil {
		return payroll.AttendanceSummary{}, fmt.Errorf("failed to get attendance summary: %w", err)
	}
	defer rows.Close()

	summary := payroll.AttendanceSummary{EmployeeID: employeeID}
	for rows.Next() {
		var day payroll.DailyHours
		if err := rows.Scan(&day.Date, &day.Hours); err != nil {
			return payroll.AttendanceSummary{}, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		if day.Hours.IsPositive() {
			summary.WorkedDays++
		}
		summary.Daily = append(summary.Daily, day)
	}
	return summary, rows.Err()
}
