package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type employeeRepositoryImpl struct {
	tenantRepo
}

func NewEmployeeRepository(db *database.DB, tenants *database.TenantResolver) employee.EmployeeRepository {
	return &employeeRepositoryImpl{tenantRepo{db: db, tenants: tenants}}
}

const employeeColumns = `
	id, business_id, employee_code, full_name, department, position, hire_date, employment_status,
	salary_type, monthly_salary, hourly_rate, daily_rate, allowances, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var (
		e          employee.Employee
		salaryType *employee.SalaryType
		monthly    decimal.NullDecimal
		hourly     decimal.NullDecimal
		daily      decimal.NullDecimal
		allowances []byte
	)
	err := row.Scan(
		&e.ID, &e.BusinessID, &e.EmployeeCode, &e.FullName, &e.Department, &e.Position, &e.HireDate, &e.EmploymentStatus,
		&salaryType, &monthly, &hourly, &daily, &allowances, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return employee.Employee{}, err
	}

	// No salary type means the employee was never configured; the calculator
	// reports that per employee.
	if salaryType != nil {
		e.Compensation = &employee.Compensation{
			Type:          *salaryType,
			MonthlySalary: monthly.Decimal,
			HourlyRate:    hourly.Decimal,
			DailyRate:     daily.Decimal,
		}
		if len(allowances) > 0 {
			if err := json.Unmarshal(allowances, &e.Compensation.Allowances); err != nil {
				return employee.Employee{}, fmt.Errorf("decode allowances: %w", err)
			}
		}
	}
	return e, nil
}

func (r *employeeRepositoryImpl) GetByID(ctx context.Context, businessID, id string) (employee.Employee, error) {
	table, err := r.table(ctx, businessID, "employees")
	if err != nil {
		return employee.Employee{}, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE business_id = $1 AND id = $2 AND deleted_at IS NULL
	`, employeeColumns, table)

	e, err := scanEmployee(r.q(ctx).QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee with id %s: %w", id, err)
	}
	return e, nil
}

// GetActiveByBusinessID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetActiveByBusinessID(ctx context.Context, businessID string) ([]employee.Employee, error) {
	table, err := r.table(ctx, businessID, "employees")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE business_id = $1 AND employment_status = $2 AND deleted_at IS NULL
		ORDER BY employee_code
	`, employeeColumns, table)

	rows, err := r.q(ctx).Query(ctx, query, businessID, employee.EmploymentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}
