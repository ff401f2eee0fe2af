package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
)

type benefitRepositoryImpl struct {
	tenantRepo
}

func NewBenefitRepository(db *database.DB, tenants *database.TenantResolver) payroll.BenefitProvider {
	return &benefitRepositoryImpl{tenantRepo{db: db, tenants: tenants}}
}

func (r *benefitRepositoryImpl) ListActiveBenefits(ctx context.Context, businessID, employeeID string) ([]payroll.Benefit, error) {
	table, err := r.table(ctx, businessID, "benefit_enrollments")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, code, name, employee_rate, employee_fixed, employer_rate, employer_fixed
		FROM %s
		WHERE business_id = $1 AND employee_id = $2 AND is_active
		ORDER BY code
	`, table)

	rows, err := r.q(ctx).Query(ctx, query, businessID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active benefits: %w", err)
	}
	defer rows.Close()

	var out []payroll.Benefit
	for rows.Next() {
		var b payroll.Benefit
		err := rows.Scan(&b.ID, &b.Code, &b.Name,
			&b.EmployeeContribution.Rate, &b.EmployeeContribution.Fixed,
			&b.EmployerContribution.Rate, &b.EmployerContribution.Fixed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
