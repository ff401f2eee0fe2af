package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type payrollRepository struct {
	tenantRepo
}

func NewPayrollRepository(db *database.DB, tenants *database.TenantResolver) payroll.PayrollRepository {
	return &payrollRepository{tenantRepo{db: db, tenants: tenants}}
}

// ========== CONFIGURATION ==========

const configurationColumns = `
	id, business_id, active, default_template_id, period_type, standard_working_days,
	automation, created_at, updated_at`

func scanConfiguration(row pgx.Row) (payroll.Configuration, error) {
	var (
		c          payroll.Configuration
		automation []byte
	)
	err := row.Scan(
		&c.ID, &c.BusinessID, &c.Active, &c.DefaultTemplateID, &c.PeriodType, &c.StandardWorkingDays,
		&automation, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return payroll.Configuration{}, err
	}
	if err := json.Unmarshal(automation, &c.Automation); err != nil {
		return payroll.Configuration{}, fmt.Errorf("decode automation settings: %w", err)
	}
	return c, nil
}

func (r *payrollRepository) GetConfiguration(ctx context.Context, businessID string) (payroll.Configuration, error) {
	table, err := r.table(ctx, businessID, "payroll_configurations")
	if err != nil {
		return payroll.Configuration{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE business_id = $1`, configurationColumns, table)

	c, err := scanConfiguration(r.q(ctx).QueryRow(ctx, query, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Configuration{}, payroll.ErrConfigurationNotFound
		}
		return payroll.Configuration{}, fmt.Errorf("failed to get payroll configuration: %w", err)
	}
	return c, nil
}

func (r *payrollRepository) UpsertConfiguration(ctx context.Context, cfg payroll.Configuration) (payroll.Configuration, error) {
	table, err := r.table(ctx, cfg.BusinessID, "payroll_configurations")
	if err != nil {
		return payroll.Configuration{}, err
	}
	automation, err := json.Marshal(cfg.Automation)
	if err != nil {
		return payroll.Configuration{}, fmt.Errorf("encode automation settings: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, business_id, active, default_template_id, period_type, standard_working_days,
			automation, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (business_id) DO UPDATE SET
			active = EXCLUDED.active,
			default_template_id = EXCLUDED.default_template_id,
			period_type = EXCLUDED.period_type,
			standard_working_days = EXCLUDED.standard_working_days,
			automation = EXCLUDED.automation,
			updated_at = EXCLUDED.updated_at
		RETURNING %s
	`, table, configurationColumns)

	c, err := scanConfiguration(r.q(ctx).QueryRow(ctx, query,
		cfg.ID, cfg.BusinessID, cfg.Active, cfg.DefaultTemplateID, cfg.PeriodType, cfg.StandardWorkingDays,
		automation, cfg.CreatedAt, cfg.UpdatedAt,
	))
	if err != nil {
		return payroll.Configuration{}, fmt.Errorf("failed to upsert payroll configuration: %w", err)
	}
	return c, nil
}

// ListAutomatedConfigurations walks every tenant schema registered in
// public.businesses.
func (r *payrollRepository) ListAutomatedConfigurations(ctx context.Context) ([]payroll.Configuration, error) {
	rows, err := r.q(ctx).Query(ctx, `SELECT id FROM public.businesses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	businessIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan businesses: %w", err)
	}

	var out []payroll.Configuration
	for _, businessID := range businessIDs {
		cfg, err := r.GetConfiguration(ctx, businessID)
		if errors.Is(err, payroll.ErrConfigurationNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if cfg.Active && cfg.Automation.Enabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// ========== TEMPLATES ==========

func (r *payrollRepository) CreateTemplate(ctx context.Context, t payroll.Template) (payroll.Template, error) {
	table, err := r.table(ctx, t.BusinessID, "payroll_templates")
	if err != nil {
		return payroll.Template{}, err
	}
	overtime, bonuses, deductions, err := encodeTemplateRules(t)
	if err != nil {
		return payroll.Template{}, err
	}

	_, err = r.q(ctx).Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, business_id, name, overtime, bonuses, deductions, deduct_advances, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, table), t.ID, t.BusinessID, t.Name, overtime, bonuses, deductions, t.DeductAdvances, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, "uk_payroll_template_name") {
			return payroll.Template{}, fmt.Errorf("%w: payroll template %q", shared.ErrConflict, t.Name)
		}
		return payroll.Template{}, fmt.Errorf("failed to create payroll template: %w", err)
	}
	return t, nil
}

func encodeTemplateRules(t payroll.Template) (overtime, bonuses, deductions []byte, err error) {
	if overtime, err = json.Marshal(t.Overtime); err != nil {
		return nil, nil, nil, fmt.Errorf("encode overtime rule: %w", err)
	}
	if t.Bonuses == nil {
		t.Bonuses = []payroll.BonusRule{}
	}
	if bonuses, err = json.Marshal(t.Bonuses); err != nil {
		return nil, nil, nil, fmt.Errorf("encode bonus rules: %w", err)
	}
	if deductions, err = json.Marshal(t.Deductions); err != nil {
		return nil, nil, nil, fmt.Errorf("encode deduction rules: %w", err)
	}
	return overtime, bonuses, deductions, nil
}

func (r *payrollRepository) GetTemplate(ctx context.Context, businessID, id string) (payroll.Template, error) {
	table, err := r.table(ctx, businessID, "payroll_templates")
	if err != nil {
		return payroll.Template{}, err
	}

	var (
		t                             payroll.Template
		overtime, bonuses, deductions []byte
	)
	err = r.q(ctx).QueryRow(ctx, fmt.Sprintf(`
		SELECT id, business_id, name, overtime, bonuses, deductions, deduct_advances, created_at, updated_at
		FROM %s
		WHERE business_id = $1 AND id = $2
	`, table), businessID, id).Scan(
		&t.ID, &t.BusinessID, &t.Name, &overtime, &bonuses, &deductions, &t.DeductAdvances, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Template{}, payroll.ErrTemplateNotFound
		}
		return payroll.Template{}, fmt.Errorf("failed to get payroll template: %w", err)
	}

	if err := json.Unmarshal(overtime, &t.Overtime); err != nil {
		return payroll.Template{}, fmt.Errorf("decode overtime rule: %w", err)
	}
	if err := json.Unmarshal(bonuses, &t.Bonuses); err != nil {
		return payroll.Template{}, fmt.Errorf("decode bonus rules: %w", err)
	}
	if err := json.Unmarshal(deductions, &t.Deductions); err != nil {
		return payroll.Template{}, fmt.Errorf("decode deduction rules: %w", err)
	}
	return t, nil
}

// ========== PAYROLL RECORDS ==========

const payrollColumns = `
	p.id, p.business_id, p.employee_id,
	p.period_start, p.period_end, p.period_type, p.working_days, p.total_hours, p.overtime_hours,
	p.items, p.calculation, p.warnings, p.status, p.template_id,
	p.payment_method, p.payment_reference, p.ledger_transaction_id, p.notes,
	p.created_by, p.approved_by, p.approved_at, p.paid_by, p.paid_at,
	p.cancelled_by, p.cancelled_at, p.cancel_reason,
	p.version, p.created_at, p.updated_at,
	e.full_name, e.employee_code`

func scanPayroll(row pgx.Row) (payroll.Payroll, error) {
	var (
		p                           payroll.Payroll
		items, calculation, warning []byte
	)
	err := row.Scan(
		&p.ID, &p.BusinessID, &p.EmployeeID,
		&p.Period.Start, &p.Period.End, &p.Period.Type, &p.Period.WorkingDays, &p.Period.TotalHours, &p.Period.OvertimeHours,
		&items, &calculation, &warning, &p.Status, &p.TemplateID,
		&p.PaymentMethod, &p.PaymentReference, &p.LedgerTransactionID, &p.Notes,
		&p.CreatedBy, &p.ApprovedBy, &p.ApprovedAt, &p.PaidBy, &p.PaidAt,
		&p.CancelledBy, &p.CancelledAt, &p.CancelReason,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
		&p.EmployeeName, &p.EmployeeCode,
	)
	if err != nil {
		return payroll.Payroll{}, err
	}
	if err := json.Unmarshal(items, &p.Items); err != nil {
		return payroll.Payroll{}, fmt.Errorf("decode payroll items: %w", err)
	}
	if err := json.Unmarshal(calculation, &p.Calculation); err != nil {
		return payroll.Payroll{}, fmt.Errorf("decode payroll calculation: %w", err)
	}
	if err := json.Unmarshal(warning, &p.Warnings); err != nil {
		return payroll.Payroll{}, fmt.Errorf("decode payroll warnings: %w", err)
	}
	return p, nil
}

func encodePayrollDetail(p payroll.Payroll) (items, calculation, warnings []byte, err error) {
	if p.Items == nil {
		p.Items = []payroll.Item{}
	}
	if p.Warnings == nil {
		p.Warnings = []string{}
	}
	if items, err = json.Marshal(p.Items); err != nil {
		return nil, nil, nil, fmt.Errorf("encode payroll items: %w", err)
	}
	if calculation, err = json.Marshal(p.Calculation); err != nil {
		return nil, nil, nil, fmt.Errorf("encode payroll calculation: %w", err)
	}
	if warnings, err = json.Marshal(p.Warnings); err != nil {
		return nil, nil, nil, fmt.Errorf("encode payroll warnings: %w", err)
	}
	return items, calculation, warnings, nil
}

// tables returns the payroll and employee tables of a business.
func (r *payrollRepository) tables(ctx context.Context, businessID string) (string, string, error) {
	payrolls, err := r.table(ctx, businessID, "payrolls")
	if err != nil {
		return "", "", err
	}
	employees, err := r.table(ctx, businessID, "employees")
	if err != nil {
		return "", "", err
	}
	return payrolls, employees, nil
}

func (r *payrollRepository) Create(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	table, err := r.table(ctx, p.BusinessID, "payrolls")
	if err != nil {
		return payroll.Payroll{}, err
	}
	items, calculation, warnings, err := encodePayrollDetail(p)
	if err != nil {
		return payroll.Payroll{}, err
	}

	_, err = r.q(ctx).Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, business_id, employee_id,
			period_start, period_end, period_type, working_days, total_hours, overtime_hours,
			items, calculation, warnings, status, template_id, notes,
			created_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1, $17, $18)
	`, table),
		p.ID, p.BusinessID, p.EmployeeID,
		p.Period.Start, p.Period.End, p.Period.Type, p.Period.WorkingDays, p.Period.TotalHours, p.Period.OvertimeHours,
		items, calculation, warnings, p.Status, p.TemplateID, p.Notes,
		p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if uniqueViolation(err, "uk_payrolls_employee_period") {
			return payroll.Payroll{}, payroll.ErrPayrollRecordAlreadyExists
		}
		return payroll.Payroll{}, fmt.Errorf("failed to create payroll: %w", err)
	}
	return r.GetByID(ctx, p.BusinessID, p.ID)
}

func (r *payrollRepository) get(ctx context.Context, businessID, id string, forUpdate bool) (payroll.Payroll, error) {
	payrolls, employees, err := r.tables(ctx, businessID)
	if err != nil {
		return payroll.Payroll{}, err
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s p
		LEFT JOIN %s e ON e.id = p.employee_id
		WHERE p.business_id = $1 AND p.id = $2
	`, payrollColumns, payrolls, employees)
	if forUpdate {
		query += " FOR UPDATE OF p"
	}

	p, err := scanPayroll(r.q(ctx).QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollRecordNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll: %w", err)
	}
	return p, nil
}

func (r *payrollRepository) GetByID(ctx context.Context, businessID, id string) (payroll.Payroll, error) {
	return r.get(ctx, businessID, id, false)
}

func (r *payrollRepository) GetForUpdate(ctx context.Context, businessID, id string) (payroll.Payroll, error) {
	return r.get(ctx, businessID, id, true)
}

func (r *payrollRepository) ExistsForPeriod(ctx context.Context, businessID, employeeID string, start, end time.Time) (bool, error) {
	table, err := r.table(ctx, businessID, "payrolls")
	if err != nil {
		return false, err
	}
	var exists bool
	err = r.q(ctx).QueryRow(ctx, fmt.Sprintf(`
		SELECT EXISTS(
			SELECT 1 FROM %s
			WHERE business_id = $1 AND employee_id = $2
				AND period_start = $3 AND period_end = $4
				AND status <> 'cancelled'
		)
	`, table), businessID, employeeID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check payroll existence: %w", err)
	}
	return exists, nil
}

func (r *payrollRepository) Update(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	table, err := r.table(ctx, p.BusinessID, "payrolls")
	if err != nil {
		return payroll.Payroll{}, err
	}
	items, calculation, warnings, err := encodePayrollDetail(p)
	if err != nil {
		return payroll.Payroll{}, err
	}

	tag, err := r.q(ctx).Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET
			working_days = $3, total_hours = $4, overtime_hours = $5,
			items = $6, calculation = $7, warnings = $8, status = $9,
			payment_method = $10, payment_reference = $11, ledger_transaction_id = $12, notes = $13,
			approved_by = $14, approved_at = $15, paid_by = $16, paid_at = $17,
			cancelled_by = $18, cancelled_at = $19, cancel_reason = $20,
			version = version + 1, updated_at = $21
		WHERE business_id = $1 AND id = $2 AND version = $22
	`, table),
		p.BusinessID, p.ID,
		p.Period.WorkingDays, p.Period.TotalHours, p.Period.OvertimeHours,
		items, calculation, warnings, p.Status,
		p.PaymentMethod, p.PaymentReference, p.LedgerTransactionID, p.Notes,
		p.ApprovedBy, p.ApprovedAt, p.PaidBy, p.PaidAt,
		p.CancelledBy, p.CancelledAt, p.CancelReason,
		p.UpdatedAt, p.Version,
	)
	if err != nil {
		return payroll.Payroll{}, fmt.Errorf("failed to update payroll: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.Payroll{}, fmt.Errorf("%w: payroll %s", shared.ErrConcurrentModification, p.ID)
	}
	return r.GetByID(ctx, p.BusinessID, p.ID)
}

func (r *payrollRepository) List(ctx context.Context, businessID string, filter payroll.PayrollFilter) ([]payroll.Payroll, error) {
	payrolls, employees, err := r.tables(ctx, businessID)
	if err != nil {
		return nil, err
	}

	conditions := []string{"p.business_id = $1"}
	args := []interface{}{businessID}
	if filter.PeriodStart != nil {
		args = append(args, *filter.PeriodStart)
		conditions = append(conditions, fmt.Sprintf("p.period_start >= $%d", len(args)))
	}
	if filter.PeriodEnd != nil {
		args = append(args, *filter.PeriodEnd)
		conditions = append(conditions, fmt.Sprintf("p.period_end <= $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		conditions = append(conditions, fmt.Sprintf("p.employee_id = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM %s p
		LEFT JOIN %s e ON e.id = p.employee_id
		WHERE %s
		ORDER BY p.period_start DESC, p.employee_id
	`, payrollColumns, payrolls, employees, strings.Join(conditions, " AND "))

	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls: %w", err)
	}
	defer rows.Close()

	var out []payroll.Payroll
	for rows.Next() {
		p, err := scanPayroll(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
