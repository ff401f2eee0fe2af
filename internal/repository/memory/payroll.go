package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

type PayrollRepository struct {
	s *Store
}

func NewPayrollRepository(s *Store) *PayrollRepository {
	return &PayrollRepository{s: s}
}

var _ payroll.PayrollRepository = (*PayrollRepository)(nil)

// ========== CONFIGURATION ==========

func (r *PayrollRepository) GetConfiguration(ctx context.Context, businessID string) (payroll.Configuration, error) {
	var cfg payroll.Configuration
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.configs[businessID]
		if !ok {
			return payroll.ErrConfigurationNotFound
		}
		cfg = found
		return nil
	})
	return cfg, err
}

func (r *PayrollRepository) UpsertConfiguration(ctx context.Context, cfg payroll.Configuration) (payroll.Configuration, error) {
	err := r.s.do(ctx, func(st *state) error {
		if existing, ok := st.configs[cfg.BusinessID]; ok {
			cfg.ID = existing.ID
			cfg.CreatedAt = existing.CreatedAt
		}
		st.configs[cfg.BusinessID] = cfg
		return nil
	})
	return cfg, err
}

func (r *PayrollRepository) ListAutomatedConfigurations(ctx context.Context) ([]payroll.Configuration, error) {
	var out []payroll.Configuration
	err := r.s.do(ctx, func(st *state) error {
		for _, cfg := range st.configs {
			if cfg.Active && cfg.Automation.Enabled {
				out = append(out, cfg)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].BusinessID < out[j].BusinessID })
	return out, err
}

func (r *PayrollRepository) CreateTemplate(ctx context.Context, t payroll.Template) (payroll.Template, error) {
	err := r.s.do(ctx, func(st *state) error {
		st.templates[key(t.BusinessID, t.ID)] = cloneTemplate(t)
		return nil
	})
	return t, err
}

func (r *PayrollRepository) GetTemplate(ctx context.Context, businessID, id string) (payroll.Template, error) {
	var t payroll.Template
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.templates[key(businessID, id)]
		if !ok {
			return payroll.ErrTemplateNotFound
		}
		t = cloneTemplate(found)
		return nil
	})
	return t, err
}

// ========== PAYROLL RECORDS ==========

func existsForPeriod(st *state, businessID, employeeID string, start, end time.Time) bool {
	for _, p := range st.payrolls {
		if p.BusinessID == businessID && p.EmployeeID == employeeID &&
			p.Status != payroll.PayrollStatusCancelled &&
			p.Period.Start.Equal(start) && p.Period.End.Equal(end) {
			return true
		}
	}
	return false
}

func (r *PayrollRepository) Create(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	err := r.s.do(ctx, func(st *state) error {
		if existsForPeriod(st, p.BusinessID, p.EmployeeID, p.Period.Start, p.Period.End) {
			return fmt.Errorf("%w: employee %s, %s to %s", payroll.ErrPayrollRecordAlreadyExists,
				p.EmployeeID, p.Period.Start.Format("2006-01-02"), p.Period.End.Format("2006-01-02"))
		}
		p.Version = 1
		st.payrolls[key(p.BusinessID, p.ID)] = clonePayroll(p)
		p = withEmployee(st, p)
		return nil
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	return p, nil
}

func withEmployee(st *state, p payroll.Payroll) payroll.Payroll {
	if e, ok := st.employees[key(p.BusinessID, p.EmployeeID)]; ok {
		name, code := e.FullName, e.EmployeeCode
		p.EmployeeName = &name
		p.EmployeeCode = &code
	}
	return p
}

func (r *PayrollRepository) GetByID(ctx context.Context, businessID, id string) (payroll.Payroll, error) {
	var p payroll.Payroll
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.payrolls[key(businessID, id)]
		if !ok {
			return payroll.ErrPayrollRecordNotFound
		}
		p = withEmployee(st, clonePayroll(found))
		return nil
	})
	return p, err
}

func (r *PayrollRepository) GetForUpdate(ctx context.Context, businessID, id string) (payroll.Payroll, error) {
	return r.GetByID(ctx, businessID, id)
}

func (r *PayrollRepository) ExistsForPeriod(ctx context.Context, businessID, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := r.s.do(ctx, func(st *state) error {
		exists = existsForPeriod(st, businessID, employeeID, start, end)
		return nil
	})
	return exists, err
}

func (r *PayrollRepository) Update(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	err := r.s.do(ctx, func(st *state) error {
		k := key(p.BusinessID, p.ID)
		current, ok := st.payrolls[k]
		if !ok {
			return payroll.ErrPayrollRecordNotFound
		}
		if current.Version != p.Version {
			return fmt.Errorf("%w: payroll %s", shared.ErrConcurrentModification, p.ID)
		}
		p.Version++
		st.payrolls[k] = clonePayroll(p)
		return nil
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	return p, nil
}

func (r *PayrollRepository) List(ctx context.Context, businessID string, filter payroll.PayrollFilter) ([]payroll.Payroll, error) {
	var out []payroll.Payroll
	err := r.s.do(ctx, func(st *state) error {
		for _, p := range st.payrolls {
			if p.BusinessID != businessID {
				continue
			}
			if filter.PeriodStart != nil && p.Period.Start.Before(*filter.PeriodStart) {
				continue
			}
			if filter.PeriodEnd != nil && p.Period.End.After(*filter.PeriodEnd) {
				continue
			}
			if filter.Status != nil && p.Status != *filter.Status {
				continue
			}
			if filter.EmployeeID != nil && p.EmployeeID != *filter.EmployeeID {
				continue
			}
			out = append(out, withEmployee(st, clonePayroll(p)))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Period.Start.Equal(out[j].Period.Start) {
			return out[i].Period.Start.After(out[j].Period.Start)
		}
		return out[i].EmployeeID < out[j].EmployeeID
	})
	return out, err
}
