package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
)

// Directory serves the read-only collaborators: employees, attendance,
// absences and benefits.
type Directory struct {
	s *Store
}

func NewDirectory(s *Store) *Directory {
	return &Directory{s: s}
}

var (
	_ employee.EmployeeRepository = (*Directory)(nil)
	_ payroll.AttendanceProvider  = (*Directory)(nil)
	_ payroll.AbsenceProvider     = (*Directory)(nil)
	_ payroll.BenefitProvider     = (*Directory)(nil)
)

func (d *Directory) GetByID(ctx context.Context, businessID, id string) (employee.Employee, error) {
	var e employee.Employee
	err := d.s.do(ctx, func(st *state) error {
		found, ok := st.employees[key(businessID, id)]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		e = cloneEmployee(found)
		return nil
	})
	return e, err
}

func (d *Directory) GetActiveByBusinessID(ctx context.Context, businessID string) ([]employee.Employee, error) {
	var out []employee.Employee
	err := d.s.do(ctx, func(st *state) error {
		for _, e := range st.employees {
			if e.BusinessID == businessID && e.IsActive() {
				out = append(out, cloneEmployee(e))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeCode < out[j].EmployeeCode })
	return out, err
}

func (d *Directory) GetAttendanceSummary(ctx context.Context, businessID, employeeID string, start, end time.Time) (payroll.AttendanceSummary, error) {
	summary := payroll.AttendanceSummary{EmployeeID: employeeID}
	err := d.s.do(ctx, func(st *state) error {
		for _, day := range st.attendance[key(businessID, employeeID)] {
			if day.Date.Before(start) || day.Date.After(end) {
				continue
			}
			summary.Daily = append(summary.Daily, day)
			if day.Hours.IsPositive() {
				summary.WorkedDays++
			}
		}
		return nil
	})
	return summary, err
}

func (d *Directory) ListApprovedAbsences(ctx context.Context, businessID, employeeID string, start, end time.Time) ([]payroll.Absence, error) {
	var out []payroll.Absence
	err := d.s.do(ctx, func(st *state) error {
		for _, a := range st.absences[key(businessID, employeeID)] {
			if utils.Overlap(start, end, a.Start, a.End) > 0 {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func (d *Directory) ListActiveBenefits(ctx context.Context, businessID, employeeID string) ([]payroll.Benefit, error) {
	var out []payroll.Benefit
	err := d.s.do(ctx, func(st *state) error {
		out = append(out, st.benefits[key(businessID, employeeID)]...)
		return nil
	})
	return out, err
}
