// Package memory is a process-local implementation of every repository. It
// backs the "memory" store driver and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
)

// state holds every record by value. Stored values are replaced, never
// mutated in place, so a shallow copy of the maps is a consistent snapshot.
type state struct {
	balances     map[string]ledger.DailyBalance
	transactions map[string]ledger.Transaction
	instruments  map[string]settlement.Instrument
	commissions  map[string]settlement.Commission
	configs      map[string]payroll.Configuration
	templates    map[string]payroll.Template
	payrolls     map[string]payroll.Payroll
	employees    map[string]employee.Employee
	attendance   map[string][]payroll.DailyHours
	absences     map[string][]payroll.Absence
	benefits     map[string][]payroll.Benefit
}

func newState() *state {
	return &state{
		balances:     make(map[string]ledger.DailyBalance),
		transactions: make(map[string]ledger.Transaction),
		instruments:  make(map[string]settlement.Instrument),
		commissions:  make(map[string]settlement.Commission),
		configs:      make(map[string]payroll.Configuration),
		templates:    make(map[string]payroll.Template),
		payrolls:     make(map[string]payroll.Payroll),
		employees:    make(map[string]employee.Employee),
		attendance:   make(map[string][]payroll.DailyHours),
		absences:     make(map[string][]payroll.Absence),
		benefits:     make(map[string][]payroll.Benefit),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) snapshot() *state {
	return &state{
		balances:     copyMap(s.balances),
		transactions: copyMap(s.transactions),
		instruments:  copyMap(s.instruments),
		commissions:  copyMap(s.commissions),
		configs:      copyMap(s.configs),
		templates:    copyMap(s.templates),
		payrolls:     copyMap(s.payrolls),
		employees:    copyMap(s.employees),
		attendance:   copyMap(s.attendance),
		absences:     copyMap(s.absences),
		benefits:     copyMap(s.benefits),
	}
}

// Store serializes all access behind one mutex. A transaction holds the
// mutex for its whole duration and restores the snapshot taken at its start
// when fn fails.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

var _ database.Transactor = (*Store)(nil)

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.state.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = saved
		return err
	}
	return nil
}

// do runs fn against the state, taking the mutex unless ctx already belongs
// to a transaction of this store.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

func key(parts ...string) string {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, '|')
		}
		b = append(b, p...)
	}
	return string(b)
}

func dayKey(businessID string, d time.Time) string {
	return key(businessID, d.Format("2006-01-02"))
}

// ========== SEEDING ==========

// PutEmployee adds or replaces a directory entry.
func (s *Store) PutEmployee(e employee.Employee) {
	_ = s.do(context.Background(), func(st *state) error {
		st.employees[key(e.BusinessID, e.ID)] = cloneEmployee(e)
		return nil
	})
}

func (s *Store) PutCommission(c settlement.Commission) {
	_ = s.do(context.Background(), func(st *state) error {
		st.commissions[key(c.BusinessID, c.ID)] = c
		return nil
	})
}

// PutAttendance appends attendance days for an employee.
func (s *Store) PutAttendance(businessID, employeeID string, days ...payroll.DailyHours) {
	_ = s.do(context.Background(), func(st *state) error {
		k := key(businessID, employeeID)
		st.attendance[k] = append(append([]payroll.DailyHours(nil), st.attendance[k]...), days...)
		return nil
	})
}

func (s *Store) PutAbsence(businessID, employeeID string, a payroll.Absence) {
	_ = s.do(context.Background(), func(st *state) error {
		k := key(businessID, employeeID)
		st.absences[k] = append(append([]payroll.Absence(nil), st.absences[k]...), a)
		return nil
	})
}

func (s *Store) PutBenefit(businessID, employeeID string, b payroll.Benefit) {
	_ = s.do(context.Background(), func(st *state) error {
		k := key(businessID, employeeID)
		st.benefits[k] = append(append([]payroll.Benefit(nil), st.benefits[k]...), b)
		return nil
	})
}

// ========== CLONES ==========

func cloneEmployee(e employee.Employee) employee.Employee {
	if e.Compensation != nil {
		c := *e.Compensation
		c.Allowances = append([]employee.Allowance(nil), c.Allowances...)
		e.Compensation = &c
	}
	return e
}

func cloneTransaction(t ledger.Transaction) ledger.Transaction {
	if t.Metadata != nil {
		m := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			m[k] = v
		}
		t.Metadata = m
	}
	return t
}

func cloneInstrument(i settlement.Instrument) settlement.Instrument {
	i.Deductions = append([]settlement.Deduction(nil), i.Deductions...)
	return i
}

func clonePayroll(p payroll.Payroll) payroll.Payroll {
	p.Items = append([]payroll.Item(nil), p.Items...)
	p.Warnings = append([]string(nil), p.Warnings...)
	return p
}

func cloneTemplate(t payroll.Template) payroll.Template {
	t.Bonuses = append([]payroll.BonusRule(nil), t.Bonuses...)
	return t
}
