package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ========== GENERATION ==========

func (s *PayrollServiceImpl) Generate(ctx context.Context, actor user.Actor, req payroll.GeneratePayrollRequest) (payroll.GenerationResult, error) {
	if err := s.authorize(ctx, actor, user.ActionGenerate); err != nil {
		return payroll.GenerationResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.GenerationResult{}, err
	}
	return s.generate(ctx, actor, req, false)
}

// generate drafts one payroll per eligible employee. Configuration and
// eligibility problems fail the call; anything that goes wrong for a single
// employee is recorded and the rest continue.
func (s *PayrollServiceImpl) generate(ctx context.Context, actor user.Actor, req payroll.GeneratePayrollRequest, automated bool) (payroll.GenerationResult, error) {
	cfg, tmpl, err := s.activeSetup(ctx, actor.BusinessID)
	if err != nil {
		return payroll.GenerationResult{}, err
	}

	employees, err := s.eligibleEmployees(ctx, actor.BusinessID, req.EmployeeIDs)
	if err != nil {
		return payroll.GenerationResult{}, err
	}
	if len(employees) == 0 {
		return payroll.GenerationResult{}, payroll.ErrNoEligibleEmployees
	}

	period := req.Period(cfg.PeriodType)
	workers := s.workers
	if cfg.Automation.Workers > 0 {
		workers = cfg.Automation.Workers
	}
	autoApprove := automated && cfg.Automation.AutoApprove

	type outcome struct {
		payroll payroll.Payroll
		err     error
	}
	outcomes := make([]outcome, len(employees))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			p, err := s.createDraft(ctx, actor, emp, period, cfg, tmpl, nil, nil)
			if err == nil && autoApprove {
				p, err = s.mutate(ctx, actor, p.ID, nil, func(_ context.Context, p *payroll.Payroll) error {
					return p.Approve(actor.UserID, s.clock())
				})
			}
			outcomes[i] = outcome{payroll: p, err: err}
			return nil
		})
	}
	_ = g.Wait()

	result := payroll.GenerationResult{
		TotalAmount: decimal.Zero,
		Errors:      []payroll.ItemError{},
	}
	for i, o := range outcomes {
		emp := employees[i]
		if o.err != nil {
			slog.Warn("Payroll generation failed for employee",
				"business_id", actor.BusinessID,
				"employee_id", emp.ID,
				"error", o.err,
			)
			result.Errors = append(result.Errors, payroll.ItemError{
				EmployeeID:   emp.ID,
				EmployeeName: emp.FullName,
				Message:      o.err.Error(),
				Err:          o.err,
			})
			continue
		}
		result.GeneratedCount++
		result.TotalAmount = result.TotalAmount.Add(o.payroll.Calculation.NetPay)
		result.Payrolls = append(result.Payrolls, o.payroll)
	}
	result.Finish()

	slog.Info("Payroll generation finished",
		"business_id", actor.BusinessID,
		"period_start", period.Start.Format("2006-01-02"),
		"period_end", period.End.Format("2006-01-02"),
		"generated", result.GeneratedCount,
		"failed", len(result.Errors),
		"total_amount", result.TotalAmount.String(),
		"outcome", result.Outcome,
	)
	return result, nil
}

// eligibleEmployees returns the active employees, restricted to ids when
// given. Salary configuration is checked per employee so a missing one is
// reported instead of silently skipped.
func (s *PayrollServiceImpl) eligibleEmployees(ctx context.Context, businessID string, ids []string) ([]employee.Employee, error) {
	active, err := s.sources.Employees.GetActiveByBusinessID(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}
	if len(ids) == 0 {
		return active, nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []employee.Employee
	for _, e := range active {
		if _, ok := wanted[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// ========== BATCH PAYMENT ==========

func (s *PayrollServiceImpl) BatchPay(ctx context.Context, actor user.Actor, req payroll.BatchPayRequest) (payroll.BatchPayResult, error) {
	if err := s.authorize(ctx, actor, user.ActionPay); err != nil {
		return payroll.BatchPayResult{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.BatchPayResult{}, err
	}

	result := payroll.BatchPayResult{
		TotalAmount: decimal.Zero,
		Paid:        []string{},
		Errors:      []payroll.ItemError{},
	}
	seen := make(map[string]struct{}, len(req.PayrollIDs))
	for _, id := range req.PayrollIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		// Cash payouts share the day's balance, so items run one at a time.
		paid, err := s.Pay(ctx, actor, id, payroll.PayPayrollRequest{Method: req.Method, Reference: req.Reference})
		if err != nil {
			slog.Warn("Batch payroll payment failed", "business_id", actor.BusinessID, "payroll_id", id, "error", err)
			result.Errors = append(result.Errors, payroll.ItemError{PayrollID: id, Message: err.Error(), Err: err})
			continue
		}
		result.PaidCount++
		result.TotalAmount = result.TotalAmount.Add(paid.Calculation.NetPay)
		result.Paid = append(result.Paid, id)
	}
	result.Finish()

	slog.Info("Batch payroll payment finished",
		"business_id", actor.BusinessID,
		"paid", result.PaidCount,
		"failed", len(result.Errors),
		"outcome", result.Outcome,
	)
	return result, nil
}

// ========== SCHEDULED RUNS ==========

// PreviousMonth returns the first and last day of the month before now,
// reading the month in now's own location. Days come back as midnight UTC.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	firstOfThis := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfThis.AddDate(0, -1, 0)
	return start, firstOfThis.AddDate(0, 0, -1)
}

// RunScheduled generates last month's payrolls for every business whose
// automation is due on now's day of month. It returns the per-business
// results; one business failing does not stop the others.
func (s *PayrollServiceImpl) RunScheduled(ctx context.Context, now time.Time) (map[string]payroll.GenerationResult, error) {
	configs, err := s.repo.ListAutomatedConfigurations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list automated configurations: %w", err)
	}

	start, end := PreviousMonth(now)
	results := make(map[string]payroll.GenerationResult)
	for _, cfg := range configs {
		if cfg.Automation.DayOfMonth != now.Day() {
			continue
		}
		req := payroll.GeneratePayrollRequest{PeriodRequest: payroll.PeriodRequest{
			PeriodStart: start.Format("2006-01-02"),
			PeriodEnd:   end.Format("2006-01-02"),
			PeriodType:  payroll.PeriodTypeMonthly,
		}}
		res, err := s.generate(ctx, user.System(cfg.BusinessID), req, true)
		if err != nil {
			slog.Error("Scheduled payroll run failed", "business_id", cfg.BusinessID, "error", err)
			res = payroll.GenerationResult{
				Errors:  []payroll.ItemError{{Message: err.Error(), Err: err}},
				Outcome: payroll.OutcomeFailed,
			}
		}
		results[cfg.BusinessID] = res
	}
	return results, nil
}
