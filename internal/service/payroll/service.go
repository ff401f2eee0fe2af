package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// Sources groups the read-only collaborators the calculator draws from.
type Sources struct {
	Employees  employee.EmployeeRepository
	Attendance payroll.AttendanceProvider
	Absences   payroll.AbsenceProvider
	Benefits   payroll.BenefitProvider
}

type PayrollServiceImpl struct {
	transactor  database.Transactor
	locker      lock.Locker
	repo        payroll.PayrollRepository
	sources     Sources
	instruments settlement.InstrumentRepository
	poster      ledger.Poster
	authorizer  user.Authorizer
	clock       utils.Clock
	workers     int
}

func NewPayrollService(
	transactor database.Transactor,
	locker lock.Locker,
	repo payroll.PayrollRepository,
	sources Sources,
	instruments settlement.InstrumentRepository,
	poster ledger.Poster,
	authorizer user.Authorizer,
	clock utils.Clock,
	workers int,
) *PayrollServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	if workers <= 0 {
		workers = 4
	}
	return &PayrollServiceImpl{
		transactor:  transactor,
		locker:      locker,
		repo:        repo,
		sources:     sources,
		instruments: instruments,
		poster:      poster,
		authorizer:  authorizer,
		clock:       clock,
		workers:     workers,
	}
}

var _ payroll.PayrollService = (*PayrollServiceImpl)(nil)

func (s *PayrollServiceImpl) authorize(ctx context.Context, actor user.Actor, action user.Action) error {
	return s.authorizer.Authorize(ctx, actor, user.Can(user.ResourcePayroll, action))
}

// ========== CONFIGURATION ==========

func (s *PayrollServiceImpl) GetConfiguration(ctx context.Context, actor user.Actor) (payroll.Configuration, error) {
	if err := s.authorize(ctx, actor, user.ActionRead); err != nil {
		return payroll.Configuration{}, err
	}
	return s.repo.GetConfiguration(ctx, actor.BusinessID)
}

func (s *PayrollServiceImpl) UpsertConfiguration(ctx context.Context, actor user.Actor, req payroll.UpsertConfigurationRequest) (payroll.Configuration, error) {
	if err := s.authorize(ctx, actor, user.ActionManage); err != nil {
		return payroll.Configuration{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.Configuration{}, err
	}
	if req.DefaultTemplateID != nil {
		if _, err := s.repo.GetTemplate(ctx, actor.BusinessID, *req.DefaultTemplateID); err != nil {
			return payroll.Configuration{}, err
		}
	}

	now := s.clock()
	cfg, err := s.repo.UpsertConfiguration(ctx, payroll.Configuration{
		ID:                  utils.NewID(),
		BusinessID:          actor.BusinessID,
		Active:              req.Active,
		DefaultTemplateID:   req.DefaultTemplateID,
		PeriodType:          req.PeriodType,
		StandardWorkingDays: req.StandardWorkingDays,
		Automation:          req.Automation,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		return payroll.Configuration{}, fmt.Errorf("save payroll configuration: %w", err)
	}

	slog.Info("Payroll configuration saved",
		"business_id", actor.BusinessID,
		"active", cfg.Active,
		"automation", cfg.Automation.Enabled,
	)
	return cfg, nil
}

func (s *PayrollServiceImpl) CreateTemplate(ctx context.Context, actor user.Actor, req payroll.CreateTemplateRequest) (payroll.Template, error) {
	if err := s.authorize(ctx, actor, user.ActionManage); err != nil {
		return payroll.Template{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.Template{}, err
	}

	now := s.clock()
	return s.repo.CreateTemplate(ctx, payroll.Template{
		ID:             utils.NewID(),
		BusinessID:     actor.BusinessID,
		Name:           req.Name,
		Overtime:       req.Overtime,
		Bonuses:        req.Bonuses,
		Deductions:     req.Deductions,
		DeductAdvances: req.DeductAdvances,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// activeSetup returns the active configuration and the template it points
// to, falling back to the built-in default template.
func (s *PayrollServiceImpl) activeSetup(ctx context.Context, businessID string) (payroll.Configuration, payroll.Template, error) {
	cfg, err := s.repo.GetConfiguration(ctx, businessID)
	if errors.Is(err, payroll.ErrConfigurationNotFound) {
		return payroll.Configuration{}, payroll.Template{}, payroll.ErrNoConfiguration
	}
	if err != nil {
		return payroll.Configuration{}, payroll.Template{}, err
	}
	if !cfg.Active {
		return payroll.Configuration{}, payroll.Template{}, fmt.Errorf("%w: configuration is inactive", payroll.ErrNoConfiguration)
	}

	if cfg.DefaultTemplateID == nil {
		return cfg, payroll.DefaultTemplate(businessID), nil
	}
	tmpl, err := s.repo.GetTemplate(ctx, businessID, *cfg.DefaultTemplateID)
	if err != nil {
		return payroll.Configuration{}, payroll.Template{}, err
	}
	return cfg, tmpl, nil
}

// ========== CALCULATION ==========

// calculate gathers the period inputs of one employee and runs the
// calculator. It only reads.
func (s *PayrollServiceImpl) calculate(
	ctx context.Context,
	emp employee.Employee,
	period payroll.Period,
	cfg payroll.Configuration,
	tmpl payroll.Template,
	score *decimal.Decimal,
) (payroll.Result, error) {
	attendance, err := s.sources.Attendance.GetAttendanceSummary(ctx, emp.BusinessID, emp.ID, period.Start, period.End)
	if err != nil {
		return payroll.Result{}, fmt.Errorf("attendance summary: %w", err)
	}
	absences, err := s.sources.Absences.ListApprovedAbsences(ctx, emp.BusinessID, emp.ID, period.Start, period.End)
	if err != nil {
		return payroll.Result{}, fmt.Errorf("approved absences: %w", err)
	}
	benefits, err := s.sources.Benefits.ListActiveBenefits(ctx, emp.BusinessID, emp.ID)
	if err != nil {
		return payroll.Result{}, fmt.Errorf("active benefits: %w", err)
	}

	var advances []payroll.OutstandingAdvance
	if tmpl.DeductAdvances {
		open, err := s.instruments.ListOutstandingAdvances(ctx, emp.BusinessID, emp.ID)
		if err != nil {
			return payroll.Result{}, fmt.Errorf("outstanding advances: %w", err)
		}
		for _, a := range open {
			advances = append(advances, payroll.OutstandingAdvance{
				InstrumentID: a.ID,
				Remaining:    a.RemainingBalance,
				Installment:  a.NextInstallment(),
			})
		}
	}

	return payroll.Calculate(payroll.CalculationInput{
		Employee:         emp,
		Period:           period,
		Attendance:       attendance,
		Absences:         absences,
		Benefits:         benefits,
		Template:         tmpl,
		Config:           cfg,
		Advances:         advances,
		PerformanceScore: score,
	})
}

// createDraft calculates and stores a draft while holding the employee's
// period key, so two runs for the same period cannot both insert.
func (s *PayrollServiceImpl) createDraft(
	ctx context.Context,
	actor user.Actor,
	emp employee.Employee,
	period payroll.Period,
	cfg payroll.Configuration,
	tmpl payroll.Template,
	score *decimal.Decimal,
	notes *string,
) (payroll.Payroll, error) {
	if !emp.IsActive() {
		return payroll.Payroll{}, fmt.Errorf("%w: %s", payroll.ErrEmployeeInactive, emp.FullName)
	}

	release, err := lock.ObtainAll(ctx, s.locker, lock.PayrollPeriodKey(actor.BusinessID, emp.ID, period.Start, period.End))
	if err != nil {
		return payroll.Payroll{}, err
	}
	defer release()

	exists, err := s.repo.ExistsForPeriod(ctx, actor.BusinessID, emp.ID, period.Start, period.End)
	if err != nil {
		return payroll.Payroll{}, err
	}
	if exists {
		return payroll.Payroll{}, fmt.Errorf("%w: %s, %s to %s", payroll.ErrPayrollRecordAlreadyExists,
			emp.FullName, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	}

	result, err := s.calculate(ctx, emp, period, cfg, tmpl, score)
	if err != nil {
		return payroll.Payroll{}, err
	}

	now := s.clock()
	p := payroll.Payroll{
		ID:         utils.NewID(),
		BusinessID: actor.BusinessID,
		EmployeeID: emp.ID,
		Status:     payroll.PayrollStatusDraft,
		Notes:      notes,
		CreatedBy:  actor.UserID,
		CreatedAt:  now,
	}
	if tmpl.ID != "" {
		id := tmpl.ID
		p.TemplateID = &id
	}
	if err := p.ApplyResult(result, now); err != nil {
		return payroll.Payroll{}, err
	}

	var created payroll.Payroll
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		created, err = s.repo.Create(ctx, p)
		return err
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	for _, w := range created.Warnings {
		slog.Warn("Payroll calculation warning", "payroll_id", created.ID, "employee_id", emp.ID, "warning", w)
	}
	return created, nil
}

// ========== LIFECYCLE ==========

func (s *PayrollServiceImpl) Create(ctx context.Context, actor user.Actor, req payroll.CreatePayrollRequest) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionCreate); err != nil {
		return payroll.Payroll{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.Payroll{}, err
	}
	cfg, tmpl, err := s.activeSetup(ctx, actor.BusinessID)
	if err != nil {
		return payroll.Payroll{}, err
	}
	emp, err := s.sources.Employees.GetByID(ctx, actor.BusinessID, req.EmployeeID)
	if err != nil {
		return payroll.Payroll{}, err
	}

	created, err := s.createDraft(ctx, actor, emp, req.Period(cfg.PeriodType), cfg, tmpl, req.PerformanceScore, req.Notes)
	if err != nil {
		return payroll.Payroll{}, err
	}

	slog.Info("Payroll created",
		"business_id", actor.BusinessID,
		"payroll_id", created.ID,
		"employee_id", emp.ID,
		"net_pay", created.Calculation.NetPay.String(),
	)
	return created, nil
}

// mutate locks the payroll and extra keys, then applies fn to a fresh copy
// inside one transaction.
func (s *PayrollServiceImpl) mutate(
	ctx context.Context,
	actor user.Actor,
	id string,
	extraKeys []string,
	fn func(ctx context.Context, p *payroll.Payroll) error,
) (payroll.Payroll, error) {
	keys := append([]string{lock.PayrollKey(actor.BusinessID, id)}, extraKeys...)
	release, err := lock.ObtainAll(ctx, s.locker, keys...)
	if err != nil {
		return payroll.Payroll{}, err
	}
	defer release()

	var updated payroll.Payroll
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetForUpdate(ctx, actor.BusinessID, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, &p); err != nil {
			return err
		}
		updated, err = s.repo.Update(ctx, p)
		return err
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	return updated, nil
}

func (s *PayrollServiceImpl) Recalculate(ctx context.Context, actor user.Actor, id string, req payroll.RecalculatePayrollRequest) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionCreate); err != nil {
		return payroll.Payroll{}, err
	}
	current, err := s.repo.GetByID(ctx, actor.BusinessID, id)
	if err != nil {
		return payroll.Payroll{}, err
	}
	if current.Status != payroll.PayrollStatusDraft {
		return payroll.Payroll{}, shared.NewInvalidState("payroll", id, string(current.Status), "recalculate")
	}
	cfg, tmpl, err := s.activeSetup(ctx, actor.BusinessID)
	if err != nil {
		return payroll.Payroll{}, err
	}
	emp, err := s.sources.Employees.GetByID(ctx, actor.BusinessID, current.EmployeeID)
	if err != nil {
		return payroll.Payroll{}, err
	}

	period := payroll.Period{
		Start:       current.Period.Start,
		End:         current.Period.End,
		Type:        current.Period.Type,
		WorkingDays: current.Period.WorkingDays,
	}
	result, err := s.calculate(ctx, emp, period, cfg, tmpl, req.PerformanceScore)
	if err != nil {
		return payroll.Payroll{}, err
	}

	updated, err := s.mutate(ctx, actor, id, nil, func(_ context.Context, p *payroll.Payroll) error {
		return p.ApplyResult(result, s.clock())
	})
	if err != nil {
		return payroll.Payroll{}, err
	}

	slog.Info("Payroll recalculated", "business_id", actor.BusinessID, "payroll_id", id, "net_pay", updated.Calculation.NetPay.String())
	return updated, nil
}

func (s *PayrollServiceImpl) Approve(ctx context.Context, actor user.Actor, id string) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionApprove); err != nil {
		return payroll.Payroll{}, err
	}
	approved, err := s.mutate(ctx, actor, id, nil, func(_ context.Context, p *payroll.Payroll) error {
		return p.Approve(actor.UserID, s.clock())
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	slog.Info("Payroll approved", "business_id", actor.BusinessID, "payroll_id", id)
	return approved, nil
}

// Pay marks an approved payroll paid. With cash the ledger debit, the
// advance deductions and the status change commit as one unit.
func (s *PayrollServiceImpl) Pay(ctx context.Context, actor user.Actor, id string, req payroll.PayPayrollRequest) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionPay); err != nil {
		return payroll.Payroll{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.Payroll{}, err
	}
	current, err := s.repo.GetByID(ctx, actor.BusinessID, id)
	if err != nil {
		return payroll.Payroll{}, err
	}

	var extra []string
	for _, it := range current.AdvanceItems() {
		extra = append(extra, lock.SettlementKey(actor.BusinessID, *it.ReferenceID))
	}
	day := s.poster.Today()
	if req.Method == ledger.PaymentMethodCash {
		extra = append(extra, lock.LedgerDayKey(actor.BusinessID, day))
	}

	paid, err := s.mutate(ctx, actor, id, extra, func(ctx context.Context, p *payroll.Payroll) error {
		now := s.clock()
		if err := p.MarkPaid(actor.UserID, req.Method, req.Reference, nil, now); err != nil {
			return err
		}

		if req.Method == ledger.PaymentMethodCash && p.Calculation.NetPay.IsPositive() {
			tx, err := s.poster.PostWithin(ctx, actor, ledger.Posting{
				Date:          day,
				Type:          ledger.TransactionTypePayout,
				Amount:        p.Calculation.NetPay,
				PaymentMethod: ledger.PaymentMethodCash,
				Description:   fmt.Sprintf("Payroll %s to %s", p.Period.Start.Format("2006-01-02"), p.Period.End.Format("2006-01-02")),
				ReferenceType: "payroll",
				ReferenceID:   p.ID,
			})
			if errors.Is(err, ledger.ErrNoOpenBalance) || errors.Is(err, ledger.ErrInsufficientFunds) {
				return fmt.Errorf("%w: %w", payroll.ErrInsufficientCash, err)
			}
			if err != nil {
				return fmt.Errorf("post payroll payout: %w", err)
			}
			p.LedgerTransactionID = &tx.ID
		}

		return s.settleAdvances(ctx, actor, *p, now)
	})
	if err != nil {
		return payroll.Payroll{}, err
	}

	slog.Info("Payroll paid",
		"business_id", actor.BusinessID,
		"payroll_id", id,
		"method", req.Method,
		"net_pay", paid.Calculation.NetPay.String(),
	)
	return paid, nil
}

// settleAdvances posts each advance line of p against its instrument and
// closes instruments that reach zero.
func (s *PayrollServiceImpl) settleAdvances(ctx context.Context, actor user.Actor, p payroll.Payroll, at time.Time) error {
	for _, it := range p.AdvanceItems() {
		inst, err := s.instruments.GetForUpdate(ctx, actor.BusinessID, *it.ReferenceID)
		if err != nil {
			return fmt.Errorf("advance %s: %w", *it.ReferenceID, err)
		}
		if it.Amount.GreaterThan(inst.RemainingBalance) {
			return fmt.Errorf("%w: advance %s has %s left, payroll deducts %s", payroll.ErrAdvanceChanged,
				inst.ID, inst.RemainingBalance.StringFixed(2), it.Amount.StringFixed(2))
		}
		err = inst.ApplyDeduction(settlement.Deduction{
			ID:            utils.NewID(),
			ReferenceType: settlement.ReferencePayroll,
			ReferenceID:   p.ID,
			Amount:        it.Amount,
			Description:   it.Description,
			PostedAt:      at,
		})
		if err != nil {
			return fmt.Errorf("advance %s: %w", inst.ID, err)
		}
		if inst.RemainingBalance.IsZero() {
			if err := inst.MarkRepaid(at); err != nil {
				return err
			}
		}
		if _, err := s.instruments.Update(ctx, inst); err != nil {
			return err
		}
	}
	return nil
}

func (s *PayrollServiceImpl) Cancel(ctx context.Context, actor user.Actor, id string, req payroll.CancelPayrollRequest) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionCancel); err != nil {
		return payroll.Payroll{}, err
	}
	if err := req.Validate(); err != nil {
		return payroll.Payroll{}, err
	}
	cancelled, err := s.mutate(ctx, actor, id, nil, func(_ context.Context, p *payroll.Payroll) error {
		return p.Cancel(actor.UserID, req.Reason, s.clock())
	})
	if err != nil {
		return payroll.Payroll{}, err
	}
	slog.Info("Payroll cancelled", "business_id", actor.BusinessID, "payroll_id", id, "reason", req.Reason)
	return cancelled, nil
}

// ========== QUERIES ==========

func (s *PayrollServiceImpl) Get(ctx context.Context, actor user.Actor, id string) (payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionRead); err != nil {
		return payroll.Payroll{}, err
	}
	return s.repo.GetByID(ctx, actor.BusinessID, id)
}

func (s *PayrollServiceImpl) List(ctx context.Context, actor user.Actor, filter payroll.PayrollFilter) ([]payroll.Payroll, error) {
	if err := s.authorize(ctx, actor, user.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, actor.BusinessID, filter)
}

func (s *PayrollServiceImpl) Summary(ctx context.Context, actor user.Actor, start, end string) (payroll.PayrollSummaryResponse, error) {
	if err := s.authorize(ctx, actor, user.ActionRead); err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}
	from, to, ok := validator.IsValidDateRange(start, end)
	if !ok {
		return payroll.PayrollSummaryResponse{}, validator.ValidationErrors{{Field: "period", Message: payroll.ErrInvalidPeriod.Error()}}
	}
	payrolls, err := s.repo.List(ctx, actor.BusinessID, payroll.PayrollFilter{PeriodStart: &from, PeriodEnd: &to})
	if err != nil {
		return payroll.PayrollSummaryResponse{}, err
	}
	return payroll.Summarize(from, to, payrolls), nil
}
