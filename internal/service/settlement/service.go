package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
)

type SettlementServiceImpl struct {
	transactor  database.Transactor
	locker      lock.Locker
	repo        settlement.InstrumentRepository
	commissions settlement.CommissionLedger
	employees   employee.EmployeeRepository
	poster      ledger.Poster
	authorizer  user.Authorizer
	clock       utils.Clock
}

func NewSettlementService(
	transactor database.Transactor,
	locker lock.Locker,
	repo settlement.InstrumentRepository,
	commissions settlement.CommissionLedger,
	employees employee.EmployeeRepository,
	poster ledger.Poster,
	authorizer user.Authorizer,
	clock utils.Clock,
) *SettlementServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	return &SettlementServiceImpl{
		transactor:  transactor,
		locker:      locker,
		repo:        repo,
		commissions: commissions,
		employees:   employees,
		poster:      poster,
		authorizer:  authorizer,
		clock:       clock,
	}
}

var _ settlement.SettlementService = (*SettlementServiceImpl)(nil)

func resourceOf(k settlement.Kind) user.Resource {
	if k == settlement.KindExpense {
		return user.ResourceExpense
	}
	return user.ResourceAdvance
}

// load reads the instrument without locking and checks the actor may act on
// its kind.
func (s *SettlementServiceImpl) load(ctx context.Context, actor user.Actor, id string, action user.Action) (settlement.Instrument, error) {
	if actor.BusinessID == "" {
		return settlement.Instrument{}, user.ErrBusinessIDRequired
	}
	i, err := s.repo.GetByID(ctx, actor.BusinessID, id)
	if err != nil {
		return settlement.Instrument{}, err
	}
	if err := s.authorizer.Authorize(ctx, actor, user.Can(resourceOf(i.Kind), action)); err != nil {
		return settlement.Instrument{}, err
	}
	return i, nil
}

// mutate locks the instrument plus extra keys, then runs fn on a fresh copy
// inside a transaction and persists the result.
func (s *SettlementServiceImpl) mutate(
	ctx context.Context,
	actor user.Actor,
	id string,
	extraKeys []string,
	fn func(ctx context.Context, i *settlement.Instrument) error,
) (settlement.Instrument, error) {
	keys := append([]string{lock.SettlementKey(actor.BusinessID, id)}, extraKeys...)
	release, err := lock.ObtainAll(ctx, s.locker, keys...)
	if err != nil {
		return settlement.Instrument{}, err
	}
	defer release()

	var updated settlement.Instrument
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		i, err := s.repo.GetForUpdate(ctx, actor.BusinessID, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, &i); err != nil {
			return err
		}
		updated, err = s.repo.Update(ctx, i)
		return err
	})
	if err != nil {
		return settlement.Instrument{}, err
	}
	return updated, nil
}

// ========== WORKFLOW ==========

func (s *SettlementServiceImpl) Request(ctx context.Context, actor user.Actor, req settlement.CreateInstrumentRequest) (settlement.Instrument, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(resourceOf(req.Kind), user.ActionCreate)); err != nil {
		return settlement.Instrument{}, err
	}
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}

	if req.EmployeeID != nil {
		emp, err := s.employees.GetByID(ctx, actor.BusinessID, *req.EmployeeID)
		if err != nil {
			return settlement.Instrument{}, err
		}
		if !emp.IsActive() {
			return settlement.Instrument{}, shared.NewInvalidState("employee", emp.ID, string(emp.EmploymentStatus), "request "+string(req.Kind)+" for")
		}
	}

	now := s.clock()
	created, err := s.repo.Create(ctx, settlement.Instrument{
		ID:                utils.NewID(),
		BusinessID:        actor.BusinessID,
		Kind:              req.Kind,
		EmployeeID:        req.EmployeeID,
		Category:          req.Category,
		Description:       req.Description,
		RequestedAmount:   req.Amount,
		Amount:            req.Amount,
		InstallmentAmount: req.InstallmentAmount,
		Status:            settlement.StatusPending,
		RequestedBy:       actor.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		return settlement.Instrument{}, fmt.Errorf("create %s: %w", req.Kind, err)
	}

	slog.Info("Settlement instrument requested",
		"business_id", actor.BusinessID,
		"instrument_id", created.ID,
		"kind", created.Kind,
		"amount", created.Amount.String(),
	)
	return created, nil
}

func (s *SettlementServiceImpl) Approve(ctx context.Context, actor user.Actor, id string, req settlement.ApproveInstrumentRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionApprove); err != nil {
		return settlement.Instrument{}, err
	}
	return s.mutate(ctx, actor, id, nil, func(_ context.Context, i *settlement.Instrument) error {
		return i.Approve(actor.UserID, req.ApprovedAmount, req.Notes, s.clock())
	})
}

func (s *SettlementServiceImpl) Reject(ctx context.Context, actor user.Actor, id string, req settlement.ReasonRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionApprove); err != nil {
		return settlement.Instrument{}, err
	}
	return s.mutate(ctx, actor, id, nil, func(_ context.Context, i *settlement.Instrument) error {
		return i.Reject(actor.UserID, req.Reason, s.clock())
	})
}

// MarkPaid records the payout. A cash payout debits today's ledger in the
// same transaction, so a failed posting leaves the instrument approved.
func (s *SettlementServiceImpl) MarkPaid(ctx context.Context, actor user.Actor, id string, req settlement.MarkPaidRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionPay); err != nil {
		return settlement.Instrument{}, err
	}

	var extra []string
	day := s.poster.Today()
	if req.Method == ledger.PaymentMethodCash {
		extra = append(extra, lock.LedgerDayKey(actor.BusinessID, day))
	}

	paid, err := s.mutate(ctx, actor, id, extra, func(ctx context.Context, i *settlement.Instrument) error {
		if err := i.MarkPaid(actor.UserID, req.Method, req.Notes, s.clock()); err != nil {
			return err
		}
		if req.Method != ledger.PaymentMethodCash {
			return nil
		}
		tx, err := s.poster.PostWithin(ctx, actor, ledger.Posting{
			Date:          day,
			Type:          ledger.TransactionTypePayout,
			Amount:        i.Amount,
			PaymentMethod: ledger.PaymentMethodCash,
			Description:   fmt.Sprintf("%s payout: %s", i.Kind, i.Description),
			ReferenceType: string(i.Kind),
			ReferenceID:   i.ID,
		})
		if errors.Is(err, ledger.ErrNoOpenBalance) || errors.Is(err, ledger.ErrInsufficientFunds) {
			return fmt.Errorf("%w: %w", settlement.ErrInsufficientCash, err)
		}
		if err != nil {
			return fmt.Errorf("post payout: %w", err)
		}
		i.LedgerTransactionID = &tx.ID
		return nil
	})
	if err != nil {
		return settlement.Instrument{}, err
	}

	slog.Info("Settlement instrument paid",
		"business_id", actor.BusinessID,
		"instrument_id", id,
		"method", req.Method,
		"amount", paid.Amount.String(),
	)
	return paid, nil
}

func (s *SettlementServiceImpl) ApplyDeduction(ctx context.Context, actor user.Actor, id string, req settlement.ApplyDeductionRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionDeduct); err != nil {
		return settlement.Instrument{}, err
	}
	return s.mutate(ctx, actor, id, nil, func(_ context.Context, i *settlement.Instrument) error {
		return i.ApplyDeduction(settlement.Deduction{
			ID:            utils.NewID(),
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			Amount:        req.Amount,
			Description:   req.Description,
			PostedAt:      s.clock(),
		})
	})
}

// DeductFromCommission moves part of an employee's commission against the
// advance. Both postings commit together.
func (s *SettlementServiceImpl) DeductFromCommission(ctx context.Context, actor user.Actor, id string, req settlement.CommissionDeductionRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionDeduct); err != nil {
		return settlement.Instrument{}, err
	}

	extra := []string{lock.CommissionKey(actor.BusinessID, req.CommissionID)}
	updated, err := s.mutate(ctx, actor, id, extra, func(ctx context.Context, i *settlement.Instrument) error {
		c, err := s.commissions.GetForUpdate(ctx, actor.BusinessID, req.CommissionID)
		if err != nil {
			return err
		}
		if i.EmployeeID == nil || *i.EmployeeID != c.EmployeeID {
			return settlement.ErrEmployeeMismatch
		}
		if req.Amount.GreaterThan(c.Available()) {
			return fmt.Errorf("%w: requested %s, available %s", settlement.ErrCommissionExhausted,
				req.Amount.StringFixed(2), c.Available().StringFixed(2))
		}

		d := settlement.Deduction{
			ID:            utils.NewID(),
			ReferenceType: settlement.ReferenceCommission,
			ReferenceID:   c.ID,
			Amount:        req.Amount,
			Description:   req.Description,
			PostedAt:      s.clock(),
		}
		if err := i.ApplyDeduction(d); err != nil {
			return err
		}
		return s.commissions.PostDeduction(ctx, actor.BusinessID, c.ID, d)
	})
	if err != nil {
		return settlement.Instrument{}, err
	}

	slog.Info("Advance deducted from commission",
		"business_id", actor.BusinessID,
		"instrument_id", id,
		"commission_id", req.CommissionID,
		"amount", req.Amount.String(),
		"remaining", updated.RemainingBalance.String(),
	)
	return updated, nil
}

func (s *SettlementServiceImpl) Cancel(ctx context.Context, actor user.Actor, id string, req settlement.ReasonRequest) (settlement.Instrument, error) {
	if err := req.Validate(); err != nil {
		return settlement.Instrument{}, err
	}
	if _, err := s.load(ctx, actor, id, user.ActionCancel); err != nil {
		return settlement.Instrument{}, err
	}
	return s.mutate(ctx, actor, id, nil, func(_ context.Context, i *settlement.Instrument) error {
		return i.Cancel(actor.UserID, req.Reason, s.clock())
	})
}

func (s *SettlementServiceImpl) MarkRepaid(ctx context.Context, actor user.Actor, id string) (settlement.Instrument, error) {
	if _, err := s.load(ctx, actor, id, user.ActionDeduct); err != nil {
		return settlement.Instrument{}, err
	}
	return s.mutate(ctx, actor, id, nil, func(_ context.Context, i *settlement.Instrument) error {
		return i.MarkRepaid(s.clock())
	})
}

// ========== QUERIES ==========

func (s *SettlementServiceImpl) Get(ctx context.Context, actor user.Actor, id string) (settlement.Instrument, error) {
	return s.load(ctx, actor, id, user.ActionRead)
}

func (s *SettlementServiceImpl) List(ctx context.Context, actor user.Actor, filter settlement.InstrumentFilter) ([]settlement.Instrument, error) {
	kinds := []settlement.Kind{settlement.KindAdvance, settlement.KindExpense}
	if filter.Kind != nil {
		kinds = []settlement.Kind{*filter.Kind}
	}
	for _, k := range kinds {
		if err := s.authorizer.Authorize(ctx, actor, user.Can(resourceOf(k), user.ActionRead)); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, actor.BusinessID, filter)
}

func (s *SettlementServiceImpl) ListOutstandingAdvances(ctx context.Context, actor user.Actor, employeeID string) ([]settlement.Instrument, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceAdvance, user.ActionRead)); err != nil {
		return nil, err
	}
	return s.repo.ListOutstandingAdvances(ctx, actor.BusinessID, employeeID)
}
