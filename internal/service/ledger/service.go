package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type LedgerServiceImpl struct {
	transactor database.Transactor
	locker     lock.Locker
	repo       ledger.LedgerRepository
	authorizer user.Authorizer
	clock      utils.Clock
	location   *time.Location
}

func NewLedgerService(
	transactor database.Transactor,
	locker lock.Locker,
	repo ledger.LedgerRepository,
	authorizer user.Authorizer,
	clock utils.Clock,
	location *time.Location,
) *LedgerServiceImpl {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &LedgerServiceImpl{
		transactor: transactor,
		locker:     locker,
		repo:       repo,
		authorizer: authorizer,
		clock:      clock,
		location:   location,
	}
}

var (
	_ ledger.LedgerService = (*LedgerServiceImpl)(nil)
	_ ledger.Poster        = (*LedgerServiceImpl)(nil)
)

// Today is the current calendar day in the business timezone.
func (s *LedgerServiceImpl) Today() time.Time {
	return utils.CalendarDay(s.clock(), s.location)
}

func (s *LedgerServiceImpl) resolveDate(date string) (time.Time, error) {
	if date == "" {
		return s.Today(), nil
	}
	d, ok := validator.IsValidDate(date)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{Field: "date", Message: "must be a date in YYYY-MM-DD format"}}
	}
	return d, nil
}

// withLocks runs fn inside a transaction while holding every key.
func (s *LedgerServiceImpl) withLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	release, err := lock.ObtainAll(ctx, s.locker, keys...)
	if err != nil {
		return err
	}
	defer release()
	return s.transactor.WithinTransaction(ctx, fn)
}

// ========== DAILY BALANCE ==========

func (s *LedgerServiceImpl) OpenDay(ctx context.Context, actor user.Actor, req ledger.OpenDayRequest) (ledger.DailyBalance, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionCreate)); err != nil {
		return ledger.DailyBalance{}, err
	}
	if err := req.Validate(); err != nil {
		return ledger.DailyBalance{}, err
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return ledger.DailyBalance{}, err
	}

	var balance ledger.DailyBalance
	err = s.withLocks(ctx, []string{lock.LedgerDayKey(actor.BusinessID, date)}, func(ctx context.Context) error {
		balance, err = s.openDayWithin(ctx, actor, date)
		return err
	})
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	return balance, nil
}

// openDayWithin returns the day's balance, creating it from the last closed
// day when absent. A closed day is never reopened.
func (s *LedgerServiceImpl) openDayWithin(ctx context.Context, actor user.Actor, date time.Time) (ledger.DailyBalance, error) {
	existing, err := s.repo.GetBalanceByDate(ctx, actor.BusinessID, date)
	if err == nil {
		if !existing.IsOpen() {
			return ledger.DailyBalance{}, fmt.Errorf("%w: %s", ledger.ErrBalanceAlreadyClosed, date.Format("2006-01-02"))
		}
		return existing, nil
	}
	if !errors.Is(err, ledger.ErrBalanceNotFound) {
		return ledger.DailyBalance{}, fmt.Errorf("get daily balance: %w", err)
	}

	initial := decimal.Zero
	prev, err := s.repo.GetLastClosedBefore(ctx, actor.BusinessID, date)
	switch {
	case err == nil:
		initial = prev.FinalBalance
	case errors.Is(err, ledger.ErrBalanceNotFound):
	default:
		return ledger.DailyBalance{}, fmt.Errorf("get previous closed balance: %w", err)
	}

	now := s.clock()
	stored, err := s.repo.CreateBalanceIfAbsent(ctx, ledger.DailyBalance{
		ID:             utils.NewID(),
		BusinessID:     actor.BusinessID,
		Date:           date,
		InitialBalance: initial,
		FinalBalance:   initial,
		Status:         ledger.BalanceStatusOpen,
		OpenedBy:       actor.UserID,
		OpenedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return ledger.DailyBalance{}, fmt.Errorf("create daily balance: %w", err)
	}
	if !stored.IsOpen() {
		return ledger.DailyBalance{}, fmt.Errorf("%w: %s", ledger.ErrBalanceAlreadyClosed, date.Format("2006-01-02"))
	}

	slog.Info("Daily balance opened",
		"business_id", actor.BusinessID,
		"date", date.Format("2006-01-02"),
		"initial_balance", stored.InitialBalance.String(),
	)
	return stored, nil
}

func (s *LedgerServiceImpl) GetDay(ctx context.Context, actor user.Actor, date string) (ledger.DailyBalance, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionRead)); err != nil {
		return ledger.DailyBalance{}, err
	}
	d, err := s.resolveDate(date)
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	return s.repo.GetBalanceByDate(ctx, actor.BusinessID, d)
}

func (s *LedgerServiceImpl) CloseDay(ctx context.Context, actor user.Actor, req ledger.CloseDayRequest) (ledger.DailyBalance, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionClose)); err != nil {
		return ledger.DailyBalance{}, err
	}
	if err := req.Validate(); err != nil {
		return ledger.DailyBalance{}, err
	}
	date, err := s.resolveDate(req.Date)
	if err != nil {
		return ledger.DailyBalance{}, err
	}

	var closed ledger.DailyBalance
	err = s.withLocks(ctx, []string{lock.LedgerDayKey(actor.BusinessID, date)}, func(ctx context.Context) error {
		balance, err := s.repo.GetBalanceForUpdate(ctx, actor.BusinessID, date)
		if err != nil {
			return err
		}
		txs, err := s.repo.ListTransactionsByBalance(ctx, actor.BusinessID, balance.ID)
		if err != nil {
			return fmt.Errorf("list day transactions: %w", err)
		}
		if err := balance.Close(actor.UserID, req.Notes, txs, s.clock()); err != nil {
			return err
		}
		closed, err = s.repo.UpdateBalance(ctx, balance)
		if err != nil {
			return err
		}

		pending := 0
		for _, t := range txs {
			if t.Status == ledger.TransactionStatusPending {
				pending++
			}
		}
		if pending > 0 {
			slog.Warn("Daily balance closed with pending transactions",
				"business_id", actor.BusinessID,
				"date", date.Format("2006-01-02"),
				"pending", pending,
			)
		}
		return nil
	})
	if err != nil {
		return ledger.DailyBalance{}, err
	}

	slog.Info("Daily balance closed",
		"business_id", actor.BusinessID,
		"date", date.Format("2006-01-02"),
		"final_balance", closed.FinalBalance.String(),
	)
	return closed, nil
}

func (s *LedgerServiceImpl) VerifyDay(ctx context.Context, actor user.Actor, date string) (ledger.VerifyDayResponse, error) {
	balance, err := s.GetDay(ctx, actor, date)
	if err != nil {
		return ledger.VerifyDayResponse{}, err
	}
	txs, err := s.repo.ListTransactionsByBalance(ctx, actor.BusinessID, balance.ID)
	if err != nil {
		return ledger.VerifyDayResponse{}, fmt.Errorf("list day transactions: %w", err)
	}
	drift := balance.Drift(txs)
	return ledger.VerifyDayResponse{
		Date:         balance.Date.Format("2006-01-02"),
		StoredFinal:  balance.FinalBalance,
		RebuiltFinal: balance.FinalBalance.Sub(drift),
		Drift:        drift,
		Reconciled:   drift.IsZero(),
	}, nil
}

// ========== TRANSACTIONS ==========

func checkFunds(balance ledger.DailyBalance, t ledger.Transaction) error {
	if t.PaymentMethod != ledger.PaymentMethodCash || !ledger.IsDebit(t.Type, t.Amount) {
		return nil
	}
	if projected := balance.Projected(t.Type, t.Amount); projected.IsNegative() {
		return fmt.Errorf("%w: balance %s, posting %s", ledger.ErrInsufficientFunds,
			balance.FinalBalance.StringFixed(2), ledger.SignedAmount(t.Type, t.Amount).StringFixed(2))
	}
	return nil
}

func (s *LedgerServiceImpl) PostTransaction(ctx context.Context, actor user.Actor, req ledger.PostTransactionRequest) (ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionCreate)); err != nil {
		return ledger.Transaction{}, err
	}
	if req.AutoApprove {
		if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionApprove)); err != nil {
			return ledger.Transaction{}, err
		}
	}
	if err := req.Validate(); err != nil {
		return ledger.Transaction{}, err
	}

	date := s.Today()
	var created ledger.Transaction
	err := s.withLocks(ctx, []string{lock.LedgerDayKey(actor.BusinessID, date)}, func(ctx context.Context) error {
		if _, err := s.openDayWithin(ctx, actor, date); err != nil {
			return err
		}
		balance, err := s.repo.GetBalanceForUpdate(ctx, actor.BusinessID, date)
		if err != nil {
			return err
		}

		now := s.clock()
		t := ledger.Transaction{
			ID:              utils.NewID(),
			BusinessID:      actor.BusinessID,
			BalanceID:       balance.ID,
			BalanceDate:     balance.Date,
			Type:            req.Type,
			Amount:          req.Amount,
			PaymentMethod:   req.PaymentMethod,
			Status:          ledger.TransactionStatusPending,
			PreviousBalance: balance.FinalBalance,
			NewBalance:      balance.Projected(req.Type, req.Amount),
			Description:     req.Description,
			ReferenceType:   req.ReferenceType,
			ReferenceID:     req.ReferenceID,
			Metadata:        req.Metadata,
			CreatedBy:       actor.UserID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := checkFunds(balance, t); err != nil {
			return err
		}

		if req.AutoApprove {
			if err := t.Approve(actor.UserID, now); err != nil {
				return err
			}
			t.PreviousBalance, t.NewBalance = balance.Apply(t)
			balance.UpdatedAt = now
			if _, err := s.repo.UpdateBalance(ctx, balance); err != nil {
				return err
			}
		}

		created, err = s.repo.CreateTransaction(ctx, t)
		return err
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	slog.Info("Ledger transaction posted",
		"business_id", actor.BusinessID,
		"transaction_id", created.ID,
		"type", created.Type,
		"amount", created.Amount.String(),
		"status", created.Status,
	)
	return created, nil
}

// lockKeysFor reads t without locking to find which day it belongs to.
func (s *LedgerServiceImpl) lockKeysFor(ctx context.Context, businessID, id string, extraDays ...time.Time) ([]string, error) {
	t, err := s.repo.GetTransaction(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	keys := []string{lock.LedgerDayKey(businessID, t.BalanceDate), lock.LedgerTransactionKey(businessID, id)}
	for _, d := range extraDays {
		keys = append(keys, lock.LedgerDayKey(businessID, d))
	}
	return keys, nil
}

func (s *LedgerServiceImpl) ApproveTransaction(ctx context.Context, actor user.Actor, id string) (ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionApprove)); err != nil {
		return ledger.Transaction{}, err
	}
	keys, err := s.lockKeysFor(ctx, actor.BusinessID, id)
	if err != nil {
		return ledger.Transaction{}, err
	}

	var approved ledger.Transaction
	err = s.withLocks(ctx, keys, func(ctx context.Context) error {
		t, err := s.repo.GetTransactionForUpdate(ctx, actor.BusinessID, id)
		if err != nil {
			return err
		}
		now := s.clock()
		if err := t.Approve(actor.UserID, now); err != nil {
			return err
		}
		balance, err := s.repo.GetBalanceForUpdate(ctx, actor.BusinessID, t.BalanceDate)
		if err != nil {
			return err
		}
		if !balance.IsOpen() {
			return fmt.Errorf("%w: %s", ledger.ErrBalanceAlreadyClosed, balance.Date.Format("2006-01-02"))
		}
		if err := checkFunds(balance, t); err != nil {
			return err
		}

		// Snapshots are restamped: other entries may have completed since posting.
		t.PreviousBalance, t.NewBalance = balance.Apply(t)
		balance.UpdatedAt = now
		if _, err := s.repo.UpdateBalance(ctx, balance); err != nil {
			return err
		}
		if err := s.repo.UpdateTransactionStatus(ctx, t); err != nil {
			return err
		}
		approved = t
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	slog.Info("Ledger transaction approved", "business_id", actor.BusinessID, "transaction_id", id)
	return approved, nil
}

func (s *LedgerServiceImpl) CancelTransaction(ctx context.Context, actor user.Actor, id string, req ledger.CancelTransactionRequest) (ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionCancel)); err != nil {
		return ledger.Transaction{}, err
	}
	if err := req.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	keys, err := s.lockKeysFor(ctx, actor.BusinessID, id)
	if err != nil {
		return ledger.Transaction{}, err
	}

	var cancelled ledger.Transaction
	err = s.withLocks(ctx, keys, func(ctx context.Context) error {
		t, err := s.repo.GetTransactionForUpdate(ctx, actor.BusinessID, id)
		if err != nil {
			return err
		}
		if err := t.Cancel(actor.UserID, req.Reason, s.clock()); err != nil {
			return err
		}
		if err := s.repo.UpdateTransactionStatus(ctx, t); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	slog.Info("Ledger transaction cancelled", "business_id", actor.BusinessID, "transaction_id", id)
	return cancelled, nil
}

// Reverse posts the inverse of a completed entry into today's balance and
// marks the original reversed. It returns the reversal entry.
func (s *LedgerServiceImpl) Reverse(ctx context.Context, actor user.Actor, id string, req ledger.ReverseTransactionRequest) (ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionReverse)); err != nil {
		return ledger.Transaction{}, err
	}
	if err := req.Validate(); err != nil {
		return ledger.Transaction{}, err
	}
	today := s.Today()
	keys, err := s.lockKeysFor(ctx, actor.BusinessID, id, today)
	if err != nil {
		return ledger.Transaction{}, err
	}

	var reversal ledger.Transaction
	err = s.withLocks(ctx, keys, func(ctx context.Context) error {
		original, err := s.repo.GetTransactionForUpdate(ctx, actor.BusinessID, id)
		if err != nil {
			return err
		}
		now := s.clock()
		if err := original.MarkReversed(actor.UserID, req.Reason, now); err != nil {
			return err
		}

		if _, err := s.openDayWithin(ctx, actor, today); err != nil {
			return err
		}
		balance, err := s.repo.GetBalanceForUpdate(ctx, actor.BusinessID, today)
		if err != nil {
			return err
		}

		originalID := original.ID
		inverse := ledger.Transaction{
			ID:            utils.NewID(),
			BusinessID:    actor.BusinessID,
			BalanceID:     balance.ID,
			BalanceDate:   balance.Date,
			Type:          original.Type,
			Amount:        original.Amount.Neg(),
			PaymentMethod: original.PaymentMethod,
			Status:        ledger.TransactionStatusPending,
			Description:   fmt.Sprintf("Reversal of %s: %s", original.ID, req.Reason),
			ReferenceType: original.ReferenceType,
			ReferenceID:   original.ReferenceID,
			ReversalOf:    &originalID,
			CreatedBy:     actor.UserID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := checkFunds(balance, inverse); err != nil {
			return err
		}
		if err := inverse.Approve(actor.UserID, now); err != nil {
			return err
		}
		inverse.PreviousBalance, inverse.NewBalance = balance.Apply(inverse)
		balance.UpdatedAt = now
		if _, err := s.repo.UpdateBalance(ctx, balance); err != nil {
			return err
		}
		if reversal, err = s.repo.CreateTransaction(ctx, inverse); err != nil {
			return err
		}
		return s.repo.UpdateTransactionStatus(ctx, original)
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	slog.Info("Ledger transaction reversed",
		"business_id", actor.BusinessID,
		"transaction_id", id,
		"reversal_id", reversal.ID,
	)
	return reversal, nil
}

func (s *LedgerServiceImpl) GetTransaction(ctx context.Context, actor user.Actor, id string) (ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionRead)); err != nil {
		return ledger.Transaction{}, err
	}
	return s.repo.GetTransaction(ctx, actor.BusinessID, id)
}

func (s *LedgerServiceImpl) ListTransactions(ctx context.Context, actor user.Actor, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	if err := s.authorizer.Authorize(ctx, actor, user.Can(user.ResourceLedger, user.ActionRead)); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, actor.BusinessID, filter)
}

// ========== IN-TRANSACTION POSTINGS ==========

func (s *LedgerServiceImpl) PostWithin(ctx context.Context, actor user.Actor, p ledger.Posting) (ledger.Transaction, error) {
	if !p.PaymentMethod.IsValid() {
		return ledger.Transaction{}, fmt.Errorf("%w: %w", shared.ErrInvalidInput, ledger.ErrInvalidPaymentMethod)
	}
	if !p.Amount.IsPositive() {
		return ledger.Transaction{}, fmt.Errorf("%w: %w", shared.ErrInvalidInput, ledger.ErrInvalidAmount)
	}

	balance, err := s.repo.GetBalanceForUpdate(ctx, actor.BusinessID, p.Date)
	if errors.Is(err, ledger.ErrBalanceNotFound) {
		return ledger.Transaction{}, fmt.Errorf("%w for %s", ledger.ErrNoOpenBalance, p.Date.Format("2006-01-02"))
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	if !balance.IsOpen() {
		return ledger.Transaction{}, fmt.Errorf("%w: %s is closed", ledger.ErrNoOpenBalance, p.Date.Format("2006-01-02"))
	}

	now := s.clock()
	refType, refID := p.ReferenceType, p.ReferenceID
	t := ledger.Transaction{
		ID:            utils.NewID(),
		BusinessID:    actor.BusinessID,
		BalanceID:     balance.ID,
		BalanceDate:   balance.Date,
		Type:          p.Type,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		Status:        ledger.TransactionStatusPending,
		Description:   p.Description,
		ReferenceType: &refType,
		ReferenceID:   &refID,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := checkFunds(balance, t); err != nil {
		return ledger.Transaction{}, err
	}
	if err := t.Approve(actor.UserID, now); err != nil {
		return ledger.Transaction{}, err
	}
	t.PreviousBalance, t.NewBalance = balance.Apply(t)
	balance.UpdatedAt = now
	if _, err := s.repo.UpdateBalance(ctx, balance); err != nil {
		return ledger.Transaction{}, err
	}
	return s.repo.CreateTransaction(ctx, t)
}
