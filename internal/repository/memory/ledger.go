package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
)

type LedgerRepository struct {
	s *Store
}

func NewLedgerRepository(s *Store) *LedgerRepository {
	return &LedgerRepository{s: s}
}

var _ ledger.LedgerRepository = (*LedgerRepository)(nil)

func (r *LedgerRepository) CreateBalanceIfAbsent(ctx context.Context, b ledger.DailyBalance) (ledger.DailyBalance, error) {
	var stored ledger.DailyBalance
	err := r.s.do(ctx, func(st *state) error {
		k := dayKey(b.BusinessID, b.Date)
		if existing, ok := st.balances[k]; ok {
			stored = existing
			return nil
		}
		b.Version = 1
		st.balances[k] = b
		stored = b
		return nil
	})
	return stored, err
}

func (r *LedgerRepository) GetBalanceByDate(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	var b ledger.DailyBalance
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.balances[dayKey(businessID, date)]
		if !ok {
			return ledger.ErrBalanceNotFound
		}
		b = found
		return nil
	})
	return b, err
}

// GetBalanceForUpdate is a plain read: the store mutex held by the
// surrounding transaction already excludes other writers.
func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	return r.GetBalanceByDate(ctx, businessID, date)
}

func (r *LedgerRepository) GetLastClosedBefore(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	var last ledger.DailyBalance
	err := r.s.do(ctx, func(st *state) error {
		found := false
		for _, b := range st.balances {
			if b.BusinessID != businessID || b.Status != ledger.BalanceStatusClosed || !b.Date.Before(date) {
				continue
			}
			if !found || b.Date.After(last.Date) {
				last = b
				found = true
			}
		}
		if !found {
			return ledger.ErrBalanceNotFound
		}
		return nil
	})
	return last, err
}

func (r *LedgerRepository) UpdateBalance(ctx context.Context, b ledger.DailyBalance) (ledger.DailyBalance, error) {
	err := r.s.do(ctx, func(st *state) error {
		k := dayKey(b.BusinessID, b.Date)
		current, ok := st.balances[k]
		if !ok {
			return ledger.ErrBalanceNotFound
		}
		if current.Version != b.Version {
			return fmt.Errorf("%w: daily balance %s", shared.ErrConcurrentModification, b.ID)
		}
		b.Version++
		st.balances[k] = b
		return nil
	})
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	return b, nil
}

func (r *LedgerRepository) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	err := r.s.do(ctx, func(st *state) error {
		k := key(t.BusinessID, t.ID)
		if _, ok := st.transactions[k]; ok {
			return fmt.Errorf("%w: transaction %s", shared.ErrConflict, t.ID)
		}
		st.transactions[k] = cloneTransaction(t)
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (r *LedgerRepository) GetTransaction(ctx context.Context, businessID, id string) (ledger.Transaction, error) {
	var t ledger.Transaction
	err := r.s.do(ctx, func(st *state) error {
		found, ok := st.transactions[key(businessID, id)]
		if !ok {
			return ledger.ErrTransactionNotFound
		}
		t = cloneTransaction(found)
		return nil
	})
	return t, err
}

func (r *LedgerRepository) GetTransactionForUpdate(ctx context.Context, businessID, id string) (ledger.Transaction, error) {
	return r.GetTransaction(ctx, businessID, id)
}

func (r *LedgerRepository) UpdateTransactionStatus(ctx context.Context, t ledger.Transaction) error {
	return r.s.do(ctx, func(st *state) error {
		k := key(t.BusinessID, t.ID)
		if _, ok := st.transactions[k]; !ok {
			return ledger.ErrTransactionNotFound
		}
		st.transactions[k] = cloneTransaction(t)
		return nil
	})
}

func (r *LedgerRepository) ListTransactions(ctx context.Context, businessID string, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	return r.list(ctx, func(t ledger.Transaction) bool {
		if t.BusinessID != businessID {
			return false
		}
		if filter.Date != nil && !t.BalanceDate.Equal(*filter.Date) {
			return false
		}
		if filter.Status != nil && t.Status != *filter.Status {
			return false
		}
		if filter.Type != nil && t.Type != *filter.Type {
			return false
		}
		return true
	})
}

func (r *LedgerRepository) ListTransactionsByBalance(ctx context.Context, businessID, balanceID string) ([]ledger.Transaction, error) {
	return r.list(ctx, func(t ledger.Transaction) bool {
		return t.BusinessID == businessID && t.BalanceID == balanceID
	})
}

func (r *LedgerRepository) list(ctx context.Context, match func(ledger.Transaction) bool) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if match(t) {
				out = append(out, cloneTransaction(t))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
