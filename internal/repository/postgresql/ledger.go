package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type ledgerRepository struct {
	tenantRepo
}

func NewLedgerRepository(db *database.DB, tenants *database.TenantResolver) ledger.LedgerRepository {
	return &ledgerRepository{tenantRepo{db: db, tenants: tenants}}
}

// ========== DAILY BALANCES ==========

const balanceColumns = `
	id, business_id, date, initial_balance,
	cash_total, transfer_total, card_total,
	receivable_cash, receivable_transfer, receivable_card,
	final_balance, status, opened_by, opened_at, closed_by, closed_at, notes,
	version, created_at, updated_at`

func scanBalance(row pgx.Row) (ledger.DailyBalance, error) {
	var b ledger.DailyBalance
	err := row.Scan(
		&b.ID, &b.BusinessID, &b.Date, &b.InitialBalance,
		&b.DailyTransactions.Cash, &b.DailyTransactions.Transfer, &b.DailyTransactions.Card,
		&b.AccountsReceivable.CashPayments, &b.AccountsReceivable.TransferPayments, &b.AccountsReceivable.CardPayments,
		&b.FinalBalance, &b.Status, &b.OpenedBy, &b.OpenedAt, &b.ClosedBy, &b.ClosedAt, &b.Notes,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *ledgerRepository) CreateBalanceIfAbsent(ctx context.Context, b ledger.DailyBalance) (ledger.DailyBalance, error) {
	table, err := r.table(ctx, b.BusinessID, "daily_balances")
	if err != nil {
		return ledger.DailyBalance{}, err
	}

	// DO NOTHING returns no row on conflict; the second statement then reads
	// the winner.
	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, business_id, date, initial_balance,
			cash_total, transfer_total, card_total,
			receivable_cash, receivable_transfer, receivable_card,
			final_balance, status, opened_by, opened_at, notes, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, 0, 0, 0, 0, 0, 0, $5, $6, $7, $8, $9, 1, $10, $10)
		ON CONFLICT (business_id, date) DO NOTHING
		RETURNING %s
	`, table, balanceColumns)

	created, err := scanBalance(r.q(ctx).QueryRow(ctx, query,
		b.ID, b.BusinessID, b.Date, b.InitialBalance, b.FinalBalance, b.Status, b.OpenedBy, b.OpenedAt, b.Notes, b.CreatedAt,
	))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ledger.DailyBalance{}, fmt.Errorf("failed to create daily balance: %w", err)
	}
	return r.GetBalanceByDate(ctx, b.BusinessID, b.Date)
}

func (r *ledgerRepository) getBalance(ctx context.Context, businessID string, date time.Time, forUpdate bool) (ledger.DailyBalance, error) {
	table, err := r.table(ctx, businessID, "daily_balances")
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE business_id = $1 AND date = $2`, balanceColumns, table)
	if forUpdate {
		query += " FOR UPDATE"
	}

	b, err := scanBalance(r.q(ctx).QueryRow(ctx, query, businessID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.DailyBalance{}, ledger.ErrBalanceNotFound
		}
		return ledger.DailyBalance{}, fmt.Errorf("failed to get daily balance: %w", err)
	}
	return b, nil
}

func (r *ledgerRepository) GetBalanceByDate(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	return r.getBalance(ctx, businessID, date, false)
}

func (r *ledgerRepository) GetBalanceForUpdate(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	return r.getBalance(ctx, businessID, date, true)
}

func (r *ledgerRepository) GetLastClosedBefore(ctx context.Context, businessID string, date time.Time) (ledger.DailyBalance, error) {
	table, err := r.table(ctx, businessID, "daily_balances")
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE business_id = $1 AND date < $2 AND status = 'closed'
		ORDER BY date DESC
		LIMIT 1
	`, balanceColumns, table)

	b, err := scanBalance(r.q(ctx).QueryRow(ctx, query, businessID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.DailyBalance{}, ledger.ErrBalanceNotFound
		}
		return ledger.DailyBalance{}, fmt.Errorf("failed to get last closed balance: %w", err)
	}
	return b, nil
}

func (r *ledgerRepository) UpdateBalance(ctx context.Context, b ledger.DailyBalance) (ledger.DailyBalance, error) {
	table, err := r.table(ctx, b.BusinessID, "daily_balances")
	if err != nil {
		return ledger.DailyBalance{}, err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET
			initial_balance = $3,
			cash_total = $4, transfer_total = $5, card_total = $6,
			receivable_cash = $7, receivable_transfer = $8, receivable_card = $9,
			final_balance = $10, status = $11, closed_by = $12, closed_at = $13, notes = $14,
			version = version + 1, updated_at = $15
		WHERE business_id = $1 AND id = $2 AND version = $16
		RETURNING %s
	`, table, balanceColumns)

	updated, err := scanBalance(r.q(ctx).QueryRow(ctx, query,
		b.BusinessID, b.ID, b.InitialBalance,
		b.DailyTransactions.Cash, b.DailyTransactions.Transfer, b.DailyTransactions.Card,
		b.AccountsReceivable.CashPayments, b.AccountsReceivable.TransferPayments, b.AccountsReceivable.CardPayments,
		b.FinalBalance, b.Status, b.ClosedBy, b.ClosedAt, b.Notes, b.UpdatedAt, b.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.DailyBalance{}, fmt.Errorf("%w: daily balance %s", shared.ErrConcurrentModification, b.ID)
		}
		return ledger.DailyBalance{}, fmt.Errorf("failed to update daily balance: %w", err)
	}
	return updated, nil
}

// ========== TRANSACTIONS ==========

const transactionColumns = `
	id, business_id, balance_id, balance_date, type, amount, payment_method, status,
	previous_balance, new_balance, description, reference_type, reference_id, reversal_of, metadata,
	created_by, approved_by, approved_at, cancelled_by, cancelled_at, cancel_reason,
	reversed_by, reversed_at, reverse_reason, created_at, updated_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var (
		t        ledger.Transaction
		metadata []byte
	)
	err := row.Scan(
		&t.ID, &t.BusinessID, &t.BalanceID, &t.BalanceDate, &t.Type, &t.Amount, &t.PaymentMethod, &t.Status,
		&t.PreviousBalance, &t.NewBalance, &t.Description, &t.ReferenceType, &t.ReferenceID, &t.ReversalOf, &metadata,
		&t.CreatedBy, &t.ApprovedBy, &t.ApprovedAt, &t.CancelledBy, &t.CancelledAt, &t.CancelReason,
		&t.ReversedBy, &t.ReversedAt, &t.ReverseReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &t.Metadata); err != nil {
			return ledger.Transaction{}, fmt.Errorf("decode transaction metadata: %w", err)
		}
	}
	return t, nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error) {
	table, err := r.table(ctx, t.BusinessID, "ledger_transactions")
	if err != nil {
		return ledger.Transaction{}, err
	}
	metadata, err := json.Marshal(t.Metadata)
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("encode transaction metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			id, business_id, balance_id, balance_date, type, amount, payment_method, status,
			previous_balance, new_balance, description, reference_type, reference_id, reversal_of, metadata,
			created_by, approved_by, approved_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)
		RETURNING %s
	`, table, transactionColumns)

	created, err := scanTransaction(r.q(ctx).QueryRow(ctx, query,
		t.ID, t.BusinessID, t.BalanceID, t.BalanceDate, t.Type, t.Amount, t.PaymentMethod, t.Status,
		t.PreviousBalance, t.NewBalance, t.Description, t.ReferenceType, t.ReferenceID, t.ReversalOf, metadata,
		t.CreatedBy, t.ApprovedBy, t.ApprovedAt, t.CreatedAt,
	))
	if err != nil {
		if uniqueViolation(err, "uk_ledger_transactions_reversal_of") {
			return ledger.Transaction{}, ledger.ErrAlreadyReversed
		}
		return ledger.Transaction{}, fmt.Errorf("failed to create ledger transaction: %w", err)
	}
	return created, nil
}

func (r *ledgerRepository) getTransaction(ctx context.Context, businessID, id string, forUpdate bool) (ledger.Transaction, error) {
	table, err := r.table(ctx, businessID, "ledger_transactions")
	if err != nil {
		return ledger.Transaction{}, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE business_id = $1 AND id = $2`, transactionColumns, table)
	if forUpdate {
		query += " FOR UPDATE"
	}

	t, err := scanTransaction(r.q(ctx).QueryRow(ctx, query, businessID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}
		return ledger.Transaction{}, fmt.Errorf("failed to get ledger transaction: %w", err)
	}
	return t, nil
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, businessID, id string) (ledger.Transaction, error) {
	return r.getTransaction(ctx, businessID, id, false)
}

func (r *ledgerRepository) GetTransactionForUpdate(ctx context.Context, businessID, id string) (ledger.Transaction, error) {
	return r.getTransaction(ctx, businessID, id, true)
}

// UpdateTransactionStatus writes the status, the approval snapshot and the
// audit fields. Amount, type and method never change after insert.
func (r *ledgerRepository) UpdateTransactionStatus(ctx context.Context, t ledger.Transaction) error {
	table, err := r.table(ctx, t.BusinessID, "ledger_transactions")
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE %s SET
			status = $3, previous_balance = $4, new_balance = $5,
			approved_by = $6, approved_at = $7,
			cancelled_by = $8, cancelled_at = $9, cancel_reason = $10,
			reversed_by = $11, reversed_at = $12, reverse_reason = $13,
			updated_at = $14
		WHERE business_id = $1 AND id = $2
	`, table)

	tag, err := r.q(ctx).Exec(ctx, query,
		t.BusinessID, t.ID, t.Status, t.PreviousBalance, t.NewBalance,
		t.ApprovedBy, t.ApprovedAt,
		t.CancelledBy, t.CancelledAt, t.CancelReason,
		t.ReversedBy, t.ReversedAt, t.ReverseReason,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update ledger transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, businessID string, filter ledger.TransactionFilter) ([]ledger.Transaction, error) {
	table, err := r.table(ctx, businessID, "ledger_transactions")
	if err != nil {
		return nil, err
	}

	conditions := []string{"business_id = $1"}
	args := []interface{}{businessID}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conditions = append(conditions, fmt.Sprintf("balance_date = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at, id`,
		transactionColumns, table, strings.Join(conditions, " AND "))
	return r.listTransactions(ctx, query, args...)
}

func (r *ledgerRepository) ListTransactionsByBalance(ctx context.Context, businessID, balanceID string) ([]ledger.Transaction, error) {
	table, err := r.table(ctx, businessID, "ledger_transactions")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE business_id = $1 AND balance_id = $2 ORDER BY created_at, id`,
		transactionColumns, table)
	return r.listTransactions(ctx, query, businessID, balanceID)
}

func (r *ledgerRepository) listTransactions(ctx context.Context, query string, args ...interface{}) ([]ledger.Transaction, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
