package ledger

import (
	"context"
	"time"
)

type LedgerRepository interface {
	// CreateBalanceIfAbsent inserts b unless a balance already exists for
	// (business, date) and returns whichever record is stored.
	CreateBalanceIfAbsent(ctx context.Context, b DailyBalance) (DailyBalance, error)
	GetBalanceByDate(ctx context.Context, businessID string, date time.Time) (DailyBalance, error)
	// GetBalanceForUpdate reads the balance and locks the row for the rest of
	// the surrounding transaction.
	GetBalanceForUpdate(ctx context.Context, businessID string, date time.Time) (DailyBalance, error)
	GetLastClosedBefore(ctx context.Context, businessID string, date time.Time) (DailyBalance, error)
	// UpdateBalance writes b if its stored version equals b.Version and
	// returns the record with the incremented version.
	UpdateBalance(ctx context.Context, b DailyBalance) (DailyBalance, error)

	CreateTransaction(ctx context.Context, t Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, businessID, id string) (Transaction, error)
	GetTransactionForUpdate(ctx context.Context, businessID, id string) (Transaction, error)
	UpdateTransactionStatus(ctx context.Context, t Transaction) error
	ListTransactions(ctx context.Context, businessID string, filter TransactionFilter) ([]Transaction, error)
	ListTransactionsByBalance(ctx context.Context, businessID, balanceID string) ([]Transaction, error)
}
