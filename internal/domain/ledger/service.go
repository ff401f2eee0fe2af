package ledger

import (
	"context"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
)

type LedgerService interface {
	OpenDay(ctx context.Context, actor user.Actor, req OpenDayRequest) (DailyBalance, error)
	GetDay(ctx context.Context, actor user.Actor, date string) (DailyBalance, error)
	CloseDay(ctx context.Context, actor user.Actor, req CloseDayRequest) (DailyBalance, error)
	VerifyDay(ctx context.Context, actor user.Actor, date string) (VerifyDayResponse, error)

	PostTransaction(ctx context.Context, actor user.Actor, req PostTransactionRequest) (Transaction, error)
	ApproveTransaction(ctx context.Context, actor user.Actor, id string) (Transaction, error)
	CancelTransaction(ctx context.Context, actor user.Actor, id string, req CancelTransactionRequest) (Transaction, error)
	Reverse(ctx context.Context, actor user.Actor, id string, req ReverseTransactionRequest) (Transaction, error)
	GetTransaction(ctx context.Context, actor user.Actor, id string) (Transaction, error)
	ListTransactions(ctx context.Context, actor user.Actor, filter TransactionFilter) ([]Transaction, error)
}

// Poster lets other subsystems move cash as part of their own transaction.
// Callers must hold the day lock for p.Date and run PostWithin inside a
// database transaction; the posting requires an open day and fails with
// ErrNoOpenBalance or ErrInsufficientFunds without writing anything.
type Poster interface {
	Today() time.Time
	PostWithin(ctx context.Context, actor user.Actor, p Posting) (Transaction, error)
}
