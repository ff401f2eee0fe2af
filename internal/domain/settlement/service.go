package settlement

import (
	"context"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
)

type SettlementService interface {
	Request(ctx context.Context, actor user.Actor, req CreateInstrumentRequest) (Instrument, error)
	Approve(ctx context.Context, actor user.Actor, id string, req ApproveInstrumentRequest) (Instrument, error)
	Reject(ctx context.Context, actor user.Actor, id string, req ReasonRequest) (Instrument, error)
	// MarkPaid flips the instrument to paid. Cash payouts post the ledger
	// debit in the same transaction.
	MarkPaid(ctx context.Context, actor user.Actor, id string, req MarkPaidRequest) (Instrument, error)
	ApplyDeduction(ctx context.Context, actor user.Actor, id string, req ApplyDeductionRequest) (Instrument, error)
	DeductFromCommission(ctx context.Context, actor user.Actor, id string, req CommissionDeductionRequest) (Instrument, error)
	Cancel(ctx context.Context, actor user.Actor, id string, req ReasonRequest) (Instrument, error)
	MarkRepaid(ctx context.Context, actor user.Actor, id string) (Instrument, error)

	Get(ctx context.Context, actor user.Actor, id string) (Instrument, error)
	List(ctx context.Context, actor user.Actor, filter InstrumentFilter) ([]Instrument, error)
	ListOutstandingAdvances(ctx context.Context, actor user.Actor, employeeID string) ([]Instrument, error)
}
