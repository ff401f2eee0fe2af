package payroll

import (
	"context"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
)

type PayrollService interface {
	// Configuration
	GetConfiguration(ctx context.Context, actor user.Actor) (Configuration, error)
	UpsertConfiguration(ctx context.Context, actor user.Actor, req UpsertConfigurationRequest) (Configuration, error)
	CreateTemplate(ctx context.Context, actor user.Actor, req CreateTemplateRequest) (Template, error)

	// Lifecycle
	Create(ctx context.Context, actor user.Actor, req CreatePayrollRequest) (Payroll, error)
	Recalculate(ctx context.Context, actor user.Actor, id string, req RecalculatePayrollRequest) (Payroll, error)
	Approve(ctx context.Context, actor user.Actor, id string) (Payroll, error)
	// Pay marks an approved payroll paid. Cash payments debit the ledger and
	// post advance deductions in the same transaction.
	Pay(ctx context.Context, actor user.Actor, id string, req PayPayrollRequest) (Payroll, error)
	Cancel(ctx context.Context, actor user.Actor, id string, req CancelPayrollRequest) (Payroll, error)
	Get(ctx context.Context, actor user.Actor, id string) (Payroll, error)
	List(ctx context.Context, actor user.Actor, filter PayrollFilter) ([]Payroll, error)
	Summary(ctx context.Context, actor user.Actor, start, end string) (PayrollSummaryResponse, error)

	// Batches isolate failures per item.
	Generate(ctx context.Context, actor user.Actor, req GeneratePayrollRequest) (GenerationResult, error)
	BatchPay(ctx context.Context, actor user.Actor, req BatchPayRequest) (BatchPayResult, error)
}
