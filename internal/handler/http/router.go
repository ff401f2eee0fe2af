package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	Logger         *slog.Logger
	LogLevel       slog.Level
	AllowedOrigins []string
}

type Handlers struct {
	Ledger   LedgerHandler
	Advances SettlementHandler
	Expenses SettlementHandler
	Payroll  PayrollHandler
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:3000"}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
		Level:  opts.LogLevel,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
		r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

		r.Route("/ledger", func(r chi.Router) {
			r.Route("/days", func(r chi.Router) {
				r.With(can(user.ResourceLedger, user.ActionCreate)).Post("/open", h.Ledger.OpenDay)
				r.With(can(user.ResourceLedger, user.ActionClose)).Post("/close", h.Ledger.CloseDay)
				r.With(can(user.ResourceLedger, user.ActionRead)).Get("/{date}", h.Ledger.GetDay)
				r.With(can(user.ResourceLedger, user.ActionRead)).Get("/{date}/verify", h.Ledger.VerifyDay)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.With(can(user.ResourceLedger, user.ActionCreate)).Post("/", h.Ledger.PostTransaction)
				r.With(can(user.ResourceLedger, user.ActionRead)).Get("/", h.Ledger.ListTransactions)
				r.Route("/{id}", func(r chi.Router) {
					r.With(can(user.ResourceLedger, user.ActionRead)).Get("/", h.Ledger.GetTransaction)
					r.With(can(user.ResourceLedger, user.ActionApprove)).Post("/approve", h.Ledger.ApproveTransaction)
					r.With(can(user.ResourceLedger, user.ActionCancel)).Post("/cancel", h.Ledger.CancelTransaction)
					r.With(can(user.ResourceLedger, user.ActionReverse)).Post("/reverse", h.Ledger.ReverseTransaction)
				})
			})
		})

		r.Route("/advances", settlementRoutes(h.Advances, user.ResourceAdvance))
		r.Route("/expenses", settlementRoutes(h.Expenses, user.ResourceExpense))

		r.Route("/payrolls", func(r chi.Router) {
			r.With(can(user.ResourcePayroll, user.ActionRead)).Get("/configuration", h.Payroll.GetConfiguration)
			r.With(can(user.ResourcePayroll, user.ActionManage)).Put("/configuration", h.Payroll.UpsertConfiguration)
			r.With(can(user.ResourcePayroll, user.ActionManage)).Post("/templates", h.Payroll.CreateTemplate)

			r.With(can(user.ResourcePayroll, user.ActionGenerate)).Post("/generate", h.Payroll.GeneratePayrolls)
			r.With(can(user.ResourcePayroll, user.ActionPay)).Post("/batch-pay", h.Payroll.BatchPay)
			r.With(can(user.ResourcePayroll, user.ActionRead)).Get("/summary", h.Payroll.GetPayrollSummary)

			r.With(can(user.ResourcePayroll, user.ActionCreate)).Post("/", h.Payroll.CreatePayroll)
			r.With(can(user.ResourcePayroll, user.ActionRead)).Get("/", h.Payroll.ListPayrolls)
			r.Route("/{id}", func(r chi.Router) {
				r.With(can(user.ResourcePayroll, user.ActionRead)).Get("/", h.Payroll.GetPayroll)
				r.With(can(user.ResourcePayroll, user.ActionCreate)).Post("/recalculate", h.Payroll.RecalculatePayroll)
				r.With(can(user.ResourcePayroll, user.ActionApprove)).Post("/approve", h.Payroll.ApprovePayroll)
				r.With(can(user.ResourcePayroll, user.ActionPay)).Post("/pay", h.Payroll.PayPayroll)
				r.With(can(user.ResourcePayroll, user.ActionCancel)).Post("/cancel", h.Payroll.CancelPayroll)
			})
		})
	})
	return r
}

func settlementRoutes(h SettlementHandler, resource user.Resource) func(r chi.Router) {
	return func(r chi.Router) {
		r.With(can(resource, user.ActionCreate)).Post("/", h.Request)
		r.With(can(resource, user.ActionRead)).Get("/", h.List)
		r.With(can(resource, user.ActionRead)).Get("/outstanding", h.ListOutstanding)
		r.Route("/{id}", func(r chi.Router) {
			r.With(can(resource, user.ActionRead)).Get("/", h.Get)
			r.With(can(resource, user.ActionApprove)).Post("/approve", h.Approve)
			r.With(can(resource, user.ActionApprove)).Post("/reject", h.Reject)
			r.With(can(resource, user.ActionPay)).Post("/pay", h.MarkPaid)
			r.With(can(resource, user.ActionDeduct)).Post("/deductions", h.ApplyDeduction)
			r.With(can(resource, user.ActionDeduct)).Post("/commission-deductions", h.DeductFromCommission)
			r.With(can(resource, user.ActionCancel)).Post("/cancel", h.Cancel)
			r.With(can(resource, user.ActionDeduct)).Post("/repaid", h.MarkRepaid)
		})
	}
}

func can(resource user.Resource, action user.Action) func(http.Handler) http.Handler {
	return middleware.RequirePermission(user.Can(resource, action))
}
