package http

import (
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
)

type PayrollHandler interface {
	// Configuration
	GetConfiguration(w http.ResponseWriter, r *http.Request)
	UpsertConfiguration(w http.ResponseWriter, r *http.Request)
	CreateTemplate(w http.ResponseWriter, r *http.Request)

	// Payroll Records
	CreatePayroll(w http.ResponseWriter, r *http.Request)
	GetPayroll(w http.ResponseWriter, r *http.Request)
	ListPayrolls(w http.ResponseWriter, r *http.Request)
	RecalculatePayroll(w http.ResponseWriter, r *http.Request)
	ApprovePayroll(w http.ResponseWriter, r *http.Request)
	PayPayroll(w http.ResponseWriter, r *http.Request)
	CancelPayroll(w http.ResponseWriter, r *http.Request)

	// Batches
	GeneratePayrolls(w http.ResponseWriter, r *http.Request)
	BatchPay(w http.ResponseWriter, r *http.Request)

	// Summary
	GetPayrollSummary(w http.ResponseWriter, r *http.Request)
}

type payrollHandlerImpl struct {
	payrollService payroll.PayrollService
}

func NewPayrollHandler(payrollService payroll.PayrollService) PayrollHandler {
	return &payrollHandlerImpl{payrollService: payrollService}
}

type generationResponse struct {
	payroll.GenerationResult
	Payrolls []payroll.PayrollResponse `json:"payrolls"`
}

// ========== CONFIGURATION ==========

func (h *payrollHandlerImpl) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	cfg, err := h.payrollService.GetConfiguration(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, cfg)
}

func (h *payrollHandlerImpl) UpsertConfiguration(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req payroll.UpsertConfigurationRequest
	if !decode(w, r, &req) {
		return
	}

	cfg, err := h.payrollService.UpsertConfiguration(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Configuration saved", cfg)
}

func (h *payrollHandlerImpl) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req payroll.CreateTemplateRequest
	if !decode(w, r, &req) {
		return
	}

	tmpl, err := h.payrollService.CreateTemplate(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Template created", tmpl)
}

// ========== PAYROLL RECORDS ==========

func (h *payrollHandlerImpl) CreatePayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req payroll.CreatePayrollRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.payrollService.Create(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Payroll created", payroll.NewPayrollResponse(p))
}

func (h *payrollHandlerImpl) GetPayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	p, err := h.payrollService.Get(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, payroll.NewPayrollResponse(p))
}

func (h *payrollHandlerImpl) ListPayrolls(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	var (
		filter payroll.PayrollFilter
		err    error
	)
	if filter.PeriodStart, err = queryDate(r, "period_start"); err != nil {
		response.HandleError(w, err)
		return
	}
	if filter.PeriodEnd, err = queryDate(r, "period_end"); err != nil {
		response.HandleError(w, err)
		return
	}
	if s := queryString(r, "status"); s != nil {
		status := payroll.PayrollStatus(*s)
		filter.Status = &status
	}
	filter.EmployeeID = queryString(r, "employee_id")

	payrolls, err := h.payrollService.List(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toPayrollResponses(payrolls))
}

func (h *payrollHandlerImpl) RecalculatePayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req payroll.RecalculatePayrollRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.payrollService.Recalculate(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll recalculated", payroll.NewPayrollResponse(p))
}

func (h *payrollHandlerImpl) ApprovePayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	p, err := h.payrollService.Approve(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll approved", payroll.NewPayrollResponse(p))
}

func (h *payrollHandlerImpl) PayPayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req payroll.PayPayrollRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.payrollService.Pay(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll paid", payroll.NewPayrollResponse(p))
}

func (h *payrollHandlerImpl) CancelPayroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req payroll.CancelPayrollRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.payrollService.Cancel(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Payroll cancelled", payroll.NewPayrollResponse(p))
}

// ========== BATCHES ==========

func (h *payrollHandlerImpl) GeneratePayrolls(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req payroll.GeneratePayrollRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.Generate(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Batch(w, string(result.Outcome), "Payroll generation finished", generationResponse{
		GenerationResult: result,
		Payrolls:         toPayrollResponses(result.Payrolls),
	})
}

func (h *payrollHandlerImpl) BatchPay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req payroll.BatchPayRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.payrollService.BatchPay(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Batch(w, string(result.Outcome), "Batch payment finished", result)
}

// ========== SUMMARY ==========

func (h *payrollHandlerImpl) GetPayrollSummary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	start := r.URL.Query().Get("period_start")
	end := r.URL.Query().Get("period_end")
	if start == "" || end == "" {
		response.BadRequest(w, "period_start and period_end are required", nil)
		return
	}

	result, err := h.payrollService.Summary(r.Context(), actor, start, end)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func toPayrollResponses(payrolls []payroll.Payroll) []payroll.PayrollResponse {
	result := make([]payroll.PayrollResponse, 0, len(payrolls))
	for _, p := range payrolls {
		result = append(result, payroll.NewPayrollResponse(p))
	}
	return result
}
