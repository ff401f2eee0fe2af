package http

import (
	"context"
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/settlement"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
)

type SettlementHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	ListOutstanding(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)

	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	MarkPaid(w http.ResponseWriter, r *http.Request)
	ApplyDeduction(w http.ResponseWriter, r *http.Request)
	DeductFromCommission(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	MarkRepaid(w http.ResponseWriter, r *http.Request)
}

// settlementHandlerImpl serves one instrument kind; advances and expenses
// are mounted as separate resources over the same service.
type settlementHandlerImpl struct {
	settlementService settlement.SettlementService
	kind              settlement.Kind
}

func NewSettlementHandler(settlementService settlement.SettlementService, kind settlement.Kind) SettlementHandler {
	return &settlementHandlerImpl{settlementService: settlementService, kind: kind}
}

// ownKind rejects ids that belong to the other instrument kind as not found.
func (h *settlementHandlerImpl) ownKind(ctx context.Context, actor user.Actor, id string) (settlement.Instrument, error) {
	instrument, err := h.settlementService.Get(ctx, actor, id)
	if err != nil {
		return settlement.Instrument{}, err
	}
	if instrument.Kind != h.kind {
		return settlement.Instrument{}, settlement.ErrInstrumentNotFound
	}
	return instrument, nil
}

// mutate runs op on an instrument of this handler's kind and writes the result.
func (h *settlementHandlerImpl) mutate(w http.ResponseWriter, r *http.Request, message string, op func(actor user.Actor, id string) (settlement.Instrument, error)) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := h.ownKind(r.Context(), actor, id); err != nil {
		response.HandleError(w, err)
		return
	}

	instrument, err := op(actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, message, settlement.NewInstrumentResponse(instrument))
}

// ========== QUERIES ==========

func (h *settlementHandlerImpl) Request(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req settlement.CreateInstrumentRequest
	if !decode(w, r, &req) {
		return
	}
	req.Kind = h.kind

	instrument, err := h.settlementService.Request(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Request submitted", settlement.NewInstrumentResponse(instrument))
}

func (h *settlementHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	kind := h.kind
	filter := settlement.InstrumentFilter{Kind: &kind, EmployeeID: queryString(r, "employee_id")}
	if s := queryString(r, "status"); s != nil {
		status := settlement.Status(*s)
		filter.Status = &status
	}

	instruments, err := h.settlementService.List(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toInstrumentResponses(instruments))
}

func (h *settlementHandlerImpl) ListOutstanding(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	if h.kind != settlement.KindAdvance {
		response.NotFound(w, "Outstanding balances exist only for advances")
		return
	}
	employeeID := r.URL.Query().Get("employee_id")
	if employeeID == "" {
		response.BadRequest(w, "employee_id is required", nil)
		return
	}

	instruments, err := h.settlementService.ListOutstandingAdvances(r.Context(), actor, employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toInstrumentResponses(instruments))
}

func (h *settlementHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	instrument, err := h.ownKind(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, settlement.NewInstrumentResponse(instrument))
}

// ========== LIFECYCLE ==========

func (h *settlementHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	var req settlement.ApproveInstrumentRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Request approved", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.Approve(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req settlement.ReasonRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Request rejected", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.Reject(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) MarkPaid(w http.ResponseWriter, r *http.Request) {
	var req settlement.MarkPaidRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Marked as paid", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.MarkPaid(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) ApplyDeduction(w http.ResponseWriter, r *http.Request) {
	var req settlement.ApplyDeductionRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Deduction applied", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.ApplyDeduction(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) DeductFromCommission(w http.ResponseWriter, r *http.Request) {
	var req settlement.CommissionDeductionRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Commission deduction applied", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.DeductFromCommission(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	var req settlement.ReasonRequest
	if !decode(w, r, &req) {
		return
	}
	h.mutate(w, r, "Request cancelled", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.Cancel(r.Context(), actor, id, req)
	})
}

func (h *settlementHandlerImpl) MarkRepaid(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "Marked as repaid", func(actor user.Actor, id string) (settlement.Instrument, error) {
		return h.settlementService.MarkRepaid(r.Context(), actor, id)
	})
}

func toInstrumentResponses(instruments []settlement.Instrument) []settlement.InstrumentResponse {
	result := make([]settlement.InstrumentResponse, 0, len(instruments))
	for _, i := range instruments {
		result = append(result, settlement.NewInstrumentResponse(i))
	}
	return result
}
