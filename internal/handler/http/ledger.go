package http

import (
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/ledger"
	"github.com/cmlabs-hris/settlement-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type LedgerHandler interface {
	// Days
	OpenDay(w http.ResponseWriter, r *http.Request)
	GetDay(w http.ResponseWriter, r *http.Request)
	CloseDay(w http.ResponseWriter, r *http.Request)
	VerifyDay(w http.ResponseWriter, r *http.Request)

	// Transactions
	PostTransaction(w http.ResponseWriter, r *http.Request)
	ListTransactions(w http.ResponseWriter, r *http.Request)
	GetTransaction(w http.ResponseWriter, r *http.Request)
	ApproveTransaction(w http.ResponseWriter, r *http.Request)
	CancelTransaction(w http.ResponseWriter, r *http.Request)
	ReverseTransaction(w http.ResponseWriter, r *http.Request)
}

type ledgerHandlerImpl struct {
	ledgerService ledger.LedgerService
}

func NewLedgerHandler(ledgerService ledger.LedgerService) LedgerHandler {
	return &ledgerHandlerImpl{ledgerService: ledgerService}
}

// dayParam maps the {date} path segment to the service form; "today" is
// the empty date.
func dayParam(r *http.Request) string {
	date := chi.URLParam(r, "date")
	if date == "today" {
		return ""
	}
	return date
}

// ========== DAYS ==========

func (h *ledgerHandlerImpl) OpenDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req ledger.OpenDayRequest
	if !decode(w, r, &req) {
		return
	}

	balance, err := h.ledgerService.OpenDay(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Day opened", ledger.NewDailyBalanceResponse(balance))
}

func (h *ledgerHandlerImpl) GetDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetDay(r.Context(), actor, dayParam(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ledger.NewDailyBalanceResponse(balance))
}

func (h *ledgerHandlerImpl) CloseDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req ledger.CloseDayRequest
	if !decode(w, r, &req) {
		return
	}

	balance, err := h.ledgerService.CloseDay(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Day closed", ledger.NewDailyBalanceResponse(balance))
}

func (h *ledgerHandlerImpl) VerifyDay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	result, err := h.ledgerService.VerifyDay(r.Context(), actor, dayParam(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ========== TRANSACTIONS ==========

func (h *ledgerHandlerImpl) PostTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	var req ledger.PostTransactionRequest
	if !decode(w, r, &req) {
		return
	}

	tx, err := h.ledgerService.PostTransaction(r.Context(), actor, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Transaction posted", ledger.NewTransactionResponse(tx))
}

func (h *ledgerHandlerImpl) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}

	var filter ledger.TransactionFilter
	date, err := queryDate(r, "date")
	if err != nil {
		response.HandleError(w, err)
		return
	}
	filter.Date = date
	if s := queryString(r, "status"); s != nil {
		status := ledger.TransactionStatus(*s)
		filter.Status = &status
	}
	if s := queryString(r, "type"); s != nil {
		txType := ledger.TransactionType(*s)
		filter.Type = &txType
	}

	txs, err := h.ledgerService.ListTransactions(r.Context(), actor, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result := make([]ledger.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		result = append(result, ledger.NewTransactionResponse(tx))
	}
	response.Success(w, result)
}

func (h *ledgerHandlerImpl) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	tx, err := h.ledgerService.GetTransaction(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ledger.NewTransactionResponse(tx))
}

func (h *ledgerHandlerImpl) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	tx, err := h.ledgerService.ApproveTransaction(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Transaction approved", ledger.NewTransactionResponse(tx))
}

func (h *ledgerHandlerImpl) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req ledger.CancelTransactionRequest
	if !decode(w, r, &req) {
		return
	}

	tx, err := h.ledgerService.CancelTransaction(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Transaction cancelled", ledger.NewTransactionResponse(tx))
}

func (h *ledgerHandlerImpl) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOf(w, r)
	if !ok {
		return
	}
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req ledger.ReverseTransactionRequest
	if !decode(w, r, &req) {
		return
	}

	reversal, err := h.ledgerService.Reverse(r.Context(), actor, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Transaction reversed", ledger.NewTransactionResponse(reversal))
}
