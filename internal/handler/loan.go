package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pradipta/schedule-engine/internal/config"
	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/internal/service"
	"github.com/pradipta/schedule-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	config    *config.Config
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService, cfg *config.Config) *LoanHandler {
	return &LoanHandler{
		service:   service,
		config:    cfg,
		validator: validator.New(),
	}
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	resp, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, resp)
}

// GetDisbursementDetails handles GET /loans/{loanId}/disbursements
func (h *LoanHandler) GetDisbursementDetails(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	resp, err := h.service.GetDisbursementDetails(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, resp)
}

// AddTranche handles POST /loans/{loanId}/tranches
func (h *LoanHandler) AddTranche(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var req domain.AddTrancheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	tranche, err := h.service.AddTranche(r.Context(), loanID, req.ExpectedDate.Time(), req.Principal)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, tranche.ToResponse(int32(h.config.Business.CurrencyDigits)))
}

// EditTranche handles PUT /loans/{loanId}/tranches/{trancheId}
func (h *LoanHandler) EditTranche(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]
	trancheID, err := uuid.Parse(vars["trancheId"])
	if err != nil {
		response.BadRequest(w, "invalid tranche id", err)
		return
	}

	var req domain.EditTrancheRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.EditTranche(r.Context(), loanID, trancheID, req.ExpectedDate.Time(), req.Principal); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// DeleteTranche handles DELETE /loans/{loanId}/tranches/{trancheId}
func (h *LoanHandler) DeleteTranche(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]
	trancheID, err := uuid.Parse(vars["trancheId"])
	if err != nil {
		response.BadRequest(w, "invalid tranche id", err)
		return
	}

	if err := h.service.DeleteTranche(r.Context(), loanID, trancheID); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// Disburse handles POST /loans/{loanId}/tranches/{trancheId}/disburse
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]
	trancheID, err := uuid.Parse(vars["trancheId"])
	if err != nil {
		response.BadRequest(w, "invalid tranche id", err)
		return
	}

	var req domain.DisburseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.Disburse(r.Context(), loanID, trancheID, req.ActualDate.Time(), req.Amount); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// UndoLastDisbursal handles POST /loans/{loanId}/disbursements/undo
func (h *LoanHandler) UndoLastDisbursal(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	amount, err := h.service.UndoLastDisbursal(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.UndoDisbursalResponse{LoanID: loanID, ReversedAmount: amount})
}

// ApplyRepayment handles POST /loans/{loanId}/repayments
func (h *LoanHandler) ApplyRepayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var req domain.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.ApplyRepayment(r.Context(), loanID, req.TransactionDate.Time(), req.Amount); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// ApplyCalendarChange handles POST /loans/{loanId}/calendar-rules
func (h *LoanHandler) ApplyCalendarChange(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var req domain.CalendarRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	rule := domain.CalendarRule{
		Frequency:     req.Frequency,
		Interval:      req.Interval,
		Weekday:       time.Weekday(req.Weekday),
		DayOfMonth:    req.DayOfMonth,
		StartDate:     req.StartDate.Time(),
		EffectiveFrom: req.EffectiveFrom.Time(),
	}
	if err := h.service.ApplyCalendarChange(r.Context(), loanID, rule); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// GrantSubsidy handles POST /loans/{loanId}/subsidies
func (h *LoanHandler) GrantSubsidy(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var req domain.SubsidyGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.GrantSubsidy(r.Context(), loanID, req.EffectiveDate.Time(), req.Amount); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}

// RevokeSubsidy handles POST /loans/{loanId}/subsidies/revoke
func (h *LoanHandler) RevokeSubsidy(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var req domain.SubsidyRevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	if err := h.service.RevokeSubsidy(r.Context(), loanID, req.EffectiveDate.Time()); err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, nil)
}
