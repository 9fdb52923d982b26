package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/internal/service"
	"github.com/pradipta/schedule-engine/pkg/response"
)

type RescheduleHandler struct {
	service   *service.RescheduleService
	validator *validator.Validate
}

func NewRescheduleHandler(service *service.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{
		service:   service,
		validator: validator.New(),
	}
}

// Submit handles POST /reschedules
func (h *RescheduleHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitRescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	request, err := h.service.Submit(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, request.ToResponse())
}

// Approve handles POST /reschedules/{requestId}/approve
func (h *RescheduleHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

// Reject handles POST /reschedules/{requestId}/reject
func (h *RescheduleHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

type decisionFunc func(ctx context.Context, id uuid.UUID, decidedBy string) (*domain.RescheduleRequest, error)

func (h *RescheduleHandler) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	requestID, err := uuid.Parse(mux.Vars(r)["requestId"])
	if err != nil {
		response.BadRequest(w, "invalid request id", err)
		return
	}

	var req domain.RescheduleDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	request, err := fn(r.Context(), requestID, req.DecidedBy)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, request.ToResponse())
}
