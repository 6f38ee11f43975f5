package marketplace

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/spendflow/expense-approval/internal/transport"
)

const (
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
)

// OrderRecorder persists order status transitions. Both methods report whether
// the transition actually applied, so duplicate callbacks stay idempotent.
type OrderRecorder interface {
	RecordOrderConfirmed(expenseID int64, poNumber string) (bool, error)
	RecordOrderFailed(expenseID int64) (bool, error)
}

type CallbackHandler struct {
	*transport.BaseHandler
	recorder OrderRecorder
	logger   *slog.Logger
}

func NewCallbackHandler(baseHandler *transport.BaseHandler, recorder OrderRecorder, logger *slog.Logger) *CallbackHandler {
	return &CallbackHandler{
		BaseHandler: baseHandler,
		recorder:    recorder,
		logger:      logger,
	}
}

type OrderCallbackRequest struct {
	CartID        string `json:"cart_id"`
	ExpenseID     int64  `json:"expense_id"`
	Status        string `json:"status"`
	PONumber      string `json:"po_number,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type OrderCallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *CallbackHandler) HandleOrderCallback(w http.ResponseWriter, r *http.Request) {
	var req OrderCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid order callback request", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info("received order callback",
		"cart_id", req.CartID,
		"expense_id", req.ExpenseID,
		"status", req.Status)

	if req.ExpenseID == 0 {
		h.WriteError(w, http.StatusBadRequest, "expense_id is required")
		return
	}

	var (
		applied bool
		err     error
	)
	switch req.Status {
	case StatusConfirmed:
		applied, err = h.recorder.RecordOrderConfirmed(req.ExpenseID, req.PONumber)
	case StatusFailed:
		applied, err = h.recorder.RecordOrderFailed(req.ExpenseID)
	default:
		h.WriteError(w, http.StatusBadRequest, "status must be confirmed or failed")
		return
	}

	if err != nil {
		h.logger.Error("failed to record order status",
			"error", err,
			"expense_id", req.ExpenseID,
			"status", req.Status)
		h.WriteError(w, http.StatusInternalServerError, "failed to process order callback")
		return
	}

	if !applied {
		// already settled, acknowledge so the marketplace stops retrying
		h.logger.Info("order callback ignored, order already settled",
			"expense_id", req.ExpenseID,
			"status", req.Status)
	}

	h.WriteJSON(w, http.StatusOK, OrderCallbackResponse{
		Status:  "success",
		Message: "callback processed",
	})
}
