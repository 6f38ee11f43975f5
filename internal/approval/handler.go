package approval

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/spendflow/expense-approval/internal/auth"
	"github.com/spendflow/expense-approval/internal/transport"
	"github.com/spendflow/expense-approval/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
	Builder *Builder
}

func NewHandler(service *Service, builder *Builder) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
		Builder:     builder,
	}
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto ApproveDTO
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	result, err := h.Service.Approve(r.Context(), expenseID, user.ID, dto.Comments)
	if err != nil {
		h.Logger.Error("Approve: service error", "error", err, "expense_id", expenseID, "actor_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	var dto RejectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.Reject(r.Context(), expenseID, user.ID, dto.Comments); err != nil {
		h.Logger.Error("Reject: service error", "error", err, "expense_id", expenseID, "actor_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": StatusRejected})
}

func (h *Handler) Rescind(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expenseID, err := parseID(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid expense ID")
		return
	}

	if err := h.Service.Rescind(r.Context(), expenseID, user.ID); err != nil {
		h.Logger.Error("Rescind: service error", "error", err, "expense_id", expenseID, "actor_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": StatusRejected, "reason": RescindReason})
}

// Preview runs the chain builder without persisting anything, so UIs can show
// the prospective approval path before submission.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount_cents"), 10, 64)
	if err != nil || amount <= 0 {
		h.WriteError(w, http.StatusBadRequest, "amount_cents must be a positive integer")
		return
	}

	var costCenterID *int64
	if raw := r.URL.Query().Get("cost_center_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid cost_center_id")
			return
		}
		costCenterID = &id
	}

	result, err := h.Builder.BuildChain(user.ID, amount, costCenterID)
	if err != nil {
		h.Logger.Error("Preview: build failed", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PreviewDTO{
		RequiresApproval: result.RequiresApproval,
		RuleID:           result.RuleID,
		Chain:            result.Chain,
	})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
