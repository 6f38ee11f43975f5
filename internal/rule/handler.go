package rule

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/spendflow/expense-approval/internal"
	"github.com/spendflow/expense-approval/internal/transport"
)

type ServiceAPI interface {
	GetAllRules() ([]*ApprovalRule, error)
	GetRuleByID(id int64) (*ApprovalRule, error)
	CreateRule(dto *CreateRuleDTO) (*ApprovalRule, error)
	UpdateRule(id int64, dto *UpdateRuleDTO) (*ApprovalRule, error)
	DeleteRule(id int64) error
}

type Handler struct {
	*transport.BaseHandler
	service ServiceAPI
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.GetAllRules()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRuleID(w, r)
	if !ok {
		return
	}

	foundRule, err := h.service.GetRuleByID(id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, foundRule)
}

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var dto CreateRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.service.CreateRule(&dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRuleID(w, r)
	if !ok {
		return
	}

	var dto UpdateRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateRule(id, &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseRuleID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRule(id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "rule deleted"})
}

func (h *Handler) parseRuleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.HandleServiceError(w, internal.NewValidationError("invalid rule id", internal.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}
