package department

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/leavedesk/leave-management/internal"
	"github.com/leavedesk/leave-management/internal/transport"
	"github.com/leavedesk/leave-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
	}
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDepartmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	dept, err := h.Service.Create(r.Context(), principal, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, dept)
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dept)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.Service.List(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"departments": depts})
}
