package balance

import (
	"net/http"
	"strconv"

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

// GetBalances reports the per-type position for one employee. Year
// defaults to the current year when absent.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	year := 0
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 2000 || y > 2200 {
			h.WriteError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	balances, err := h.Service.ForEmployee(r.Context(), principal, chi.URLParam(r, "employeeID"), year)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"balances": balances})
}
