package audit

import (
	"net/http"
	"strconv"

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

func (h *Handler) QueryTrail(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filter := QueryFilter{
		Action:   Action(q.Get("action")),
		ActorID:  q.Get("actor_id"),
		TargetID: q.Get("target_id"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = l
		}
	}
	if offsetStr := q.Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	entries, err := h.Service.Query(r.Context(), principal, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
