package ledger

import (
	"net/http"

	"wishwell/internal/api/respond"
	"wishwell/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// History returns the caller's transaction history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	txs, err := h.service.History(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, txs)
}
