package wish

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wishwell/internal/api/respond"
	"wishwell/internal/apperr"
	"wishwell/internal/middleware"
	"wishwell/internal/model"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.InvalidArg("invalid request body"))
		return
	}

	created, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, found)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	status := model.WishStatus(r.URL.Query().Get("status"))

	wishes, err := h.service.List(r.Context(), status)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, wishes)
}
