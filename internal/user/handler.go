package user

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wishwell/internal/api/respond"
	"wishwell/internal/apperr"
	"wishwell/internal/middleware"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.InvalidArg("invalid request body"))
		return
	}

	u, err := h.Service.Register(r.Context(), &req)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.InvalidArg("invalid request body"))
		return
	}

	res, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond.Error(w, apperr.Unauthenticated("invalid credentials"))
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	p, err := h.Service.Profile(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)
	wishID := chi.URLParam(r, "id")

	favorited, err := h.Service.ToggleFavorite(r.Context(), userID, wishID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"favorited": favorited})
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.Service.Leaderboard(r.Context(), 20)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, board)
}
