package dream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wishwell/internal/api/respond"
	"wishwell/internal/apperr"
	"wishwell/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// Commit starts a dream against a wish.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	var req struct {
		WishID  string `json:"wish_id"`
		EndDate string `json:"end_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.WishID == "" {
		respond.Error(w, apperr.InvalidArg("wish_id and end_date are required"))
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		respond.Error(w, apperr.InvalidArg("end_date must be YYYY-MM-DD"))
		return
	}

	d, err := h.service.Commit(r.Context(), req.WishID, userID, endDate)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{
		"dream_id": d.ID,
		"chat_id":  d.ChatID,
	})
}

// SubmitProof attaches a proof to the caller's dream.
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)
	dreamID := chi.URLParam(r, "id")

	var req struct {
		ProofText string `json:"proof_text"`
		FileURL   string `json:"file_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.InvalidArg("invalid request body"))
		return
	}

	if err := h.service.SubmitProof(r.Context(), dreamID, userID, req.ProofText, req.FileURL); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decide approves or rejects a pending proof.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)
	dreamID := chi.URLParam(r, "id")

	var req struct {
		MessageID string `json:"message_id"`
		Decision  string `json:"decision"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MessageID == "" {
		respond.Error(w, apperr.InvalidArg("message_id and decision are required"))
		return
	}

	if err := h.service.Decide(r.Context(), userID, dreamID, req.MessageID, Decision(req.Decision)); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInProgress returns the caller's active dreams.
func (h *Handler) ListInProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	dreams, err := h.service.ListInProgress(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, dreams)
}
