package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"wishwell/internal/api/respond"
	"wishwell/internal/apperr"
	"wishwell/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dev mode; lock down behind a reverse proxy in prod.
	},
}

type Handler struct {
	engine *Engine
	hub    *Hub
}

func NewHandler(engine *Engine, hub *Hub) *Handler {
	return &Handler{engine: engine, hub: hub}
}

// ServeWs upgrades the connection and attaches a live inbox subscription.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserKey).(string)
	if !ok {
		respond.Error(w, apperr.Unauthenticated("missing authentication"))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// The subscription outlives this handler; it is released on unregister.
	sub, err := h.engine.SubscribeInbox(context.Background(), userID)
	if err != nil {
		h.hub.log.Warn().Err(err).Str("user", userID).Msg("inbox subscription failed")
		conn.Close()
		return
	}

	client := &Client{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
		sub:    sub,
	}
	client.Hub.Register <- client

	go client.pumpInbox()
	go client.WritePump()
	go client.ReadPump()
}

// StartConversation finds or creates the conversation between the caller and
// another user.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respond.Error(w, apperr.InvalidArg("user_id is required"))
		return
	}

	conv, err := h.engine.FindOrCreateConversation(r.Context(), userID, req.UserID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, conv)
}

// Inbox returns the caller's inbox snapshot.
func (h *Handler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	entries, err := h.engine.Inbox(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}

// Messages returns a conversation's history.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)
	conversationID := chi.URLParam(r, "id")

	msgs, err := h.engine.Messages(r.Context(), conversationID, userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, msgs)
}

// MarkRead marks every foreign message in the conversation as read by the
// caller.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)
	conversationID := chi.URLParam(r, "id")

	if err := h.engine.MarkRead(r.Context(), conversationID, userID); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostMessage appends a text message to a conversation.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	var req struct {
		ConversationID string `json:"conversation_id"`
		Content        string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.InvalidArg("invalid request body"))
		return
	}

	msg, err := h.engine.PostTextMessage(r.Context(), req.ConversationID, userID, req.Content)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, msg)
}

// UnreadTotal returns the caller's badge count.
func (h *Handler) UnreadTotal(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(middleware.UserKey).(string)

	total, err := h.engine.UnreadTotal(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"unread_total": total})
}
