package chat

import (
	"github.com/rs/zerolog"
)

// Hub tracks connected websocket clients. Each client owns an inbox
// subscription; the hub's job is the register/unregister lifecycle so a
// dropped socket always releases its listeners.
type Hub struct {
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	engine     *Engine
	log        zerolog.Logger
}

func NewHub(engine *Engine, log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		engine:     engine,
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				// Closing the subscription ends the client's update pump,
				// which in turn closes the send channel.
				client.sub.Close()
			}
		}
	}
}
