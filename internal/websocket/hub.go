package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

type Hub struct {
	rooms      map[int64]*Room
	register   chan *WSClient
	unregister chan *WSClient
	broadcast  chan *Envelope
	done       chan struct{}
	metrics    *Metrics
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		rooms:      make(map[int64]*Room),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		broadcast:  make(chan *Envelope, 64),
		done:       make(chan struct{}),
		metrics:    metrics,
	}
}

// Run owns the room table until ctx is cancelled. Every client still
// connected at that point has its send channel closed.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, room := range h.rooms {
			for id, client := range room.Clients {
				close(client.Message)
				delete(room.Clients, id)
				h.metrics.decConnections()
			}
		}
		h.rooms = make(map[int64]*Room)
		h.metrics.setRooms(0)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			room, ok := h.rooms[client.RoomID]
			if !ok {
				room = &Room{ID: client.RoomID, Clients: make(map[string]*WSClient)}
				h.rooms[client.RoomID] = room
				h.metrics.setRooms(len(h.rooms))
			}
			room.Clients[client.ID] = client
			h.metrics.incConnections()
			log.Debug().Int64("chatroom_id", client.RoomID).Str("client", client.ID).Msg("client joined room")

		case client := <-h.unregister:
			h.remove(client)

		case env := <-h.broadcast:
			room, ok := h.rooms[env.RoomID]
			if !ok {
				continue
			}
			delivered := 0
			for _, client := range room.Clients {
				select {
				case client.Message <- env.Payload:
					delivered++
				default:
					log.Warn().Int64("chatroom_id", env.RoomID).Str("client", client.ID).Msg("client send buffer full, evicting")
					h.metrics.incEvicted()
					h.remove(client)
				}
			}
			if delivered > 0 {
				h.metrics.addDelivered(delivered)
			}
		}
	}
}

func (h *Hub) remove(client *WSClient) {
	room, ok := h.rooms[client.RoomID]
	if !ok {
		return
	}
	if current, ok := room.Clients[client.ID]; !ok || current != client {
		return
	}
	delete(room.Clients, client.ID)
	close(client.Message)
	h.metrics.decConnections()

	if len(room.Clients) == 0 {
		delete(h.rooms, client.RoomID)
		h.metrics.setRooms(len(h.rooms))
	}
}

// Register adds client to its room. It reports false once the hub stopped.
func (h *Hub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Deliver queues payload for every local client of the room.
func (h *Hub) Deliver(ctx context.Context, env *Envelope) error {
	select {
	case h.broadcast <- env:
		return nil
	case <-h.done:
		return errHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
