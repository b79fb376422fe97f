package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chat-app/internal/dto"
	"chat-app/internal/model"
	"chat-app/internal/queue"
	chatroomsvc "chat-app/internal/service/chatroom"
	stocksvc "chat-app/internal/service/stock"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var errHubStopped = errors.New("websocket hub stopped")

const quoteTimeout = 10 * time.Second

// MessageStore persists messages received over the live channel.
type MessageStore interface {
	PostMessage(ctx context.Context, params chatroomsvc.PostMessageParams) (chatroomsvc.PostMessageResult, error)
}

// StockBot answers "/stock=CODE" commands.
type StockBot interface {
	Reply(ctx context.Context, code string) string
}

type Handler struct {
	hub       *Hub
	publisher Publisher
	store     MessageStore
	upgrader  websocket.Upgrader
	metrics   *Metrics
	bot       StockBot
	jobs      *queue.RequestQueueManager
	now       func() time.Time
}

// NewHandler wires the hub to a publisher. A nil publisher delivers to the
// local hub only.
func NewHandler(hub *Hub, publisher Publisher, store MessageStore, metrics *Metrics) *Handler {
	if publisher == nil {
		publisher = NewLocalPublisher(hub)
	}

	return &Handler{
		hub:       hub,
		publisher: publisher,
		store:     store,
		metrics:   metrics,
		now:       time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetStockBot answers quote commands on the jobs pool instead of storing
// them. Without a bot they are ordinary messages.
func (h *Handler) SetStockBot(bot StockBot, jobs *queue.RequestQueueManager) {
	h.bot = bot
	h.jobs = jobs
}

// JoinRoom upgrades the request and attaches the connection to the room. On
// failure the upgrader has already written the HTTP response.
func (h *Handler) JoinRoom(w http.ResponseWriter, r *http.Request, roomID int64, author chatroomsvc.Author) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	cl := &WSClient{
		Conn:     conn,
		Message:  make(chan []byte, sendBuffer),
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   author.UserID,
		Username: author.Username,
		done:     make(chan struct{}),
	}

	if !h.hub.Register(cl) {
		conn.Close()
		return errHubStopped
	}

	log.Info().Str("client", cl.ID).Int64("chatroom_id", roomID).Int64("user_id", author.UserID).Msg("client connected")

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h)
	return nil
}

func (h *Handler) receive(ctx context.Context, cl *WSClient, content string) {
	if code, ok := stocksvc.ParseCommand(content); ok && h.bot != nil {
		h.quote(cl.RoomID, code)
		return
	}

	result, err := h.store.PostMessage(ctx, chatroomsvc.PostMessageParams{
		ChatroomID: cl.RoomID,
		Author:     chatroomsvc.Author{UserID: cl.UserID, Username: cl.Username},
		Content:    content,
	})
	if err != nil {
		h.metrics.inboundFrame("rejected")
		log.Warn().Err(err).Str("client", cl.ID).Int64("chatroom_id", cl.RoomID).Msg("failed to store live message")
		return
	}

	h.metrics.inboundFrame("stored")
	if err := h.Notify(ctx, result.Message); err != nil {
		log.Error().Err(err).Int64("chatroom_id", cl.RoomID).Msg("failed to publish live message")
	}
}

// quote posts the bot reply to the room. Replies are broadcast but never
// stored.
func (h *Handler) quote(roomID int64, code string) {
	job := queue.Job{Fn: func() error {
		ctx, cancel := context.WithTimeout(context.Background(), quoteTimeout)
		defer cancel()

		reply := h.bot.Reply(ctx, code)
		err := h.Notify(ctx, model.MessageItem{
			ChatroomID: roomID,
			Username:   stocksvc.BotUsername,
			Content:    reply,
			CreatedAt:  h.now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			log.Error().Err(err).Int64("chatroom_id", roomID).Str("code", code).Msg("failed to publish stock reply")
		}
		return err
	}}

	if h.jobs == nil || !h.jobs.TryEnqueueJob(job) {
		h.metrics.inboundFrame("dropped")
		log.Warn().Int64("chatroom_id", roomID).Str("code", code).Msg("stock request dropped, worker queue unavailable")
		return
	}
	h.metrics.inboundFrame("command")
}

// Notify fans a stored message out to every subscriber of its chatroom.
func (h *Handler) Notify(ctx context.Context, message model.MessageItem) error {
	payload, err := json.Marshal(LiveFrame(message))
	if err != nil {
		return fmt.Errorf("encode live frame: %w", err)
	}
	return h.publisher.Publish(ctx, message.ChatroomID, payload)
}

// LiveFrame converts a stored message into the envelope sent to clients.
func LiveFrame(message model.MessageItem) dto.LiveFrame {
	frame := dto.LiveFrame{
		Message:    message.Content,
		Username:   message.Username,
		UserID:     message.UserID,
		ChatroomID: message.ChatroomID,
		MessageID:  message.MessageID,
	}
	if ts := chatroomsvc.ParseTime(message.CreatedAt); !ts.IsZero() {
		frame.Timestamp = &ts
	}
	return frame
}
