package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	readLimit    = 512 * 1024
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 16
)

type WSClient struct {
	Conn     *websocket.Conn
	Message  chan []byte
	ID       string
	RoomID   int64
	UserID   int64
	Username string
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func (cl *WSClient) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cl.done:
			return
		case <-ticker.C:
			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			err := cl.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			cl.mu.Unlock()

			if err != nil {
				log.Debug().Err(err).Str("client", cl.ID).Msg("ping failed")
				return
			}
		}
	}
}

func (cl *WSClient) writeMessage() {
	defer cl.close()

	for {
		select {
		case <-cl.done:
			return
		case payload, ok := <-cl.Message:
			if !ok {
				cl.mu.Lock()
				if !cl.isClosed {
					_ = cl.Conn.WriteControl(
						websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
						time.Now().Add(writeWait),
					)
				}
				cl.mu.Unlock()
				return
			}

			cl.mu.Lock()
			if cl.isClosed {
				cl.mu.Unlock()
				return
			}
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := cl.Conn.WriteMessage(websocket.TextMessage, payload)
			cl.mu.Unlock()

			if err != nil {
				log.Debug().Err(err).Str("client", cl.ID).Msg("write failed")
				return
			}
		}
	}
}

func (cl *WSClient) close() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.isClosed {
		return
	}
	cl.isClosed = true
	cl.Conn.Close()
}

func (cl *WSClient) readMessage(h *Handler) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("client", cl.ID).Msg("recovered in websocket reader")
		}

		close(cl.done)
		h.hub.Unregister(cl)
		cl.close()
		log.Info().Str("client", cl.ID).Int64("chatroom_id", cl.RoomID).Msg("client disconnected")
	}()

	cl.Conn.SetReadLimit(readLimit)

	for {
		_, data, err := cl.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Warn().Err(err).Str("client", cl.ID).Msg("websocket read failed")
			}
			return
		}

		var in InboundMessage
		if err := json.Unmarshal(data, &in); err != nil || strings.TrimSpace(in.Content) == "" {
			h.metrics.inboundFrame("invalid")
			log.Debug().Str("client", cl.ID).Msg("ignoring malformed inbound frame")
			continue
		}

		h.receive(context.Background(), cl, in.Content)
	}
}
