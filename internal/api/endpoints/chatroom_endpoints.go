package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chat-app/internal/api/middleware"
	"chat-app/internal/dto"
	"chat-app/internal/model"
	authsvc "chat-app/internal/service/auth"
	chatroomsvc "chat-app/internal/service/chatroom"
	"chat-app/internal/websocket"

	"github.com/rs/zerolog/log"
)

type ChatroomEndpoints interface {
	Create(http.ResponseWriter, *http.Request) error
	List(http.ResponseWriter, *http.Request) error
	Messages(http.ResponseWriter, *http.Request) error
	PostMessage(http.ResponseWriter, *http.Request) error
	Websocket(http.ResponseWriter, *http.Request) error
}

type ChatroomOptions struct {
	HistoryLimit int
	// AllowQueryToken accepts ?token= on the live channel for clients that
	// cannot set handshake headers.
	AllowQueryToken bool
}

type chatroomEndpoints struct {
	service *chatroomsvc.Service
	auth    *authsvc.Service
	live    *websocket.Handler
	opts    ChatroomOptions
}

func NewChatroomEndpoints(service *chatroomsvc.Service, auth *authsvc.Service, live *websocket.Handler, opts ChatroomOptions) ChatroomEndpoints {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = chatroomsvc.DefaultHistoryLimit
	}
	return &chatroomEndpoints{
		service: service,
		auth:    auth,
		live:    live,
		opts:    opts,
	}
}

func (h *chatroomEndpoints) Create(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreate,
	})
}

func (h *chatroomEndpoints) List(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleList,
	})
}

func (h *chatroomEndpoints) Messages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleMessages,
	})
}

func (h *chatroomEndpoints) PostMessage(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handlePostMessage,
	})
}

func (h *chatroomEndpoints) Websocket(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleWebsocket,
	})
}

func (h *chatroomEndpoints) handleCreate(w http.ResponseWriter, r *http.Request) error {
	author, err := authorFromRequest(r)
	if err != nil {
		return err
	}

	var req dto.CreateChatroomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create chatroom request: %w", err),
		}
	}

	room, err := h.service.CreateChatroom(r.Context(), author, req.Name)
	if err != nil {
		return h.serviceError(err)
	}

	return WriteJSON(w, http.StatusCreated, dto.CreateChatroomResponse{ChatroomID: room.ChatroomID})
}

func (h *chatroomEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	rooms, err := h.service.ListChatrooms(r.Context())
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.ChatroomListResponse{Chatrooms: make([]dto.Room, 0, len(rooms))}
	for _, room := range rooms {
		resp.Chatrooms = append(resp.Chatrooms, dto.Room{ID: room.ChatroomID, Name: room.Name})
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *chatroomEndpoints) handleMessages(w http.ResponseWriter, r *http.Request) error {
	chatroomID, err := chatroomIDParam(r)
	if err != nil {
		return err
	}

	messages, err := h.service.LastMessages(r.Context(), chatroomID, h.opts.HistoryLimit)
	if err != nil {
		return h.serviceError(err)
	}

	resp := dto.MessagesResponse{Messages: make([]dto.Message, 0, len(messages))}
	for _, message := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(message))
	}
	return WriteJSON(w, http.StatusOK, resp)
}

func (h *chatroomEndpoints) handlePostMessage(w http.ResponseWriter, r *http.Request) error {
	author, err := authorFromRequest(r)
	if err != nil {
		return err
	}

	var req dto.PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode post message request: %w", err),
		}
	}

	result, err := h.service.PostMessage(r.Context(), chatroomsvc.PostMessageParams{
		ChatroomID: req.ChatroomID,
		Author:     author,
		Content:    req.Content,
	})
	if err != nil {
		return h.serviceError(err)
	}

	if h.live != nil {
		if err := h.live.Notify(r.Context(), result.Message); err != nil {
			log.Error().Err(err).Int64("chatroom_id", req.ChatroomID).Msg("failed to broadcast posted message")
		}
	}

	return WriteJSON(w, http.StatusCreated, ApiMessageResponse{Message: "Message posted successfully"})
}

func (h *chatroomEndpoints) handleWebsocket(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.liveIdentity(r)
	if err != nil {
		return err
	}

	chatroomID, err := chatroomIDParam(r)
	if err != nil {
		return err
	}

	if _, err := h.service.GetChatroom(r.Context(), chatroomID); err != nil {
		return h.serviceError(err)
	}

	if h.live == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Live channel unavailable",
			ErrorLog:   fmt.Errorf("websocket handler not configured"),
		}
	}

	author := chatroomsvc.Author{UserID: identity.UserID, Username: identity.Username}
	if err := h.live.JoinRoom(w, r, chatroomID, author); err != nil {
		// The upgrader already answered the request.
		log.Warn().Err(err).Int64("chatroom_id", chatroomID).Msg("websocket join failed")
	}
	return nil
}

// liveIdentity authenticates the handshake from the Authorization header,
// falling back to ?token= only when enabled.
func (h *chatroomEndpoints) liveIdentity(r *http.Request) (authsvc.Identity, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		identity, err := h.auth.IdentityFromAuthorizationHeader(header)
		if err != nil {
			return authsvc.Identity{}, authServiceError(err)
		}
		return identity, nil
	}

	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" && h.opts.AllowQueryToken {
		identity, err := h.auth.IdentityFromToken(token)
		if err != nil {
			return authsvc.Identity{}, authServiceError(err)
		}
		return identity, nil
	}

	return authsvc.Identity{}, &HTTPError{
		StatusCode: http.StatusUnauthorized,
		Message:    "Unauthorized",
		ErrorLog:   fmt.Errorf("websocket handshake without credentials"),
	}
}

func authorFromRequest(r *http.Request) (chatroomsvc.Author, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || identity.UserID == 0 {
		return chatroomsvc.Author{}, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Unauthorized",
			ErrorLog:   fmt.Errorf("request reached handler without identity"),
		}
	}
	return chatroomsvc.Author{UserID: identity.UserID, Username: identity.Username}, nil
}

func (h *chatroomEndpoints) serviceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*chatroomsvc.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("chatroom service: %w", err),
		}
	}

	var errorLog error
	if svcErr.Err != nil {
		errorLog = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		errorLog = svcErr
	}

	switch svcErr.Code {
	case chatroomsvc.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: errorLog}
	case chatroomsvc.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: errorLog}
	case chatroomsvc.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: errorLog}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: errorLog}
	}
}

func toMessageResponse(item model.MessageItem) dto.Message {
	return dto.Message{
		ID:         item.MessageID,
		ChatroomID: item.ChatroomID,
		UserID:     item.UserID,
		Username:   item.Username,
		Content:    item.Content,
		Timestamp:  chatroomsvc.ParseTime(item.CreatedAt),
	}
}
