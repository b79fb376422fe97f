// Package session holds the state of one signed-in chat user and drives the
// REST client and the live connection on its behalf.
package session

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"chat-app/internal/client"
	"chat-app/internal/dto"
	"chat-app/internal/jwt"
	"chat-app/internal/live"

	"github.com/rs/zerolog/log"
)

// API is the REST surface of the chat backend. *client.Client implements it.
type API interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
	CreateChatroom(ctx context.Context, token, name string) (int64, error)
	ListChatrooms(ctx context.Context, token string) ([]dto.Room, error)
	Messages(ctx context.Context, token string, chatroomID int64) ([]dto.Message, error)
}

type Option func(*Session)

// WithClock replaces the clock used for the token expiry precheck.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

type Session struct {
	api     API
	surface Surface
	gate    *live.Gate
	live    *live.Connection
	now     func() time.Time

	mu          sync.Mutex
	token       string
	identity    *jwt.Claims
	currentRoom *dto.Room
	rooms       []dto.Room

	// joinMu serializes everything that opens or closes the live connection.
	joinMu sync.Mutex
}

func New(api API, surface Surface, liveCfg live.Config, opts ...Option) *Session {
	s := &Session{
		api:     api,
		surface: surface,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.gate = live.NewGate(s.renderFrame)
	s.gate.OnDrop(func(f live.Frame) {
		log.Debug().Int64("room_id", f.RoomID).Uint64("generation", f.Generation).Msg("discarding stale live frame")
	})
	s.live = live.NewConnection(liveCfg, s.gate, s.liveDropped)
	return s
}

func (s *Session) Register(ctx context.Context, username, password string) error {
	const op = "session.register"

	if strings.TrimSpace(username) == "" || password == "" {
		return s.fail(op, client.ErrorCodeValidation, msgMissingFields, nil)
	}

	if err := s.api.Register(ctx, username, password); err != nil {
		s.notifyError(msgRegisterFailed, err)
		return err
	}

	s.notify(msgRegistered)
	return nil
}

// Login stores the issued token and refreshes the room listing once. A failed
// refresh is reported through the surface and does not fail the login.
func (s *Session) Login(ctx context.Context, username, password string) error {
	const op = "session.login"

	if strings.TrimSpace(username) == "" || password == "" {
		return s.fail(op, client.ErrorCodeValidation, msgMissingFields, nil)
	}

	token, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.notifyError(msgLoginFailed, err)
		return err
	}

	identity, err := jwt.ParseIdentity(token)
	if err != nil {
		log.Debug().Err(err).Msg("token claims unreadable, expiry precheck disabled")
		identity = nil
	}

	s.mu.Lock()
	s.token = token
	s.identity = identity
	s.mu.Unlock()

	s.notify(msgLoggedIn)

	if _, err := s.ListRooms(ctx); err != nil {
		log.Debug().Err(err).Msg("room refresh after login failed")
	}
	return nil
}

func (s *Session) CreateRoom(ctx context.Context, name string) error {
	const op = "session.create_room"

	token, err := s.requireToken(op)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return s.fail(op, client.ErrorCodeValidation, msgEmptyRoomName, nil)
	}

	id, err := s.api.CreateChatroom(ctx, token, name)
	if err != nil {
		s.notifyError(msgCreateFailed, err)
		return err
	}
	log.Debug().Int64("room_id", id).Str("name", name).Msg("chatroom created")

	s.notify(msgRoomCreated)
	_, _ = s.ListRooms(ctx)
	return nil
}

// ListRooms replaces the displayed listing with the server's, in server order.
// On failure the previous listing stays on display.
func (s *Session) ListRooms(ctx context.Context) ([]dto.Room, error) {
	const op = "session.list_rooms"

	token, err := s.requireToken(op)
	if err != nil {
		return nil, err
	}

	rooms, err := s.api.ListChatrooms(ctx, token)
	if err != nil {
		s.notifyError(msgRoomsFailed, err)
		return nil, err
	}

	s.mu.Lock()
	s.rooms = append([]dto.Room(nil), rooms...)
	s.mu.Unlock()

	s.surface.ShowRooms(rooms)
	return rooms, nil
}

// JoinRoom makes roomID the current room: the view is cleared, history is
// fetched and rendered, then the live connection is reopened for the room.
// Live frames that arrive while history loads are shown after it.
func (s *Session) JoinRoom(ctx context.Context, roomID int64, roomName string) error {
	const op = "session.join_room"

	if roomID <= 0 {
		return s.fail(op, client.ErrorCodeValidation, msgInvalidRoom, nil)
	}
	token, err := s.requireToken(op)
	if err != nil {
		return err
	}

	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	room := dto.Room{ID: roomID, Name: roomName}
	if room.Name == "" {
		if known, ok := s.LookupRoom(strconv.FormatInt(roomID, 10)); ok {
			room.Name = known.Name
		}
	}

	s.mu.Lock()
	s.currentRoom = &room
	s.mu.Unlock()

	// Open below is the only generation bump while joinMu is held.
	s.gate.Hold(roomID, s.live.Generation()+1)
	defer s.gate.Release()

	s.surface.ShowRoom(room)

	history, histErr := s.FetchHistory(ctx, roomID)
	if histErr == nil && len(history) > 0 {
		s.surface.AppendMessages(history...)
	}

	liveErr := s.openLive(ctx, roomID, token)
	return errors.Join(histErr, liveErr)
}

// FetchHistory returns the room's recent messages oldest first.
func (s *Session) FetchHistory(ctx context.Context, roomID int64) ([]dto.Message, error) {
	const op = "session.fetch_history"

	token, err := s.requireToken(op)
	if err != nil {
		return nil, err
	}

	msgs, err := s.api.Messages(ctx, token, roomID)
	if err != nil {
		s.notifyError(msgMessagesFailed, err)
		return nil, err
	}

	sortHistory(msgs)
	return msgs, nil
}

// SendMessage pushes content over the live connection. The server echoes it
// back to every member of the room, the sender included, so nothing is
// rendered locally.
func (s *Session) SendMessage(ctx context.Context, content string) error {
	const op = "session.send_message"

	s.mu.Lock()
	room := s.currentRoom
	s.mu.Unlock()

	if room == nil {
		return s.fail(op, client.ErrorCodeValidation, msgSelectRoom, nil)
	}
	if s.live.State() != live.StateOpen || s.live.RoomID() != room.ID {
		return s.fail(op, client.ErrorCodeProtocol, msgLiveNotOpen, nil)
	}
	if strings.TrimSpace(content) == "" {
		return s.fail(op, client.ErrorCodeValidation, msgEmptyMessage, nil)
	}

	if err := s.live.Send(ctx, content); err != nil {
		s.notifyError(msgSendFailed, err)
		return err
	}
	return nil
}

// OpenLiveConnection replaces the live connection with one for roomID.
func (s *Session) OpenLiveConnection(ctx context.Context, roomID int64) error {
	const op = "session.open_live"

	if roomID <= 0 {
		return s.fail(op, client.ErrorCodeValidation, msgInvalidRoom, nil)
	}
	token, err := s.requireToken(op)
	if err != nil {
		return err
	}

	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	s.gate.Hold(roomID, s.live.Generation()+1)
	defer s.gate.Release()

	return s.openLive(ctx, roomID, token)
}

// LeaveRoom closes the live connection and clears the current room.
func (s *Session) LeaveRoom() {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()

	s.live.Close()
	s.gate.Hold(0, s.live.Generation()+1)
	s.gate.Release()

	s.mu.Lock()
	s.currentRoom = nil
	s.mu.Unlock()
}

func (s *Session) Close() {
	s.joinMu.Lock()
	defer s.joinMu.Unlock()
	s.live.Close()
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Identity returns the claims decoded from the token, if they were readable.
func (s *Session) Identity() (jwt.Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return jwt.Claims{}, false
	}
	return *s.identity, true
}

func (s *Session) CurrentRoom() (dto.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRoom == nil {
		return dto.Room{}, false
	}
	return *s.currentRoom, true
}

// Rooms returns the last successful listing.
func (s *Session) Rooms() []dto.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]dto.Room(nil), s.rooms...)
}

// LookupRoom finds a room of the last listing by id or by exact name.
func (s *Session) LookupRoom(ref string) (dto.Room, bool) {
	ref = strings.TrimSpace(ref)
	id, idErr := strconv.ParseInt(ref, 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if idErr == nil && room.ID == id {
			return room, true
		}
	}
	for _, room := range s.rooms {
		if room.Name == ref {
			return room, true
		}
	}
	return dto.Room{}, false
}

func (s *Session) LiveState() live.State {
	return s.live.State()
}

// openLive must be called with joinMu held and the gate held for roomID.
func (s *Session) openLive(ctx context.Context, roomID int64, token string) error {
	if _, err := s.live.Open(ctx, roomID, token); err != nil {
		s.notifyError(msgLiveFailed, err)
		return err
	}
	return nil
}

func (s *Session) requireToken(op string) (string, error) {
	s.mu.Lock()
	token := s.token
	identity := s.identity
	s.mu.Unlock()

	if token == "" {
		return "", s.fail(op, client.ErrorCodeValidation, msgNotLoggedIn, nil)
	}
	if identity != nil && identity.Expired(s.now()) {
		return "", s.fail(op, client.ErrorCodeUnauthorized, msgSessionExpired, nil)
	}
	return token, nil
}

func (s *Session) renderFrame(f live.Frame) {
	s.surface.AppendMessages(f.Message())
}

func (s *Session) liveDropped(roomID int64, err error) {
	if err == nil {
		log.Info().Int64("room_id", roomID).Msg("live connection closed by server")
		return
	}
	s.notifyError(msgLiveLost, err)
}

func (s *Session) fail(op string, code client.ErrorCode, message string, cause error) error {
	err := client.NewError(code, op, message, cause)
	s.notifyError(message, err)
	return err
}

func (s *Session) notify(message string) {
	s.surface.Notify(Notification{Level: LevelInfo, Message: message})
}

func (s *Session) notifyError(message string, err error) {
	log.Debug().Err(err).Msg(message)
	s.surface.Notify(Notification{Level: LevelError, Message: message, Err: err})
}

// sortHistory orders messages by timestamp, then id, oldest first.
func sortHistory(msgs []dto.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
