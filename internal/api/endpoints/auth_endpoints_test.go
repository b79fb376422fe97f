package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"chat-app/internal/api"
	"chat-app/internal/api/middleware"
	"chat-app/internal/dto"
	internaljwt "chat-app/internal/jwt"
	"chat-app/internal/model"
	"chat-app/internal/queue"
	authsvc "chat-app/internal/service/auth"
	chatroomsvc "chat-app/internal/service/chatroom"
	"chat-app/internal/websocket"

	"github.com/prometheus/client_golang/prometheus"
)

type testUserRepository struct {
	mu     sync.Mutex
	users  map[string]model.UserItem
	lastID int64
}

func newTestUserRepository() *testUserRepository {
	return &testUserRepository{users: make(map[string]model.UserItem)}
}

func (m *testUserRepository) NextUserID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	return m.lastID, nil
}

func (m *testUserRepository) CreateUser(ctx context.Context, user model.UserItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return authsvc.ErrConflict
	}
	m.users[user.Username] = user
	return nil
}

func (m *testUserRepository) GetUserByUsername(ctx context.Context, username string) (model.UserItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return model.UserItem{}, authsvc.ErrNotFound
	}
	return user, nil
}

type testChatroomRepository struct {
	mu       sync.Mutex
	rooms    map[int64]model.ChatroomItem
	messages map[int64][]model.MessageItem
	roomSeq  int64
	msgSeq   int64
}

func newTestChatroomRepository() *testChatroomRepository {
	return &testChatroomRepository{
		rooms:    make(map[int64]model.ChatroomItem),
		messages: make(map[int64][]model.MessageItem),
	}
}

func (m *testChatroomRepository) NextChatroomID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomSeq++
	return m.roomSeq, nil
}

func (m *testChatroomRepository) NextMessageID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgSeq++
	return m.msgSeq, nil
}

func (m *testChatroomRepository) CreateChatroom(ctx context.Context, room model.ChatroomItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room.ChatroomID] = room
	return nil
}

func (m *testChatroomRepository) GetChatroom(ctx context.Context, chatroomID int64) (model.ChatroomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	room, ok := m.rooms[chatroomID]
	if !ok {
		return model.ChatroomItem{}, chatroomsvc.ErrNotFound
	}
	return room, nil
}

func (m *testChatroomRepository) ListChatrooms(ctx context.Context) ([]model.ChatroomItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]model.ChatroomItem, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ChatroomID < rooms[j].ChatroomID })
	return rooms, nil
}

func (m *testChatroomRepository) CreateMessage(ctx context.Context, message model.MessageItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[message.ChatroomID] = append(m.messages[message.ChatroomID], message)
	return nil
}

func (m *testChatroomRepository) LastMessages(ctx context.Context, chatroomID int64, limit int) ([]model.MessageItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.messages[chatroomID]
	out := make([]model.MessageItem, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}

func fixedTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

type testEnv struct {
	handler  http.Handler
	auth     *authsvc.Service
	chatroom *chatroomsvc.Service
}

func setupTestEnv(t *testing.T, opts ChatroomOptions) testEnv {
	t.Helper()

	issuer := internaljwt.NewIssuer("test-secret", time.Hour, fixedTime)
	authService := authsvc.NewWithRepository(newTestUserRepository(), issuer, fixedTime)
	chatroomService := chatroomsvc.NewWithRepository(newTestChatroomRepository(), fixedTime)

	hub := websocket.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	live := websocket.NewHandler(hub, nil, chatroomService, nil)

	authEndpoints := NewAuthEndpoints(authService)
	chatroomEndpoints := NewChatroomEndpoints(chatroomService, authService, live, opts)

	queueManager := queue.NewRequestQueueManager(10, 4)
	server := api.NewAPIServer(":0", queueManager, prometheus.NewRegistry(), func(mux *http.ServeMux, s *api.APIServer) {
		requireUser := middleware.RequireIdentity(authService)
		mux.HandleFunc("/register", s.MakeHTTPHandleFunc(authEndpoints.Register))
		mux.HandleFunc("/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
		mux.HandleFunc("/chatroom/create", s.MakeHTTPHandleFunc(chatroomEndpoints.Create, requireUser))
		mux.HandleFunc("/chatroom/list", s.MakeHTTPHandleFunc(chatroomEndpoints.List, requireUser))
		mux.HandleFunc("/chatroom/messages", s.MakeHTTPHandleFunc(chatroomEndpoints.Messages, requireUser))
		mux.HandleFunc("/chatroom/post_message", s.MakeHTTPHandleFunc(chatroomEndpoints.PostMessage, requireUser))
		mux.HandleFunc("/ws", s.MakeHTTPHandleFunc(chatroomEndpoints.Websocket))
		mux.HandleFunc("/health", s.MakeHTTPHandleFunc(NewUtilsEndpoints().Health))
	})

	t.Cleanup(func() {
		cancel()
		queueManager.Shutdown()
	})

	return testEnv{handler: server.Routes(), auth: authService, chatroom: chatroomService}
}

func doJSONRequest[T any](t *testing.T, handler http.Handler, method, target string, body interface{}, headers map[string]string, expectedStatus int) T {
	t.Helper()

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		payload = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, target, payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != expectedStatus {
		t.Fatalf("expected status %d, got %d: %s", expectedStatus, rec.Code, rec.Body.String())
	}

	var result T
	if expectedStatus != http.StatusNoContent {
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}

	return result
}

func loginHeaders(t *testing.T, env testEnv, username string) map[string]string {
	t.Helper()

	doJSONRequest[dto.RegisterResponse](t, env.handler, http.MethodPost, "/register",
		dto.RegisterRequest{Username: username, Password: "pw1"}, nil, http.StatusCreated)
	resp := doJSONRequest[dto.LoginResponse](t, env.handler, http.MethodPost, "/login",
		dto.LoginRequest{Username: username, Password: "pw1"}, nil, http.StatusOK)

	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func TestAuthEndpointsEndToEnd(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})

	registered := doJSONRequest[dto.RegisterResponse](t, env.handler, http.MethodPost, "/register",
		map[string]string{"username": "alice", "password": "pw1"}, nil, http.StatusCreated)
	if registered.UserID != 1 || registered.Username != "alice" {
		t.Fatalf("unexpected register response %+v", registered)
	}

	conflict := doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/register",
		map[string]string{"username": "alice", "password": "other"}, nil, http.StatusConflict)
	if conflict.Error != "username already taken" {
		t.Fatalf("unexpected conflict message %q", conflict.Error)
	}

	login := doJSONRequest[dto.LoginResponse](t, env.handler, http.MethodPost, "/login",
		map[string]string{"username": "alice", "password": "pw1"}, nil, http.StatusOK)
	if login.Token == "" {
		t.Fatal("expected token in login response")
	}

	identity, err := env.auth.IdentityFromToken(login.Token)
	if err != nil {
		t.Fatalf("issued token should validate: %v", err)
	}
	if identity.UserID != 1 || identity.Username != "alice" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	failed := doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/login",
		map[string]string{"username": "alice", "password": "wrong"}, nil, http.StatusUnauthorized)
	if failed.Error != "invalid credentials" {
		t.Fatalf("unexpected login failure message %q", failed.Error)
	}
}

func TestAuthEndpointsRejectBadInput(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/register",
		map[string]string{"username": "", "password": "pw1"}, nil, http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, "/login", nil, nil, http.StatusMethodNotAllowed)
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})
	doJSONRequest[map[string]any](t, env.handler, http.MethodGet, "/health", nil, nil, http.StatusOK)
}
