package endpoints

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-app/internal/api"
	"chat-app/internal/dto"

	gorillaws "github.com/gorilla/websocket"
)

func TestChatroomEndpointsRequireToken(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})

	doJSONRequest[map[string]string](t, env.handler, http.MethodGet, "/chatroom/list", nil, nil, http.StatusUnauthorized)
	doJSONRequest[map[string]string](t, env.handler, http.MethodGet, "/chatroom/list", nil,
		map[string]string{"Authorization": "Bearer not-a-token"}, http.StatusUnauthorized)
	doJSONRequest[map[string]string](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "general"}, nil, http.StatusUnauthorized)
}

func TestChatroomLifecycle(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})
	headers := loginHeaders(t, env, "alice")

	created := doJSONRequest[dto.CreateChatroomResponse](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "general"}, headers, http.StatusCreated)
	if created.ChatroomID != 1 {
		t.Fatalf("expected chatroom id 1, got %d", created.ChatroomID)
	}
	doJSONRequest[dto.CreateChatroomResponse](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "random"}, headers, http.StatusCreated)

	listing := doJSONRequest[dto.ChatroomListResponse](t, env.handler, http.MethodGet, "/chatroom/list", nil, headers, http.StatusOK)
	if len(listing.Chatrooms) != 2 || listing.Chatrooms[0].Name != "general" || listing.Chatrooms[1].ID != 2 {
		t.Fatalf("unexpected listing %+v", listing.Chatrooms)
	}

	for _, content := range []string{"first", "second"} {
		posted := doJSONRequest[ApiMessageResponse](t, env.handler, http.MethodPost, "/chatroom/post_message",
			dto.PostMessageRequest{ChatroomID: created.ChatroomID, Content: content}, headers, http.StatusCreated)
		if posted.Message != "Message posted successfully" {
			t.Fatalf("unexpected post response %q", posted.Message)
		}
	}

	history := doJSONRequest[dto.MessagesResponse](t, env.handler, http.MethodGet, "/chatroom/messages?chatroom_id=1", nil, headers, http.StatusOK)
	if len(history.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history.Messages))
	}
	newest := history.Messages[0]
	if newest.Content != "second" || newest.Username != "alice" || newest.UserID != 1 || newest.ChatroomID != 1 {
		t.Fatalf("expected newest message first, got %+v", newest)
	}
	if !newest.Timestamp.Equal(fixedTime()) {
		t.Fatalf("unexpected timestamp %s", newest.Timestamp)
	}
}

func TestChatroomEndpointsValidation(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})
	headers := loginHeaders(t, env, "alice")

	for _, target := range []string{"/chatroom/messages", "/chatroom/messages?chatroom_id=abc", "/chatroom/messages?chatroom_id=0"} {
		doJSONRequest[api.ApiError](t, env.handler, http.MethodGet, target, nil, headers, http.StatusBadRequest)
	}

	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "  "}, headers, http.StatusBadRequest)
	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/chatroom/post_message",
		dto.PostMessageRequest{ChatroomID: 0, Content: "hi"}, headers, http.StatusBadRequest)
	doJSONRequest[api.ApiError](t, env.handler, http.MethodPost, "/chatroom/post_message",
		dto.PostMessageRequest{ChatroomID: 42, Content: "hi"}, headers, http.StatusNotFound)
}

func liveURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?" + query
}

func TestWebsocketHandshakeAndBroadcast(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})
	headers := loginHeaders(t, env, "alice")
	doJSONRequest[dto.CreateChatroomResponse](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "general"}, headers, http.StatusCreated)

	server := httptest.NewServer(env.handler)
	defer server.Close()

	header := http.Header{}
	header.Set("Authorization", headers["Authorization"])
	conn, _, err := gorillaws.DefaultDialer.Dial(liveURL(server, "chatroom_id=1"), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(dto.OutboundFrame{Content: "over the wire"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	var frame dto.LiveFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Message != "over the wire" || frame.Username != "alice" || frame.ChatroomID != 1 {
		t.Fatalf("unexpected frame %+v", frame)
	}

	history := doJSONRequest[dto.MessagesResponse](t, env.handler, http.MethodGet, "/chatroom/messages?chatroom_id=1", nil, headers, http.StatusOK)
	if len(history.Messages) != 1 || history.Messages[0].Content != "over the wire" {
		t.Fatalf("expected live message to be persisted, got %+v", history.Messages)
	}
}

func TestWebsocketHandshakeRejections(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{})
	headers := loginHeaders(t, env, "alice")
	doJSONRequest[dto.CreateChatroomResponse](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "general"}, headers, http.StatusCreated)
	token := strings.TrimPrefix(headers["Authorization"], "Bearer ")

	server := httptest.NewServer(env.handler)
	defer server.Close()

	bearer := http.Header{}
	bearer.Set("Authorization", headers["Authorization"])

	cases := []struct {
		name   string
		query  string
		header http.Header
		status int
	}{
		{name: "no credentials", query: "chatroom_id=1", status: http.StatusUnauthorized},
		{name: "query token disabled", query: "chatroom_id=1&token=" + token, status: http.StatusUnauthorized},
		{name: "bad chatroom id", query: "chatroom_id=abc", header: bearer, status: http.StatusBadRequest},
		{name: "unknown chatroom", query: "chatroom_id=9", header: bearer, status: http.StatusNotFound},
	}

	for _, tc := range cases {
		_, resp, err := gorillaws.DefaultDialer.Dial(liveURL(server, tc.query), tc.header)
		if err == nil {
			t.Fatalf("%s: expected handshake to fail", tc.name)
		}
		if resp == nil || resp.StatusCode != tc.status {
			t.Fatalf("%s: expected status %d, got %v", tc.name, tc.status, resp)
		}
	}
}

func TestWebsocketQueryTokenWhenAllowed(t *testing.T) {
	env := setupTestEnv(t, ChatroomOptions{AllowQueryToken: true})
	headers := loginHeaders(t, env, "alice")
	doJSONRequest[dto.CreateChatroomResponse](t, env.handler, http.MethodPost, "/chatroom/create",
		dto.CreateChatroomRequest{Name: "general"}, headers, http.StatusCreated)
	token := strings.TrimPrefix(headers["Authorization"], "Bearer ")

	server := httptest.NewServer(env.handler)
	defer server.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial(liveURL(server, "chatroom_id=1&token="+token), nil)
	if err != nil {
		t.Fatalf("dial with query token: %v", err)
	}
	conn.Close()
}
