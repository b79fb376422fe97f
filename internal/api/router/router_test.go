package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-app/internal/api"
	"chat-app/internal/api/endpoints"
	internaljwt "chat-app/internal/jwt"
	"chat-app/internal/queue"
	authsvc "chat-app/internal/service/auth"
	chatroomsvc "chat-app/internal/service/chatroom"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRoutesAreRegistered(t *testing.T) {
	issuer := internaljwt.NewIssuer("secret", time.Hour, nil)
	auth := authsvc.NewWithRepository(nil, issuer, nil)
	chatrooms := chatroomsvc.NewWithRepository(nil, nil)

	rqm := queue.NewRequestQueueManager(1, 1)
	defer rqm.Shutdown()

	handler := api.NewAPIServer(":0", rqm, prometheus.NewRegistry(),
		UtilsRoutes(""),
		AuthRoutes("", auth),
		ChatroomRoutes("", chatrooms, auth, nil, endpoints.ChatroomOptions{}),
	).Routes()

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/register", http.StatusMethodNotAllowed},
		{http.MethodGet, "/login", http.StatusMethodNotAllowed},
		{http.MethodGet, "/chatroom/list", http.StatusUnauthorized},
		{http.MethodPost, "/chatroom/create", http.StatusUnauthorized},
		{http.MethodGet, "/chatroom/messages", http.StatusUnauthorized},
		{http.MethodPost, "/chatroom/post_message", http.StatusUnauthorized},
		{http.MethodGet, "/ws", http.StatusUnauthorized},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s %s: expected %d, got %d", tc.method, tc.path, tc.status, rec.Code)
		}
	}
}
