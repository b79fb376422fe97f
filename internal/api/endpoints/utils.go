package endpoints

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"chat-app/internal/api"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path),
	}
}

// chatroomIDParam reads a positive chatroom_id query parameter.
func chatroomIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("chatroom_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid chatroom_id",
			ErrorLog:   fmt.Errorf("invalid chatroom_id %q", raw),
		}
	}
	return id, nil
}
