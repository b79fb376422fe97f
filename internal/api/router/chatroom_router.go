package router

import (
	"net/http"

	"chat-app/internal/api"
	"chat-app/internal/api/endpoints"
	"chat-app/internal/api/middleware"
	authsvc "chat-app/internal/service/auth"
	chatroomsvc "chat-app/internal/service/chatroom"
	"chat-app/internal/websocket"
)

func ChatroomRoutes(prefix string, service *chatroomsvc.Service, auth *authsvc.Service, live *websocket.Handler, opts endpoints.ChatroomOptions) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		chatroomEndpoints := endpoints.NewChatroomEndpoints(service, auth, live, opts)
		requireUser := middleware.RequireIdentity(auth)

		mux.HandleFunc(prefix+"/chatroom/create", s.MakeHTTPHandleFunc(chatroomEndpoints.Create, requireUser))
		mux.HandleFunc(prefix+"/chatroom/list", s.MakeHTTPHandleFunc(chatroomEndpoints.List, requireUser))
		mux.HandleFunc(prefix+"/chatroom/messages", s.MakeHTTPHandleFunc(chatroomEndpoints.Messages, requireUser))
		mux.HandleFunc(prefix+"/chatroom/post_message", s.MakeHTTPHandleFunc(chatroomEndpoints.PostMessage, requireUser))
		// The live handshake authenticates itself so it can honour ?token=.
		mux.HandleFunc(prefix+"/ws", s.MakeHTTPHandleFunc(chatroomEndpoints.Websocket))
	}
}
