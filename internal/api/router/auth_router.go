package router

import (
	"net/http"

	"chat-app/internal/api"
	"chat-app/internal/api/endpoints"
	authsvc "chat-app/internal/service/auth"
)

func AuthRoutes(prefix string, service *authsvc.Service) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		authEndpoints := endpoints.NewAuthEndpoints(service)
		mux.HandleFunc(prefix+"/register", s.MakeHTTPHandleFunc(authEndpoints.Register))
		mux.HandleFunc(prefix+"/login", s.MakeHTTPHandleFunc(authEndpoints.Login))
	}
}
