// Package httpapi serves the relay's HTTP/JSON surface.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/cryptachat/internal/service"
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Auth     service.AuthService
	Sessions service.Authenticator
	Keys     service.KeyService
	Contacts service.ContactService
	Messages service.MessageService
	// Ping reports store reachability for /healthz. Optional.
	Ping func(ctx context.Context) error
	Log  *zap.Logger
}

type server struct {
	Deps
}

// NewRouter builds the router with logging, panic recovery and the bearer gate.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &server{Deps: d}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(d.Log), recoverMiddleware(d.Log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	})

	r.HandleFunc("/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	r.HandleFunc("/upload_key", s.authed(s.uploadKey)).Methods(http.MethodPost)
	r.HandleFunc("/get_key", s.authed(s.getKey)).Methods(http.MethodGet)
	r.HandleFunc("/request_chat", s.authed(s.requestChat)).Methods(http.MethodPost)
	r.HandleFunc("/get_chat_requests", s.authed(s.getChatRequests)).Methods(http.MethodGet)
	r.HandleFunc("/accept_chat", s.authed(s.acceptChat)).Methods(http.MethodPost)
	r.HandleFunc("/get_contacts", s.authed(s.getContacts)).Methods(http.MethodGet)
	r.HandleFunc("/send_message", s.authed(s.sendMessage)).Methods(http.MethodPost)
	r.HandleFunc("/get_messages", s.authed(s.getMessages)).Methods(http.MethodGet)
	return r
}
