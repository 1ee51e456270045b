package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/and161185/cryptachat/internal/api"
	"github.com/and161185/cryptachat/internal/convert"
	"github.com/and161185/cryptachat/internal/errs"
	"github.com/and161185/cryptachat/internal/model"
)

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := s.Auth.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.RegisterResponse{Message: "New user registered successfully!", UserID: id.String()})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var in api.Credentials
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	tok, u, err := s.Auth.LoginWithIP(r.Context(), in.Username, in.Password, r.RemoteAddr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPILogin(tok, u))
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("store unavailable"))
			return
		}
	}
	writeJSON(w, http.StatusOK, api.Status{Message: "ok"})
}

func (s *server) uploadKey(w http.ResponseWriter, r *http.Request, me model.Identity) {
	var in api.UploadKeyRequest
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Keys.Upload(r.Context(), me, in.PublicKey); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Status{Message: "Public key uploaded successfully."})
}

func (s *server) getKey(w http.ResponseWriter, r *http.Request, _ model.Identity) {
	username := r.URL.Query().Get("username")
	key, err := s.Keys.Lookup(r.Context(), username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.KeyResponse{Username: username, PublicKey: key})
}

func (s *server) requestChat(w http.ResponseWriter, r *http.Request, me model.Identity) {
	var in api.ChatRequestRequest
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Contacts.Request(r.Context(), me, in.RecipientUsername); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.Status{Message: fmt.Sprintf("Chat request sent to %s.", in.RecipientUsername)})
}

func (s *server) getChatRequests(w http.ResponseWriter, r *http.Request, me model.Identity) {
	pending, err := s.Contacts.ListPending(r.Context(), me)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.PendingRequestsResponse{PendingRequests: convert.ToAPIPending(pending)})
}

func (s *server) acceptChat(w http.ResponseWriter, r *http.Request, me model.Identity) {
	var in api.AcceptChatRequest
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Contacts.Accept(r.Context(), me, in.RequesterUsername); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.Status{Message: fmt.Sprintf("Chat request from %s accepted!", in.RequesterUsername)})
}

func (s *server) getContacts(w http.ResponseWriter, r *http.Request, me model.Identity) {
	contacts, err := s.Contacts.ListContacts(r.Context(), me)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ContactsResponse{Contacts: convert.ToAPIContacts(contacts)})
}

func (s *server) sendMessage(w http.ResponseWriter, r *http.Request, me model.Identity) {
	var in api.SendMessageRequest
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	m, err := s.Messages.Send(r.Context(), me, in.RecipientUsername,
		model.EncryptedBlob(in.SenderBlob), model.EncryptedBlob(in.RecipientBlob))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, convert.ToAPISent(m))
}

func (s *server) getMessages(w http.ResponseWriter, r *http.Request, me model.Identity) {
	q := r.URL.Query()
	var since int64
	if raw := q.Get("since_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.fail(w, r, errs.Validation("since_id must be an integer"))
			return
		}
		since = v
	}
	views, err := s.Messages.Fetch(r.Context(), me, q.Get("username"), since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessagesResponse{Messages: convert.ToAPIMessages(views)})
}
